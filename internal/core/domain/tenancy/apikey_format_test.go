package tenancy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKeyToken_HasStablePrefixAndLength(t *testing.T) {
	token, err := GenerateAPIKeyToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token, "tr-"))
	assert.Len(t, token, len("tr-")+apiKeySecretBytes)
}

func TestGenerateAPIKeyToken_IsRandomPerCall(t *testing.T) {
	a, err := GenerateAPIKeyToken()
	require.NoError(t, err)
	b, err := GenerateAPIKeyToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHashAPIKeyToken_IsDeterministicAndDistinct(t *testing.T) {
	h1 := HashAPIKeyToken("tr-same-token")
	h2 := HashAPIKeyToken("tr-same-token")
	h3 := HashAPIKeyToken("tr-different-token")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64) // hex-encoded SHA-256
}

func TestKeyPreviewPrefix_TruncatesToKeyPrefixLen(t *testing.T) {
	token := "tr-abcdefghijklmnopqrstuvwx"
	preview := KeyPreviewPrefix(token)

	assert.Len(t, preview, KeyPrefixLen)
	assert.Equal(t, token[:KeyPrefixLen], preview)
}

func TestKeyPreviewPrefix_ShortTokenReturnedAsIs(t *testing.T) {
	short := "tr-ab"
	assert.Equal(t, short, KeyPreviewPrefix(short))
}
