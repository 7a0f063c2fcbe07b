package ulid

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsUniqueAndNonZero(t *testing.T) {
	a, b := New(), New()
	assert.False(t, a.IsZero())
	assert.NotEqual(t, a.String(), b.String())
}

func TestParse_RoundTrip(t *testing.T) {
	orig := New()
	parsed, err := Parse(orig.String())
	require.NoError(t, err)
	assert.Equal(t, orig, parsed)
}

func TestParse_RejectsMalformedString(t *testing.T) {
	_, err := Parse("not-a-ulid")
	assert.Error(t, err)
}

func TestMustParse_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { MustParse("not-a-ulid") })
}

func TestNewFromTime_PreservesTimestampComponent(t *testing.T) {
	at := time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)
	u := NewFromTime(at)
	assert.WithinDuration(t, at, u.Time(), time.Second)
}

func TestScan_RoundTripsStringAndBytes(t *testing.T) {
	orig := New()

	var fromString ULID
	require.NoError(t, fromString.Scan(orig.String()))
	assert.Equal(t, orig, fromString)

	var fromBytes ULID
	require.NoError(t, fromBytes.Scan([]byte(orig.String())))
	assert.Equal(t, orig, fromBytes)

	var fromNil ULID
	require.NoError(t, fromNil.Scan(nil))
	assert.True(t, fromNil.IsZero())

	var fromInvalidType ULID
	assert.Error(t, fromInvalidType.Scan(42))
}

func TestValue_ZeroULIDYieldsNil(t *testing.T) {
	var zero ULID
	v, err := zero.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	orig := New()
	v, err = orig.Value()
	require.NoError(t, err)
	assert.Equal(t, orig.String(), v)
}

func TestJSON_RoundTrip(t *testing.T) {
	orig := New()
	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var decoded ULID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, orig, decoded)
}

func TestUnmarshalJSON_NullAndEmptyYieldZeroValue(t *testing.T) {
	var u ULID
	require.NoError(t, u.UnmarshalJSON([]byte(`null`)))
	assert.True(t, u.IsZero())

	var u2 ULID
	require.NoError(t, u2.UnmarshalJSON([]byte(`""`)))
	assert.True(t, u2.IsZero())
}

func TestMarshalText_UnmarshalText_RoundTrip(t *testing.T) {
	orig := New()
	text, err := orig.MarshalText()
	require.NoError(t, err)

	var decoded ULID
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, orig, decoded)
}
