package blobstore

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildEventKey_IsTimePartitionedByUTCHour(t *testing.T) {
	at := time.Date(2026, time.March, 5, 14, 30, 0, 0, time.FixedZone("PDT", -7*3600))

	key := BuildEventKey("proj-1", at)

	assert.True(t, strings.HasPrefix(key, "events/otel/proj-1/2026/03/05/21/"), "got %s", key)
	assert.True(t, strings.HasSuffix(key, ".json"))
}

func TestBuildEventKey_UniquePerCall(t *testing.T) {
	now := time.Now()
	a := BuildEventKey("proj-1", now)
	b := BuildEventKey("proj-1", now)

	assert.NotEqual(t, a, b)
}
