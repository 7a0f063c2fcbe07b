package queue

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFatal_IsFatalDetectsWrappedCause(t *testing.T) {
	cause := errors.New("blob missing")
	err := Fatal(fmt.Errorf("fetch blob x: %w", cause))

	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, cause)
}

func TestIsFatal_FalseForPlainError(t *testing.T) {
	assert.False(t, IsFatal(errors.New("transient timeout")))
	assert.False(t, IsFatal(nil))
}

func TestFatal_NilInputReturnsNil(t *testing.T) {
	assert.Nil(t, Fatal(nil))
}

func TestStreamKey_IsPerProject(t *testing.T) {
	assert.Equal(t, "ingest:events:proj-1", streamKey("proj-1"))
	assert.NotEqual(t, streamKey("proj-1"), streamKey("proj-2"))
}

func TestDLQKey_IsPerProject(t *testing.T) {
	assert.Equal(t, "ingest:dlq:proj-1", dlqKey("proj-1"))
}

func TestBackoffWithJitter_NeverExceedsCapPlusOne(t *testing.T) {
	for attempt := int64(1); attempt <= maxDeliveryAttempts+2; attempt++ {
		delay := backoffWithJitter(attempt)
		assert.GreaterOrEqual(t, delay, time.Duration(0))
		assert.LessOrEqual(t, delay, maxRetryDelay)
	}
}

func TestBackoffWithJitter_GrowsWithAttemptOnAverage(t *testing.T) {
	// Jitter makes any single draw noisy; sample repeatedly and compare
	// maxima, which must grow monotonically with the exponential base even
	// though individual draws can be small.
	var maxEarly, maxLate time.Duration
	for i := 0; i < 200; i++ {
		if d := backoffWithJitter(1); d > maxEarly {
			maxEarly = d
		}
		if d := backoffWithJitter(4); d > maxLate {
			maxLate = d
		}
	}
	assert.Greater(t, maxLate, maxEarly)
}
