package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("test", 2, time.Minute)
	cb.clock = func() time.Time { return now }

	assert.True(t, cb.Allow())
	cb.Failure()
	assert.Equal(t, "CLOSED", cb.State())
	cb.Failure()
	assert.Equal(t, "OPEN", cb.State())
	assert.False(t, cb.Allow())

	now = now.Add(2 * time.Minute)
	assert.True(t, cb.Allow())
	assert.Equal(t, "HALF_OPEN", cb.State())
	assert.False(t, cb.Allow(), "only one probe while half open")

	cb.Failure()
	assert.Equal(t, "OPEN", cb.State())

	now = now.Add(2 * time.Minute)
	assert.True(t, cb.Allow())
	cb.Success()
	assert.Equal(t, "CLOSED", cb.State())
	assert.True(t, cb.Allow())
}
