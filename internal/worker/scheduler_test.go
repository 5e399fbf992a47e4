package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoublesPerAttempt(t *testing.T) {
	assert.Equal(t, 30*time.Second, Backoff(0))
	assert.Equal(t, 1*time.Minute, Backoff(1))
	assert.Equal(t, 2*time.Minute, Backoff(2))
	assert.Equal(t, 4*time.Minute, Backoff(3))
	assert.Equal(t, 8*time.Minute, Backoff(4))
}

func TestBackoffIsCapped(t *testing.T) {
	assert.Equal(t, backoffCap, Backoff(6))
	assert.Equal(t, backoffCap, Backoff(100))
}

func TestBackoffNeverPanicsOnNegativeAttempts(t *testing.T) {
	assert.Equal(t, backoffBase, Backoff(-1))
}
