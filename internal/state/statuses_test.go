package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from, to InstanceStatus
		valid    bool
	}{
		{StatusCreated, StatusClaimed, true},
		{StatusClaimed, StatusCompleted, true},
		{StatusClaimed, StatusErrored, true},
		{StatusCreated, StatusErrored, true},
		{StatusCompleted, StatusClaimed, false},
		{StatusErrored, StatusClaimed, false},
		{StatusCompleted, StatusErrored, false},
		{StatusCreated, StatusCompleted, false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.valid, IsValidTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusErrored.Terminal())
	assert.False(t, StatusCreated.Terminal())
	assert.False(t, StatusClaimed.Terminal())
}

func TestOf(t *testing.T) {
	assert.Equal(t, StatusCreated, Of(true, false, false))
	assert.Equal(t, StatusClaimed, Of(true, false, true))
	assert.Equal(t, StatusCompleted, Of(false, false, false))
	assert.Equal(t, StatusErrored, Of(false, true, false))
}

// A freshly created instance is never simultaneously in-process and errored.
func TestCreatedNeverErrored(t *testing.T) {
	assert.NotEqual(t, StatusErrored, Of(true, false, false))
}
