package engagement

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable dispatch error",
			err:      NewRetryableDispatchError(errors.New("timeout")),
			expected: true,
		},
		{
			name:     "permanent dispatch error",
			err:      NewPermanentDispatchError(errors.New("bad number")),
			expected: false,
		},
		{
			name:     "wrapped permanent error",
			err:      fmt.Errorf("send: %w", NewPermanentDispatchError(errors.New("bad number"))),
			expected: false,
		},
		{
			name:     "generic error defaults to retryable",
			err:      errors.New("unknown"),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryable(tt.err))
		})
	}
}

func TestDispatchError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewRetryableDispatchError(cause)
	assert.ErrorIs(t, err, cause)
}

func TestEligibilityError(t *testing.T) {
	err := &EligibilityError{RecipientID: "u1", Reason: "missing phone"}
	assert.Contains(t, err.Error(), "u1")
	assert.Contains(t, err.Error(), "missing phone")
}
