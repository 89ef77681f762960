package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ExitError
		want string
	}{
		{"message and cause", NewExitError(ExitInvalidArgument, "Invalid manifest", errors.New("boom")), "Invalid manifest: boom"},
		{"message only", NewExitError(ExitFailure, "failed", nil), "failed"},
		{"cause only", NewExitError(ExitFailure, "", errors.New("boom")), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ExitSuccess, CodeOf(nil))
	assert.Equal(t, ExitFailure, CodeOf(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", NewExitError(ExitPartialFailure, "some jobs failed", nil))
	assert.Equal(t, ExitPartialFailure, CodeOf(wrapped))
}

func TestNewExternalServiceError(t *testing.T) {
	err := NewExternalServiceError("portal returned 503")
	assert.ErrorIs(t, err, ErrExternalService)
	assert.Contains(t, err.Error(), "portal returned 503")
}
