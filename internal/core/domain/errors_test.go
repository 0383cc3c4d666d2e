package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrVersionConflict", ErrVersionConflict},
		{"ErrCorruptRecord", ErrCorruptRecord},
		{"ErrIOFailure", ErrIOFailure},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrPatchMismatch", ErrPatchMismatch},
		{"ErrNotImplemented", ErrNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrNotFound(t *testing.T) {
	assert.Equal(t, "not found", ErrNotFound.Error())
	assert.True(t, errors.Is(ErrNotFound, ErrNotFound))
	assert.False(t, errors.Is(ErrNotFound, ErrVersionConflict))
}

func TestRecordError_WithVersion(t *testing.T) {
	err := NewRecordError("get", "alpha", 3, ErrNotFound)

	assert.Equal(t, "get alpha@v3: not found", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRecordError_WithoutVersion(t *testing.T) {
	err := NewRecordError("history", "alpha", 0, ErrNotFound)

	assert.Equal(t, "history alpha: not found", err.Error())
}

func TestRecordError_As(t *testing.T) {
	wrapped := fmt.Errorf("saving: %w", NewRecordError("commit", "alpha", 2, ErrVersionConflict))

	var recErr *RecordError
	assert.True(t, errors.As(wrapped, &recErr))
	assert.Equal(t, "alpha", recErr.Slug)
	assert.Equal(t, 2, recErr.Version)
	assert.True(t, errors.Is(wrapped, ErrVersionConflict))
}

func TestIOError_WrapsBoth(t *testing.T) {
	cause := errors.New("disk full")
	err := IOError("commit", "alpha", 4, cause)

	assert.True(t, errors.Is(err, ErrIOFailure))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "alpha@v4")
}

func TestCorruptError(t *testing.T) {
	err := CorruptError("get", "alpha", 1, "checksum mismatch")

	assert.True(t, errors.Is(err, ErrCorruptRecord))
	assert.Contains(t, err.Error(), "checksum mismatch")
}
