package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "VALIDATION_ERROR", KindValidation.String())
	assert.Equal(t, "NOT_FOUND", KindNotFound.String())
	assert.Equal(t, "CONFLICT", KindConflict.String())
	assert.Equal(t, "STORAGE_ERROR", KindStorage.String())
	assert.Equal(t, "INTEGRITY_FAULT", KindIntegrity.String())
	assert.Equal(t, "INTERNAL_ERROR", KindUnknown.String())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("title is required")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("gone")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))

	// The kind survives wrapping.
	wrapped := fmt.Errorf("handling request: %w", Conflict("stale"))
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindConflict))
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("open /data: permission denied")
	err := Storage("store document file", cause)

	assert.Equal(t, "store document file: open /data: permission denied", err.Error())
	assert.ErrorIs(t, err, cause)

	// Message never exposes the cause.
	assert.Equal(t, "store document file", Message(err))
	assert.Equal(t, "internal server error", Message(cause))
}

func TestValidationFormats(t *testing.T) {
	err := Validation("file exceeds maximum size of %d bytes", 1024)
	assert.Equal(t, "file exceeds maximum size of 1024 bytes", err.Msg)
}
