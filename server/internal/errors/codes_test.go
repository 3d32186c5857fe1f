package errors

import (
	"fmt"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := NotFound("session not found")
	assert.Equal(t, "[NOT_FOUND] session not found", err.Error())

	wrapped := StoreFailure("failed to persist turn", pkgerrors.New("disk full"))
	assert.Equal(t, "[STORE_FAILURE] failed to persist turn: disk full", wrapped.Error())
}

func TestIsCode(t *testing.T) {
	err := Unauthorized("nope")
	assert.True(t, IsCode(err, ErrCodeUnauthorized))
	assert.False(t, IsCode(err, ErrCodeNotFound))

	// Codes survive wrapping.
	outer := fmt.Errorf("handler: %w", err)
	assert.True(t, IsCode(outer, ErrCodeUnauthorized))

	assert.False(t, IsCode(pkgerrors.New("plain"), ErrCodeUnauthorized))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeTimeout, CodeOf(Timeout("too slow"), ErrCodeStoreFailure))
	assert.Equal(t, ErrCodeStoreFailure, CodeOf(pkgerrors.New("plain"), ErrCodeStoreFailure))
}

func TestUnwrap(t *testing.T) {
	cause := pkgerrors.New("root cause")
	err := Wrap(cause, ErrCodeLLMUnavailable, "completion failed")
	assert.ErrorIs(t, err, cause)
}
