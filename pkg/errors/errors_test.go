package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := Wrap(errors.New("db down"), ErrNotFound.Code, ErrNotFound.Status, "room not found")
	got := FromError(wrapped)
	assert.Same(t, wrapped, got)
	assert.Equal(t, "room not found: db down", got.Error())

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)
	assert.Nil(t, FromError(nil))
}

func TestCloneAndWithDetailsDoNotMutateSentinels(t *testing.T) {
	cloned := Clone(ErrValidation, "capacity must be positive")
	assert.Equal(t, "capacity must be positive", cloned.Message)
	assert.Equal(t, "validation failed", ErrValidation.Message)

	detailed := WithDetails(ErrSchedulerConfiguration, []string{"unknown teacher T9"})
	assert.Equal(t, []string{"unknown teacher T9"}, detailed.Details)
	assert.Nil(t, ErrSchedulerConfiguration.Details)
	assert.Nil(t, WithDetails(nil, "x"))
}

func TestUnwrapSupportsErrorsIs(t *testing.T) {
	cause := errors.New("cause")
	err := Wrap(cause, ErrInternal.Code, ErrInternal.Status, "failed")
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(ErrCacheMiss, ErrCacheMiss))
}
