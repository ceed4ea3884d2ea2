package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInternalErrorCarriesCause(t *testing.T) {
	cause := fmt.Errorf("gob: type mismatch")

	err := NewInternalError("marshal edge", cause)
	require.NotNil(t, err)
	assert.True(t, IsInternal(err))
	assert.Equal(t, "marshal edge", err.Message)
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "caused by")
}

func TestNewNotFoundErrorFormatsResourceOnce(t *testing.T) {
	err := NewNotFoundError("curated relationship rel-1")
	assert.Equal(t, "curated relationship rel-1 not found", err.Message)
}

func TestWrapPreservesAppErrorType(t *testing.T) {
	inner := NewInvalidArgumentError("bad weight")
	wrapped := Wrap(inner, "record signal")
	require.True(t, IsInvalidArgument(wrapped))
	assert.Equal(t, "record signal: bad weight", GetAppError(wrapped).Message)

	plain := Wrap(fmt.Errorf("disk full"), "append signal")
	assert.True(t, IsInternal(plain))
	assert.True(t, errors.Is(plain, GetAppError(plain).Cause))
}
