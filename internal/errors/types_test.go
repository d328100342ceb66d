package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewEmbeddingProviderError(cause)

	assert.Equal(t, "embedding provider call failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusBadGateway, err.HTTPCode)
}

func TestIsCode(t *testing.T) {
	err := NewStoreIOError("write", errors.New("disk full"))

	assert.True(t, IsCode(err, ErrCodeStoreIO))
	assert.False(t, IsCode(err, ErrCodeEmbeddingProvider))

	// 被包装后依然能识别
	wrapped := fmt.Errorf("add failed: %w", err)
	assert.True(t, IsCode(wrapped, ErrCodeStoreIO))

	assert.False(t, IsCode(errors.New("plain"), ErrCodeStoreIO))
	assert.False(t, IsCode(nil, ErrCodeStoreIO))
}

func TestGetAppError(t *testing.T) {
	appErr := NewUnsupportedFileTypeError(".exe")
	assert.Same(t, appErr, GetAppError(appErr))
	assert.Contains(t, appErr.Message, ".exe")
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPCode)

	// 普通error被包装为系统错误
	plain := errors.New("boom")
	got := GetAppError(plain)
	require.NotNil(t, got)
	assert.Equal(t, ErrCodeInternalServer, got.Code)
	assert.ErrorIs(t, got, plain)
}

func TestDegenerateVectorError(t *testing.T) {
	err := NewDegenerateVectorError()
	assert.Equal(t, ErrCodeDegenerateVector, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPCode)
}
