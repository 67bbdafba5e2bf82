package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	e := New(ErrCodeRiskNotFound, "risk not found")
	assert.Equal(t, "[RISK_001] risk not found", e.Error())

	withDetail := e.WithDetail("id=42")
	assert.Equal(t, "[RISK_001] risk not found: id=42", withDetail.Error())
	// WithDetail must not mutate the receiver.
	assert.Empty(t, e.Detail)
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeDatabaseError, "query"))

	cause := stderrors.New("connection refused")
	wrapped := Wrap(cause, ErrCodeDatabaseError, "query risks")
	require.NotNil(t, wrapped)
	assert.True(t, stderrors.Is(wrapped, cause))
	assert.Equal(t, ErrCodeDatabaseError, wrapped.Code)
}

func TestWrap_PreservesCodeForUnknown(t *testing.T) {
	inner := New(ErrCodeScanSuperseded, "stale scan token")
	outer := Wrap(inner, CodeUnknown, "delivering result")
	assert.Equal(t, ErrCodeScanSuperseded, outer.Code)
}

func TestIsCode(t *testing.T) {
	inner := New(ErrCodeEmbeddingFailed, "embed call failed")
	outer := fmt.Errorf("scan: %w", inner)

	assert.True(t, IsCode(outer, ErrCodeEmbeddingFailed))
	assert.False(t, IsCode(outer, ErrCodeRiskNotFound))
	assert.False(t, IsCode(nil, ErrCodeEmbeddingFailed))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(New(ErrCodeRiskNotFound, "nope")))
	assert.True(t, IsNotFound(NotFound("nope")))
	assert.False(t, IsNotFound(New(ErrCodeValidation, "bad")))
	assert.False(t, IsNotFound(stderrors.New("plain")))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(NewValidationError("likelihood", "must be 1..5")))
	assert.True(t, IsValidation(InvalidParam("bad limit")))
	assert.False(t, IsValidation(Upstream("embedding service down")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOK, GetCode(nil))
	assert.Equal(t, CodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, ErrCodeCorpusUnavailable, GetCode(New(ErrCodeCorpusUnavailable, "db down")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrCodeFactorOutOfRange))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrCodeRiskNotFound))
	assert.Equal(t, http.StatusConflict, HTTPStatus(ErrCodeScanSuperseded))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(ErrCodeEmbeddingFailed))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(ErrorCode("bogus")))
}
