package dErrors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	err := New(CodeConflict, "already archived")
	assert.True(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(nil, CodeConflict))
	assert.False(t, HasCode(errors.New("plain"), CodeConflict))
}

func TestHasCodeThroughWrapping(t *testing.T) {
	inner := New(CodeNotFound, "no such record")
	wrapped := fmt.Errorf("restore: %w", inner)
	assert.True(t, HasCode(wrapped, CodeNotFound))
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("driver failure")))
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "bad kind")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "store unavailable")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, CodeOf(err))
}

func TestDetails(t *testing.T) {
	at := time.Date(2024, 5, 10, 8, 30, 0, 0, time.UTC)
	err := New(CodeGone, "account is archived").
		WithTimeDetail("archived_at", at).
		WithDetail("archived_by", "someone")

	details := DetailsOf(err)
	require.NotNil(t, details)
	assert.Equal(t, "2024-05-10T08:30:00Z", details["archived_at"])
	assert.Equal(t, "someone", details["archived_by"])

	assert.Nil(t, DetailsOf(errors.New("plain")))
}
