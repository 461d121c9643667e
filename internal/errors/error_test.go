package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      error
		aborting bool
	}{
		{"connection", NewConnectionError(cause), true},
		{"mailbox", NewMailboxError("INBOX", cause), true},
		{"search", NewSearchError(cause), true},
		{"parse", NewParseError(7, cause), false},
		{"delivery", NewDeliveryError(7, 500, cause), false},
		{"flag", NewFlagError(7, cause), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.aborting, IsCycleAborting(tt.err))
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	cause := errors.New("boom")

	assert.True(t, IsConnectionError(NewConnectionError(cause)))
	assert.True(t, IsMailboxError(NewMailboxError("INBOX", cause)))
	assert.True(t, IsSearchError(NewSearchError(cause)))
	assert.True(t, IsParseError(NewParseError(1, cause)))
	assert.True(t, IsDeliveryError(NewDeliveryError(1, 502, cause)))
	assert.True(t, IsFlagError(NewFlagError(1, cause)))

	// Each predicate only matches its own type
	assert.False(t, IsConnectionError(NewSearchError(cause)))
	assert.False(t, IsDeliveryError(NewFlagError(1, cause)))
	assert.False(t, IsParseError(cause))
}

func TestErrorPredicatesSeeThroughWrapping(t *testing.T) {
	cause := errors.New("boom")
	wrapped := fmt.Errorf("cycle failed: %w", NewDeliveryError(9, 503, cause))

	assert.True(t, IsDeliveryError(wrapped))
	assert.False(t, IsCycleAborting(wrapped))

	var deliveryErr *DeliveryError
	require.True(t, errors.As(wrapped, &deliveryErr))
	assert.Equal(t, uint32(9), deliveryErr.UID)
	assert.Equal(t, 503, deliveryErr.StatusCode)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := NewConnectionError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "imap connection failed")
}

func TestDeliveryErrorMessageIncludesStatus(t *testing.T) {
	withStatus := NewDeliveryError(3, 500, errors.New("server error"))
	assert.Contains(t, withStatus.Error(), "status 500")

	withoutStatus := NewDeliveryError(3, 0, errors.New("connection refused"))
	assert.NotContains(t, withoutStatus.Error(), "status")
}
