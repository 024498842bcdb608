package errkind

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UnwrapsToKind(t *testing.T) {
	errGone := New(ErrNotFound, "auction not found")
	wrapped := fmt.Errorf("get auction 3: %w", errGone)

	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.ErrorIs(t, wrapped, errGone)
	assert.NotErrorIs(t, wrapped, ErrStateConflict)
	assert.Equal(t, "get auction 3: auction not found", wrapped.Error())
	assert.Equal(t, ErrNotFound, Of(wrapped))
}

func TestTransfer(t *testing.T) {
	require.NoError(t, Transfer(nil))

	cause := errors.New("recipient rejected")
	err := Transfer(cause)
	assert.ErrorIs(t, err, ErrTransferFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrTransferFailed, Of(err))

	// already a transfer failure: not wrapped twice
	insufficient := New(ErrTransferFailed, "insufficient balance")
	assert.Same(t, insufficient, Transfer(insufficient))
}

func TestOf_TransferWinsOverCause(t *testing.T) {
	err := Transfer(New(ErrNotFound, "instrument missing"))
	assert.Equal(t, ErrTransferFailed, Of(err))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOf_Unclassified(t *testing.T) {
	assert.Nil(t, Of(errors.New("boom")))
	assert.Nil(t, Of(nil))
}
