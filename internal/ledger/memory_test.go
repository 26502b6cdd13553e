package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedgerTransfer(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	l.Mint("alice", 100)

	require.NoError(t, l.Transfer(ctx, 40, "alice", "bob"))
	assert.Equal(t, uint64(60), l.Balance("alice"))
	assert.Equal(t, uint64(40), l.Balance("bob"))

	err := l.Transfer(ctx, 61, "alice", "bob")
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, uint64(60), l.Balance("alice"), "failed transfer moves nothing")
	assert.Equal(t, uint64(40), l.Balance("bob"))

	require.NoError(t, l.Transfer(ctx, 60, "alice", "bob"), "full balance is transferable")
	assert.Zero(t, l.Balance("alice"))
}

func TestMemoryLedgerClock(t *testing.T) {
	l := NewMemoryLedger()
	assert.Zero(t, l.CurrentTimeIndex())

	l.Advance(10)
	assert.Equal(t, uint64(10), l.CurrentTimeIndex())

	l.AdvanceTo(25)
	assert.Equal(t, uint64(25), l.CurrentTimeIndex())

	l.AdvanceTo(5)
	assert.Equal(t, uint64(25), l.CurrentTimeIndex(), "clock never moves backward")
}
