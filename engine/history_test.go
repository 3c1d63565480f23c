package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(client ClientID, amount string) TxRecord {
	return TxRecord{
		Client: client,
		Kind:   TxDeposit,
		Amount: decimal.RequireFromString(amount),
		State:  StateNormal,
	}
}

func TestHistory_InsertAndGet(t *testing.T) {
	h := NewHistory(0)

	h.Insert(1, record(1, "10.0"))
	h.Insert(2, record(2, "20.0"))

	assert.Equal(t, 2, h.Len())
	assert.True(t, h.Contains(1))

	rec, ok := h.Get(2)
	require.True(t, ok)
	assert.Equal(t, ClientID(2), rec.Client)

	_, ok = h.Get(3)
	assert.False(t, ok)
}

func TestHistory_EvictsOldestInserted(t *testing.T) {
	h := NewHistory(2)

	h.Insert(1, record(1, "10.0"))
	h.Insert(2, record(1, "20.0"))
	h.Insert(3, record(1, "30.0"))

	assert.Equal(t, 2, h.Len())
	assert.False(t, h.Contains(1), "oldest-inserted must be evicted")
	assert.True(t, h.Contains(2))
	assert.True(t, h.Contains(3))
}

func TestHistory_EvictionIgnoresDisputeActivity(t *testing.T) {
	// Not an LRU: touching a record through Get does not save it.
	h := NewHistory(2)

	h.Insert(1, record(1, "10.0"))
	h.Insert(2, record(1, "20.0"))

	rec, ok := h.Get(1)
	require.True(t, ok)
	rec.State = StateDisputed // an in-flight dispute

	h.Insert(3, record(1, "30.0"))
	assert.False(t, h.Contains(1), "disputed record evicts exactly as readily")
}

func TestHistory_MutationThroughGetPersists(t *testing.T) {
	h := NewHistory(0)
	h.Insert(1, record(1, "10.0"))

	rec, ok := h.Get(1)
	require.True(t, ok)
	rec.State = StateDisputed

	again, ok := h.Get(1)
	require.True(t, ok)
	assert.Equal(t, StateDisputed, again.State)
}

func TestHistory_UnboundedWhenZero(t *testing.T) {
	h := NewHistory(0)
	for tx := TxID(0); tx < 5000; tx++ {
		h.Insert(tx, record(1, "1.0"))
	}
	assert.Equal(t, 5000, h.Len())
	assert.Equal(t, 0, h.Cap())
}

func TestHistory_QueueCompacts(t *testing.T) {
	// Sustained eviction churn must not let the id queue grow without
	// bound; that would defeat the whole point of the cache.
	h := NewHistory(10)
	for tx := TxID(0); tx < 100_000; tx++ {
		h.Insert(tx, record(1, "1.0"))
	}

	assert.Equal(t, 10, h.Len())
	assert.LessOrEqual(t, len(h.order)-h.head, 10)
	assert.Less(t, len(h.order), 4096, "order queue must compact under churn")

	// The survivors are the 10 newest.
	for tx := TxID(99_990); tx < 100_000; tx++ {
		assert.True(t, h.Contains(tx))
	}
}
