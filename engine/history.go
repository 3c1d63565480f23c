/*
history.go - Bounded, insertion-ordered transaction history cache

PURPOSE:
  Remembers accepted deposits and withdrawals so the dispute family can
  find them later, without letting sustained load grow memory without
  bound. When the cache is full, the oldest-inserted record is evicted,
  full stop.

CRITICAL INVARIANTS:
  1. A transaction id appears at most once at any instant
  2. Eviction order is insertion order - this is NOT an LRU. A record
     referenced by a dispute yesterday is evicted exactly as readily as
     one nobody ever touched again
  3. Eviction is a hard delete: no tombstone, no resurrection. An
     in-flight dispute against a just-evicted record simply becomes
     unresolvable (documented limitation, not a crash condition)

CONCURRENCY:
  Not safe for concurrent use on its own. The engine serializes all
  access under its apply lock; History never needs its own.

SEE ALSO:
  - engine.go: the only caller
*/
package engine

// History is the bounded transaction cache. All operations are O(1)
// (insert amortized: the id queue compacts lazily).
type History struct {
	records map[TxID]*TxRecord
	order   []TxID // insertion order; evicted ids remain until compaction
	head    int    // index of the oldest live entry in order
	max     int    // 0 means unbounded
}

// NewHistory creates a cache holding at most max records. max <= 0 means
// unbounded.
func NewHistory(max int) *History {
	if max < 0 {
		max = 0
	}
	return &History{
		records: make(map[TxID]*TxRecord),
		max:     max,
	}
}

// Len returns the number of live records.
func (h *History) Len() int {
	return len(h.records)
}

// Cap returns the configured capacity, 0 if unbounded.
func (h *History) Cap() int {
	return h.max
}

// Contains reports whether tx is currently in the cache.
func (h *History) Contains(tx TxID) bool {
	_, ok := h.records[tx]
	return ok
}

// Get returns the record for tx. The pointer is live: dispute-family
// transitions mutate State through it.
func (h *History) Get(tx TxID) (*TxRecord, bool) {
	rec, ok := h.records[tx]
	return rec, ok
}

// Insert adds a record for tx, evicting the oldest-inserted record
// first if the cache is at capacity. The caller must have established
// that tx is not already present.
func (h *History) Insert(tx TxID, rec TxRecord) {
	if h.max > 0 && len(h.records) >= h.max {
		h.evictOldest()
	}
	r := rec
	h.records[tx] = &r
	h.order = append(h.order, tx)
}

func (h *History) evictOldest() {
	if h.head >= len(h.order) {
		return
	}
	delete(h.records, h.order[h.head])
	h.head++
	h.compact()
}

// compact reclaims the consumed prefix of the order queue once it
// dominates the slice. Keeps Insert amortized O(1) without letting the
// queue grow past ~2x the live set.
func (h *History) compact() {
	if h.head > len(h.order)/2 && h.head > 1024 {
		h.order = append(h.order[:0:0], h.order[h.head:]...)
		h.head = 0
	}
}
