package engine

import "github.com/jaminalder/hyperxo/internal/domain"

// Bound says how a stored score relates to the true minimax value.
type Bound uint8

const (
	Exact Bound = iota
	Lower
	Upper
)

func (b Bound) String() string {
	switch b {
	case Exact:
		return "exact"
	case Lower:
		return "lower"
	case Upper:
		return "upper"
	default:
		return "unknown"
	}
}

// Entry is one transposition table record.
type Entry struct {
	Depth   int
	Score   float64
	Bound   Bound
	Move    domain.Move
	HasMove bool
}

// TranspositionTable caches search results by position hash. It belongs to a
// single Engine and is not safe for concurrent use.
//
// Growth is bounded by the number of distinct positions reachable within the
// engine's depth from the positions it is asked about, so nothing is evicted.
type TranspositionTable struct {
	entries map[uint64]Entry
}

// NewTranspositionTable returns an empty table with room for sizeHint entries.
func NewTranspositionTable(sizeHint int) *TranspositionTable {
	return &TranspositionTable{entries: make(map[uint64]Entry, sizeHint)}
}

// Probe looks up key.
func (t *TranspositionTable) Probe(key uint64) (Entry, bool) {
	e, ok := t.entries[key]
	return e, ok
}

// Store records e under key, replacing any previous entry.
func (t *TranspositionTable) Store(key uint64, e Entry) {
	t.entries[key] = e
}

// Len returns the number of stored positions.
func (t *TranspositionTable) Len() int { return len(t.entries) }

// Clear drops every entry.
func (t *TranspositionTable) Clear() {
	for k := range t.entries {
		delete(t.entries, k)
	}
}
