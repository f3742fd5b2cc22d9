package domain

import "sync"

// DefaultSeed seeds the process-wide Hasher.
const DefaultSeed uint64 = 0x9E3779B97F4A7C15

// freeKey indexes the forced-board key used when the next board is free.
const freeKey = 9

// Hasher holds the immutable Zobrist keys for a position hash.
type Hasher struct {
	pieces [9][9][2]uint64
	side   uint64
	forced [10]uint64
}

var (
	defaultOnce   sync.Once
	defaultHasher *Hasher
)

// DefaultHasher returns the shared Hasher built from DefaultSeed.
func DefaultHasher() *Hasher {
	defaultOnce.Do(func() {
		defaultHasher = NewHasher(DefaultSeed)
	})
	return defaultHasher
}

// NewHasher generates a key table from seed using splitmix64.
func NewHasher(seed uint64) *Hasher {
	next := func() uint64 {
		seed += 0x9E3779B97F4A7C15
		z := seed
		z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
		z = (z ^ (z >> 27)) * 0x94D049BB133111EB
		return z ^ (z >> 31)
	}
	h := &Hasher{}
	for b := 0; b < 9; b++ {
		for c := 0; c < 9; c++ {
			h.pieces[b][c][0] = next()
			h.pieces[b][c][1] = next()
		}
	}
	h.side = next()
	for i := range h.forced {
		h.forced[i] = next()
	}
	return h
}

// Piece returns the key for p occupying cell of board.
func (h *Hasher) Piece(board, cell int, p Cell) uint64 {
	switch p {
	case X:
		return h.pieces[board][cell][0]
	case O:
		return h.pieces[board][cell][1]
	default:
		return 0
	}
}

// SideToMove is folded in while O is to move.
func (h *Hasher) SideToMove() uint64 {
	return h.side
}

// Forced returns the key for a forced board, or the free key for NoBoard.
func (h *Hasher) Forced(board int) uint64 {
	if board < 0 || board > 8 {
		return h.forced[freeKey]
	}
	return h.forced[board]
}

// Compute hashes a position from scratch.
func (h *Hasher) Compute(boards *[9]SmallBoard, turn Cell, forced int) uint64 {
	var key uint64
	for b := range boards {
		for c, p := range boards[b].Cells {
			if p != Empty {
				key ^= h.Piece(b, c, p)
			}
		}
	}
	if turn == O {
		key ^= h.side
	}
	return key ^ h.Forced(forced)
}
