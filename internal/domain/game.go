package domain

import "github.com/pkg/errors"

// NoBoard marks a free choice of sub-board.
const NoBoard = -1

// Move addresses a cell of a sub-board.
type Move struct {
	Board int
	Cell  int
}

// Errors returned by game operations.
var (
	ErrGameFinished = errors.New("game already finished")
	ErrIllegalMove  = errors.New("illegal move")
)

// GameState holds nine sub-boards plus the macro state of a HyperXO match.
// It is mutated only through ApplyMove.
type GameState struct {
	boards [9]SmallBoard
	turn   Cell
	forced int
	winner Cell
	drawn  bool
	hash   uint64
	hasher *Hasher
}

// New returns an empty game with X to move, hashed with the default keys.
func New() *GameState {
	return NewWithHasher(DefaultHasher())
}

// NewWithHasher returns an empty game hashed with h.
func NewWithHasher(h *Hasher) *GameState {
	g := &GameState{turn: X, forced: NoBoard, hasher: h}
	g.hash = g.ComputeHash()
	return g
}

// Clone returns an independent copy sharing only the Hasher.
func (g *GameState) Clone() *GameState {
	c := *g
	return &c
}

// CurrentPlayer returns the side to move.
func (g *GameState) CurrentPlayer() Cell { return g.turn }

// ForcedBoard returns the board the current player must use, if any.
func (g *GameState) ForcedBoard() (int, bool) {
	return g.forced, g.forced != NoBoard
}

// Winner returns the macro winner, Empty while undecided.
func (g *GameState) Winner() Cell { return g.winner }

// Drawn reports a macro draw.
func (g *GameState) Drawn() bool { return g.drawn }

// Resolved reports whether the game is won or drawn.
func (g *GameState) Resolved() bool { return g.winner != Empty || g.drawn }

// Hash returns the incrementally maintained position hash.
func (g *GameState) Hash() uint64 { return g.hash }

// Hasher returns the key table the hash is built from.
func (g *GameState) Hasher() *Hasher { return g.hasher }

// Board returns a copy of sub-board i.
func (g *GameState) Board(i int) SmallBoard { return g.boards[i] }

// BoardAt returns a read-only view of sub-board i without copying.
func (g *GameState) BoardAt(i int) *SmallBoard { return &g.boards[i] }

// Summary returns the macro grid of sub-board outcomes.
func (g *GameState) Summary() [9]Outcome {
	var out [9]Outcome
	for i := range g.boards {
		out[i] = g.boards[i].Outcome()
	}
	return out
}

// ComputeHash recomputes the position hash from scratch.
func (g *GameState) ComputeHash() uint64 {
	return g.hasher.Compute(&g.boards, g.turn, g.forced)
}

// IsBoardLive reports whether sub-board i still accepts moves.
func (g *GameState) IsBoardLive(i int) bool {
	return !g.boards[i].Resolved()
}

// AvailableMoves lists the legal moves, boards ascending then cells ascending.
func (g *GameState) AvailableMoves() []Move {
	return g.AppendMoves(nil)
}

// AppendMoves appends the legal moves to dst.
func (g *GameState) AppendMoves(dst []Move) []Move {
	if g.Resolved() {
		return dst
	}
	if g.forced != NoBoard && g.IsBoardLive(g.forced) {
		return appendBoardMoves(dst, g.forced, &g.boards[g.forced])
	}
	for i := range g.boards {
		if g.IsBoardLive(i) {
			dst = appendBoardMoves(dst, i, &g.boards[i])
		}
	}
	return dst
}

func appendBoardMoves(dst []Move, board int, b *SmallBoard) []Move {
	for c, v := range b.Cells {
		if v == Empty {
			dst = append(dst, Move{Board: board, Cell: c})
		}
	}
	return dst
}

// ApplyMove plays the current player's mark at (board, cell).
// The state is left untouched when an error is returned.
func (g *GameState) ApplyMove(board, cell int) error {
	if g.Resolved() {
		return ErrGameFinished
	}
	if board < 0 || board > 8 || cell < 0 || cell > 8 {
		return errors.Wrapf(ErrOutOfRange, "move (%d, %d)", board, cell)
	}
	if g.forced != NoBoard && g.IsBoardLive(g.forced) && board != g.forced {
		return errors.Wrapf(ErrIllegalMove, "must play on board %d", g.forced)
	}
	target := &g.boards[board]
	if target.Resolved() {
		return errors.Wrapf(ErrIllegalMove, "board %d is resolved", board)
	}
	if target.Cells[cell] != Empty {
		return errors.Wrapf(ErrIllegalMove, "board %d cell %d is occupied", board, cell)
	}
	if err := target.Place(cell, g.turn); err != nil {
		return err
	}

	h := g.hasher
	g.hash ^= h.Forced(g.forced)
	g.hash ^= h.Piece(board, cell, g.turn)

	g.updateMacro()
	g.forced = NoBoard
	if g.IsBoardLive(cell) {
		g.forced = cell
	}
	g.hash ^= h.Forced(g.forced)

	g.turn = g.turn.Opponent()
	g.hash ^= h.SideToMove()
	return nil
}

// updateMacro recomputes the macro outcome. A drawn sub-board blocks every
// line through it; an open one keeps the line alive.
func (g *GameState) updateMacro() {
	summary := g.Summary()
	g.winner = Empty
	for _, ln := range WinningLines {
		a := summary[ln[0]]
		if (a == OutcomeX || a == OutcomeO) && a == summary[ln[1]] && a == summary[ln[2]] {
			g.winner = a.Player()
			g.drawn = false
			return
		}
	}
	for _, o := range summary {
		if o == OutcomeOpen {
			g.drawn = false
			return
		}
	}
	g.drawn = true
}
