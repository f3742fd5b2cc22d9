package domain

import "github.com/pkg/errors"

// Cell represents a board cell state.
type Cell uint8

const (
	Empty Cell = iota
	X
	O
)

func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return "."
	}
}

// Opponent returns the other player; Empty for Empty.
func (c Cell) Opponent() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

// Outcome summarises a sub-board for the macro grid.
type Outcome uint8

const (
	OutcomeOpen Outcome = iota
	OutcomeX
	OutcomeO
	OutcomeDrawn
)

func (o Outcome) String() string {
	switch o {
	case OutcomeX:
		return "X"
	case OutcomeO:
		return "O"
	case OutcomeDrawn:
		return "#"
	default:
		return "."
	}
}

// Player returns the owner of a won outcome, Empty otherwise.
func (o Outcome) Player() Cell {
	switch o {
	case OutcomeX:
		return X
	case OutcomeO:
		return O
	default:
		return Empty
	}
}

func outcomeFor(p Cell) Outcome {
	if p == X {
		return OutcomeX
	}
	return OutcomeO
}

// WinningLines lists the eight triples in scan order: rows, columns, diagonals.
var WinningLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Errors returned by board operations.
var (
	ErrOutOfRange      = errors.New("index out of range")
	ErrCellOccupied    = errors.New("cell occupied")
	ErrAlreadyResolved = errors.New("board already resolved")
)

// SmallBoard is a single 3x3 board stored row-major.
type SmallBoard struct {
	Cells  [9]Cell
	Winner Cell
	Drawn  bool
}

// Resolved reports whether the board has a winner or is drawn.
func (b *SmallBoard) Resolved() bool {
	return b.Winner != Empty || b.Drawn
}

// Outcome returns the board's macro-grid symbol.
func (b *SmallBoard) Outcome() Outcome {
	switch {
	case b.Winner != Empty:
		return outcomeFor(b.Winner)
	case b.Drawn:
		return OutcomeDrawn
	default:
		return OutcomeOpen
	}
}

// Place puts p on cell and recomputes the board outcome.
func (b *SmallBoard) Place(cell int, p Cell) error {
	if b.Resolved() {
		return ErrAlreadyResolved
	}
	if cell < 0 || cell > 8 {
		return errors.Wrapf(ErrOutOfRange, "cell %d", cell)
	}
	if b.Cells[cell] != Empty {
		return errors.Wrapf(ErrCellOccupied, "cell %d", cell)
	}
	b.Cells[cell] = p
	b.update()
	return nil
}

// AvailableCells returns the open cells in ascending order, none once resolved.
func (b *SmallBoard) AvailableCells() []int {
	if b.Resolved() {
		return nil
	}
	out := make([]int, 0, 9)
	for i, c := range b.Cells {
		if c == Empty {
			out = append(out, i)
		}
	}
	return out
}

func (b *SmallBoard) update() {
	b.Winner = lineWinner(&b.Cells)
	if b.Winner != Empty {
		b.Drawn = false
		return
	}
	for _, c := range b.Cells {
		if c == Empty {
			b.Drawn = false
			return
		}
	}
	b.Drawn = true
}

func hasLine(cells *[9]Cell, p Cell) bool {
	for _, ln := range WinningLines {
		if cells[ln[0]] == p && cells[ln[1]] == p && cells[ln[2]] == p {
			return true
		}
	}
	return false
}

func lineWinner(cells *[9]Cell) Cell {
	for _, ln := range WinningLines {
		a := cells[ln[0]]
		if a != Empty && a == cells[ln[1]] && a == cells[ln[2]] {
			return a
		}
	}
	return Empty
}
