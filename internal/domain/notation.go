package domain

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidPosition is returned for malformed position strings.
var ErrInvalidPosition = errors.New("invalid position")

// Setup builds a game from raw cell contents. Sub-board and macro outcomes
// and the hash are recomputed; forced must be NoBoard or a live board.
// Positions no game can produce are rejected: a board or macro grid with
// lines for both players, or piece counts that disagree with the side to move.
func Setup(cells [9][9]Cell, turn Cell, forced int) (*GameState, error) {
	if turn != X && turn != O {
		return nil, errors.Wrapf(ErrInvalidPosition, "side to move %v", turn)
	}
	if forced < NoBoard || forced > 8 {
		return nil, errors.Wrapf(ErrOutOfRange, "forced board %d", forced)
	}
	g := &GameState{turn: turn, forced: forced, hasher: DefaultHasher()}
	nx, no := 0, 0
	for b := range cells {
		for c, v := range cells[b] {
			switch v {
			case X:
				nx++
			case O:
				no++
			case Empty:
			default:
				return nil, errors.Wrapf(ErrInvalidPosition, "board %d cell %d", b, c)
			}
		}
		if hasLine(&cells[b], X) && hasLine(&cells[b], O) {
			return nil, errors.Wrapf(ErrInvalidPosition, "board %d has lines for both players", b)
		}
		g.boards[b].Cells = cells[b]
		g.boards[b].update()
	}
	if (turn == X && nx != no) || (turn == O && nx != no+1) {
		return nil, errors.Wrapf(ErrInvalidPosition, "%d X and %d O pieces with %v to move", nx, no, turn)
	}
	summary := g.Summary()
	if macroLine(&summary, OutcomeX) && macroLine(&summary, OutcomeO) {
		return nil, errors.Wrap(ErrInvalidPosition, "macro grid has lines for both players")
	}
	g.updateMacro()
	if forced != NoBoard && !g.IsBoardLive(forced) {
		return nil, errors.Wrapf(ErrInvalidPosition, "forced board %d is resolved", forced)
	}
	g.hash = g.ComputeHash()
	return g, nil
}

func macroLine(summary *[9]Outcome, o Outcome) bool {
	for _, ln := range WinningLines {
		if summary[ln[0]] == o && summary[ln[1]] == o && summary[ln[2]] == o {
			return true
		}
	}
	return false
}

// Encode renders the position as "<b0>/.../<b8> <side> <forced>".
func (g *GameState) Encode() string {
	var sb strings.Builder
	for b := range g.boards {
		if b > 0 {
			sb.WriteByte('/')
		}
		for _, c := range g.boards[b].Cells {
			sb.WriteString(c.String())
		}
	}
	sb.WriteByte(' ')
	sb.WriteString(g.turn.String())
	sb.WriteByte(' ')
	if g.forced == NoBoard {
		sb.WriteByte('-')
	} else {
		sb.WriteString(strconv.Itoa(g.forced))
	}
	return sb.String()
}

// ParsePosition decodes a string produced by Encode.
func ParsePosition(s string) (*GameState, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return nil, errors.Wrapf(ErrInvalidPosition, "want 3 fields, got %d", len(fields))
	}
	rows := strings.Split(fields[0], "/")
	if len(rows) != 9 {
		return nil, errors.Wrapf(ErrInvalidPosition, "want 9 boards, got %d", len(rows))
	}
	var cells [9][9]Cell
	for b, row := range rows {
		if len(row) != 9 {
			return nil, errors.Wrapf(ErrInvalidPosition, "board %d has %d cells", b, len(row))
		}
		for c := 0; c < 9; c++ {
			v, err := parseCell(row[c])
			if err != nil {
				return nil, errors.Wrapf(err, "board %d cell %d", b, c)
			}
			cells[b][c] = v
		}
	}
	turn, err := parseCell(fields[1][0])
	if err != nil || turn == Empty || len(fields[1]) != 1 {
		return nil, errors.Wrapf(ErrInvalidPosition, "side to move %q", fields[1])
	}
	forced := NoBoard
	if fields[2] != "-" {
		forced, err = strconv.Atoi(fields[2])
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidPosition, "forced board %q", fields[2])
		}
	}
	return Setup(cells, turn, forced)
}

// String renders m as "board.cell".
func (m Move) String() string {
	return strconv.Itoa(m.Board) + "." + strconv.Itoa(m.Cell)
}

// ParseMove parses the "board.cell" form written by Move.String.
func ParseMove(s string) (Move, error) {
	b, c, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return Move{}, errors.Wrapf(ErrInvalidPosition, "move %q: want board.cell", s)
	}
	board, err1 := strconv.Atoi(b)
	cell, err2 := strconv.Atoi(c)
	if err1 != nil || err2 != nil || board < 0 || board > 8 || cell < 0 || cell > 8 {
		return Move{}, errors.Wrapf(ErrInvalidPosition, "move %q: indices must be 0..8", s)
	}
	return Move{Board: board, Cell: cell}, nil
}

func parseCell(b byte) (Cell, error) {
	switch b {
	case 'X', 'x':
		return X, nil
	case 'O', 'o':
		return O, nil
	case '.', '-':
		return Empty, nil
	}
	return Empty, errors.Wrapf(ErrInvalidPosition, "bad cell %q", b)
}

// Format renders the 9x9 grid as text, one sub-board row per line.
func Format(g *GameState) string {
	rows := make([]string, 0, 11)
	for bigRow := 0; bigRow < 3; bigRow++ {
		for smallRow := 0; smallRow < 3; smallRow++ {
			parts := make([]string, 3)
			for bigCol := 0; bigCol < 3; bigCol++ {
				b := &g.boards[bigRow*3+bigCol]
				trio := make([]string, 3)
				for i := 0; i < 3; i++ {
					v := b.Cells[smallRow*3+i]
					if v == Empty {
						trio[i] = " "
					} else {
						trio[i] = v.String()
					}
				}
				parts[bigCol] = strings.Join(trio, "|")
			}
			rows = append(rows, strings.Join(parts, " || "))
		}
		if bigRow < 2 {
			rows = append(rows, "====+=====+====")
		}
	}
	return strings.Join(rows, "\n")
}
