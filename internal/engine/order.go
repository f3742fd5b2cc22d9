package engine

import (
	"sort"

	"github.com/jaminalder/hyperxo/internal/domain"
)

const (
	orderLocalWin   = 1_000.0
	orderLocalBlock = 900.0

	sendOwnBoard    = 6.0
	sendDrawnBoard  = -3.0
	sendOwnThreat   = 1.5
	sendTheirThreat = 1.0

	geometryCenter = 0.4
	geometryCorner = 0.2
	geometryEdge   = 0.1
)

type scoredMove struct {
	move  domain.Move
	score float64
}

// orderMoves sorts the legal moves by heuristic, best first, and puts the
// principal-variation move in front when one is known.
func (e *Engine) orderMoves(g *domain.GameState, pv domain.Move, hasPV bool) []domain.Move {
	e.moveBuf = g.AppendMoves(e.moveBuf[:0])
	scored := make([]scoredMove, len(e.moveBuf))
	me := g.CurrentPlayer()
	for i, m := range e.moveBuf {
		scored[i] = scoredMove{move: m, score: moveHeuristic(g, m, me)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	pvFound := false
	if hasPV {
		for _, s := range scored {
			if s.move == pv {
				pvFound = true
				break
			}
		}
	}
	out := make([]domain.Move, 0, len(scored))
	if pvFound {
		out = append(out, pv)
	}
	for _, s := range scored {
		if pvFound && s.move == pv {
			continue
		}
		out = append(out, s.move)
	}
	return out
}

// moveHeuristic ranks a move for the side to move: local wins, then blocks,
// then where the move sends the opponent, then cell geometry.
func moveHeuristic(g *domain.GameState, m domain.Move, me domain.Cell) float64 {
	opp := me.Opponent()
	cells := &g.BoardAt(m.Board).Cells
	if completesLine(cells, me, m.Cell) {
		return orderLocalWin
	}
	if completesLine(cells, opp, m.Cell) {
		return orderLocalBlock
	}

	score := 0.0
	target := g.BoardAt(m.Cell)
	switch {
	case target.Winner == me:
		score += sendOwnBoard
	case target.Winner == opp:
		score -= sendOwnBoard
	case target.Drawn:
		score += sendDrawnBoard
	default:
		score += sendOwnThreat*float64(openTwos(&target.Cells, me)) -
			sendTheirThreat*float64(openTwos(&target.Cells, opp))
	}

	switch m.Cell {
	case 4:
		score += geometryCenter
	case 0, 2, 6, 8:
		score += geometryCorner
	default:
		score += geometryEdge
	}
	return score
}

// completesLine reports whether p playing cell would make three in a row.
func completesLine(cells *[9]domain.Cell, p domain.Cell, cell int) bool {
	if cells[cell] != domain.Empty {
		return false
	}
	for _, ln := range domain.WinningLines {
		if ln[0] != cell && ln[1] != cell && ln[2] != cell {
			continue
		}
		n, empty := 0, 0
		for _, i := range ln {
			switch cells[i] {
			case p:
				n++
			case domain.Empty:
				empty++
			}
		}
		if n == 2 && empty == 1 {
			return true
		}
	}
	return false
}

// openTwos counts lines with two of p's marks and one empty cell.
func openTwos(cells *[9]domain.Cell, p domain.Cell) int {
	count := 0
	for _, ln := range domain.WinningLines {
		n, empty := 0, 0
		for _, i := range ln {
			switch cells[i] {
			case p:
				n++
			case domain.Empty:
				empty++
			}
		}
		if n == 2 && empty == 1 {
			count++
		}
	}
	return count
}
