package engine

import (
	"math"

	"github.com/jaminalder/hyperxo/internal/domain"
)

// alphaBeta is fail-soft minimax with alpha-beta pruning. Scores are from the
// engine's point of view; maximizing is true when the engine is to move.
func (e *Engine) alphaBeta(g *domain.GameState, depth int, alpha, beta float64, maximizing bool) (float64, domain.Move, bool) {
	e.stats.Nodes++
	if depth == 0 || g.Resolved() {
		return Evaluate(g, e.player), domain.Move{}, false
	}

	key := g.Hash()
	alphaOrig, betaOrig := alpha, beta
	entry, hit := e.tt.Probe(key)
	if hit && entry.Depth >= depth {
		e.stats.TTHits++
		switch entry.Bound {
		case Exact:
			return entry.Score, entry.Move, entry.HasMove
		case Lower:
			alpha = math.Max(alpha, entry.Score)
		case Upper:
			beta = math.Min(beta, entry.Score)
		}
		if alpha >= beta {
			return entry.Score, entry.Move, entry.HasMove
		}
	}

	moves := e.orderMoves(g, entry.Move, hit && entry.HasMove)

	var (
		best  domain.Move
		found bool
		value float64
	)
	if maximizing {
		value = math.Inf(-1)
		for _, m := range moves {
			child := g.Clone()
			if err := child.ApplyMove(m.Board, m.Cell); err != nil {
				continue
			}
			score, _, _ := e.alphaBeta(child, depth-1, alpha, beta, false)
			if !found || score > value {
				value, best, found = score, m, true
			}
			alpha = math.Max(alpha, value)
			if alpha >= beta {
				e.stats.Cutoffs++
				break
			}
		}
	} else {
		value = math.Inf(1)
		for _, m := range moves {
			child := g.Clone()
			if err := child.ApplyMove(m.Board, m.Cell); err != nil {
				continue
			}
			score, _, _ := e.alphaBeta(child, depth-1, alpha, beta, true)
			if !found || score < value {
				value, best, found = score, m, true
			}
			beta = math.Min(beta, value)
			if alpha >= beta {
				e.stats.Cutoffs++
				break
			}
		}
	}

	bound := Exact
	switch {
	case value <= alphaOrig:
		bound = Upper
	case value >= betaOrig:
		bound = Lower
	}
	e.tt.Store(key, Entry{Depth: depth, Score: value, Bound: bound, Move: best, HasMove: found})
	return value, best, found
}
