package engine

import (
	"math"

	"github.com/jaminalder/hyperxo/internal/domain"
)

const (
	// WinScore dominates every heuristic term.
	WinScore = 10_000.0

	macroCenterBonus = 0.6
	macroCornerBonus = 0.3
	boardWonBonus    = 20.0
	lineOneBonus     = 1.0
	lineTwoBonus     = 5.0
	microCenterBonus = 0.3
)

var macroCorners = [4]int{0, 2, 6, 8}

// Evaluate scores g from me's point of view.
func Evaluate(g *domain.GameState, me domain.Cell) float64 {
	opp := me.Opponent()
	switch {
	case g.Winner() == me:
		return WinScore
	case g.Winner() == opp:
		return -WinScore
	case g.Drawn():
		return 0
	}

	mine, theirs := domain.OutcomeX, domain.OutcomeO
	if me == domain.O {
		mine, theirs = theirs, mine
	}

	score := 0.0
	summary := g.Summary()
	for _, ln := range domain.WinningLines {
		m, o, blocked := 0, 0, false
		for _, i := range ln {
			switch summary[i] {
			case mine:
				m++
			case theirs:
				o++
			case domain.OutcomeDrawn:
				blocked = true
			}
		}
		if blocked || (m > 0 && o > 0) {
			continue
		}
		if m > 0 {
			score += math.Pow(4, float64(m))
		}
		if o > 0 {
			score -= math.Pow(4, float64(o))
		}
	}

	score += outcomeSign(summary[4], mine, theirs) * macroCenterBonus
	for _, k := range macroCorners {
		score += outcomeSign(summary[k], mine, theirs) * macroCornerBonus
	}

	for i := 0; i < 9; i++ {
		b := g.BoardAt(i)
		switch {
		case b.Winner == me:
			score += boardWonBonus
			continue
		case b.Winner == opp:
			score -= boardWonBonus
			continue
		case b.Drawn:
			continue
		}
		score += linePotential(&b.Cells, me, opp) - linePotential(&b.Cells, opp, me)
		switch b.Cells[4] {
		case me:
			score += microCenterBonus
		case opp:
			score -= microCenterBonus
		}
	}
	return score
}

func outcomeSign(o, mine, theirs domain.Outcome) float64 {
	switch o {
	case mine:
		return 1
	case theirs:
		return -1
	}
	return 0
}

// linePotential rewards lines holding only p's marks.
func linePotential(cells *[9]domain.Cell, p, opp domain.Cell) float64 {
	score := 0.0
	for _, ln := range domain.WinningLines {
		n := 0
		open := true
		for _, i := range ln {
			switch cells[i] {
			case p:
				n++
			case opp:
				open = false
			}
		}
		if !open {
			continue
		}
		switch n {
		case 1:
			score += lineOneBonus
		case 2:
			score += lineTwoBonus
		}
	}
	return score
}
