package engine

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/jaminalder/hyperxo/internal/domain"
)

func mustParse(t *testing.T, s string) *domain.GameState {
	t.Helper()
	g, err := domain.ParsePosition(s)
	require.NoError(t, err)
	return g
}

// minimax is an unpruned reference search without a table.
func minimax(g *domain.GameState, me domain.Cell, depth int, maximizing bool) float64 {
	if depth == 0 || g.Resolved() {
		return Evaluate(g, me)
	}
	best := math.Inf(1)
	if maximizing {
		best = math.Inf(-1)
	}
	for _, m := range g.AvailableMoves() {
		child := g.Clone()
		if err := child.ApplyMove(m.Board, m.Cell); err != nil {
			panic(err)
		}
		score := minimax(child, me, depth-1, !maximizing)
		if maximizing {
			best = math.Max(best, score)
		} else {
			best = math.Min(best, score)
		}
	}
	return best
}

func randomPosition(r *rand.Rand, plies int) *domain.GameState {
	g := domain.New()
	for i := 0; i < plies; i++ {
		moves := g.AvailableMoves()
		if len(moves) == 0 {
			break
		}
		m := moves[r.Intn(len(moves))]
		if err := g.ApplyMove(m.Board, m.Cell); err != nil {
			panic(err)
		}
	}
	return g
}

func TestChooseMoveTakesImmediateWin(t *testing.T) {
	for _, depth := range []int{1, 2, 3} {
		g := mustParse(t, "XX......./........./........./........./........./........./........./.O......./.O....... X 0")
		e := New(domain.X, depth)
		move, err := e.ChooseMove(g)
		require.NoError(t, err)
		require.Equal(t, domain.Move{Board: 0, Cell: 2}, move, "depth %d", depth)
	}
}

func TestChooseMoveRespectsForcedBoard(t *testing.T) {
	g := domain.New()
	require.NoError(t, g.ApplyMove(0, 4))

	e := New(domain.O, 1)
	move, err := e.ChooseMove(g)
	require.NoError(t, err)
	require.Equal(t, 4, move.Board)
	require.Contains(t, g.AvailableMoves(), move)
}

func TestChooseMoveErrors(t *testing.T) {
	t.Run("wrong turn", func(t *testing.T) {
		_, err := New(domain.O, 2).ChooseMove(domain.New())
		require.True(t, errors.Is(err, ErrWrongTurn), "got %v", err)
	})

	t.Run("finished game", func(t *testing.T) {
		g := mustParse(t, "XXX....../XXX....../XXX....../OO......./OO......./OO......./OO......./........./......... O -")
		_, err := New(domain.O, 2).ChooseMove(g)
		require.True(t, errors.Is(err, ErrNoLegalMoves), "got %v", err)
	})
}

func TestZeroDepthFallsBackToFirstMove(t *testing.T) {
	g := domain.New()
	require.NoError(t, g.ApplyMove(4, 4))
	res, err := New(domain.O, 0).Search(g)
	require.NoError(t, err)
	require.Equal(t, g.AvailableMoves()[0], res.Move)
	require.Equal(t, 0, res.Depth)
}

func TestSearchDoesNotMutateState(t *testing.T) {
	g := domain.New()
	require.NoError(t, g.ApplyMove(0, 4))
	before, hash := g.Encode(), g.Hash()

	_, err := New(domain.O, 3).Search(g)
	require.NoError(t, err)
	require.Equal(t, before, g.Encode())
	require.Equal(t, hash, g.Hash())
}

func TestAlphaBetaMatchesMinimax(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 40; i++ {
		g := randomPosition(r, 8+r.Intn(30))
		if g.Resolved() {
			continue
		}
		me := g.CurrentPlayer()
		for depth := 1; depth <= 3; depth++ {
			if depth == 3 && len(g.AvailableMoves()) > 12 {
				continue
			}
			want := minimax(g, me, depth, true)

			e := New(me, depth)
			got, _, ok := e.alphaBeta(g, depth, math.Inf(-1), math.Inf(1), true)
			require.True(t, ok)
			require.InDelta(t, want, got, 1e-9, "position %q depth %d", g.Encode(), depth)

			res, err := New(me, depth).Search(g)
			require.NoError(t, err)
			require.InDelta(t, want, res.Score, 1e-9, "iterative search %q depth %d", g.Encode(), depth)
		}
	}
}

func TestSearchResearchesWhenWindowFails(t *testing.T) {
	// X's only move draws board 4 and sends O to board 2, which completes
	// O's top row. The shallow score sits far outside the window around it.
	g := mustParse(t, "OOO....../OOO....../OO......./X....X.../XO.XOOOXX/X....X.../X....X.../X....X.../......... X 4")
	require.Equal(t, []domain.Move{{Board: 4, Cell: 2}}, g.AvailableMoves())

	shallow, err := New(domain.X, 1).Search(g)
	require.NoError(t, err)
	require.Greater(t, shallow.Score, -WinScore+aspirationWindow)

	res, err := New(domain.X, 2).Search(g)
	require.NoError(t, err)
	require.Greater(t, res.Stats.Researches, uint64(0))
	require.Equal(t, domain.Move{Board: 4, Cell: 2}, res.Move)
	require.Equal(t, 2, res.Depth)
	require.InDelta(t, minimax(g, domain.X, 2, true), res.Score, 1e-9)
	require.InDelta(t, -WinScore, res.Score, 1e-9)
}

func TestSearchReportsPrincipalVariation(t *testing.T) {
	g := domain.New()
	require.NoError(t, g.ApplyMove(0, 4))
	res, err := New(domain.O, 3).Search(g)
	require.NoError(t, err)
	require.Equal(t, 3, res.Depth)
	require.NotEmpty(t, res.PV)
	require.Equal(t, res.Move, res.PV[0])
	require.Greater(t, res.Stats.Nodes, uint64(0))

	pos := g.Clone()
	for _, m := range res.PV {
		require.NoError(t, pos.ApplyMove(m.Board, m.Cell))
	}
}

func TestTableStoresRootEntry(t *testing.T) {
	g := domain.New()
	require.NoError(t, g.ApplyMove(0, 4))
	e := New(domain.O, 2)
	res, err := e.Search(g)
	require.NoError(t, err)

	entry, ok := e.Table().Probe(g.Hash())
	require.True(t, ok)
	require.Equal(t, 2, entry.Depth)
	require.Equal(t, Exact, entry.Bound)
	require.Equal(t, res.Move, entry.Move)

	again, err := e.Search(g)
	require.NoError(t, err)
	require.Equal(t, res.Move, again.Move)
	require.InDelta(t, res.Score, again.Score, 1e-9)
}

func TestEvaluateTerminalAndSymmetry(t *testing.T) {
	won := mustParse(t, "XXX....../XXX....../XXX....../OO......./OO......./OO......./OO......./........./......... O -")
	require.Equal(t, WinScore, Evaluate(won, domain.X))
	require.Equal(t, -WinScore, Evaluate(won, domain.O))

	r := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		g := randomPosition(r, r.Intn(60))
		require.InDelta(t, Evaluate(g, domain.X), -Evaluate(g, domain.O), 1e-9)
	}
}

func TestEvaluateDrawnBoardBlocksMacroLine(t *testing.T) {
	open := mustParse(t, "XXX....../XXX....../XOXXOOO../.O......./.O......./.O......./.O......./........./......... O -")
	blocked := mustParse(t, "XXX....../XXX....../XOXXOOOXX/.O......./.O......./.O......./.O......./.O......./.O....... O -")
	require.Greater(t, Evaluate(open, domain.X), Evaluate(blocked, domain.X))
}

func TestMoveHeuristicOrdering(t *testing.T) {
	// X to move on board 0: cell 2 completes the top row, cell 4 blocks O on the middle row.
	g := mustParse(t, "XX.O.O.../........./........./........./........./........./........./........./......... X 0")
	win := moveHeuristic(g, domain.Move{Board: 0, Cell: 2}, domain.X)
	block := moveHeuristic(g, domain.Move{Board: 0, Cell: 4}, domain.X)
	quiet := moveHeuristic(g, domain.Move{Board: 0, Cell: 8}, domain.X)
	require.Equal(t, orderLocalWin, win)
	require.Equal(t, orderLocalBlock, block)
	require.Less(t, quiet, block)

	e := New(domain.X, 1)
	ordered := e.orderMoves(g, domain.Move{}, false)
	require.Equal(t, domain.Move{Board: 0, Cell: 2}, ordered[0])
	require.Equal(t, domain.Move{Board: 0, Cell: 4}, ordered[1])

	pv := domain.Move{Board: 0, Cell: 7}
	ordered = e.orderMoves(g, pv, true)
	require.Equal(t, pv, ordered[0])
	require.Len(t, ordered, len(g.AvailableMoves()))
}

func TestBoundString(t *testing.T) {
	require.Equal(t, "exact", Exact.String())
	require.Equal(t, "lower", Lower.String())
	require.Equal(t, "upper", Upper.String())
}
