package engine

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jaminalder/hyperxo/internal/domain"
)

// aspirationWindow is the half-width of the window around the previous
// iteration's score.
const aspirationWindow = 50.0

// Errors returned by the engine.
var (
	ErrWrongTurn    = errors.New("not this engine's turn")
	ErrNoLegalMoves = errors.New("no legal moves")
)

// Stats counts search work since the last Search call.
type Stats struct {
	Nodes      uint64
	TTHits     uint64
	Cutoffs    uint64
	Researches uint64
}

// Result describes the outcome of a Search.
type Result struct {
	Move    domain.Move
	Score   float64
	Depth   int
	PV      []domain.Move
	Stats   Stats
	Elapsed time.Duration
}

// Engine picks moves for one side with iterative-deepening alpha-beta.
// An Engine is not safe for concurrent use; give each game its own.
type Engine struct {
	player domain.Cell
	depth  int
	tt     *TranspositionTable
	log    zerolog.Logger

	stats   Stats
	moveBuf []domain.Move
}

// Option configures an Engine.
type Option func(e *Engine)

// WithLogger routes per-iteration search logs to l.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithTableSize presizes the transposition table.
func WithTableSize(n int) Option {
	return func(e *Engine) {
		e.tt = NewTranspositionTable(n)
	}
}

// New returns an engine playing player, searching depth plies.
func New(player domain.Cell, depth int, opts ...Option) *Engine {
	e := &Engine{
		player:  player,
		depth:   depth,
		log:     zerolog.Nop(),
		moveBuf: make([]domain.Move, 0, 81),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tt == nil {
		e.tt = NewTranspositionTable(1 << 12)
	}
	return e
}

// Player returns the side the engine plays.
func (e *Engine) Player() domain.Cell { return e.player }

// Depth returns the maximum search depth.
func (e *Engine) Depth() int { return e.depth }

// Table exposes the engine's transposition table.
func (e *Engine) Table() *TranspositionTable { return e.tt }

// ChooseMove returns the move the engine wants to play in g.
func (e *Engine) ChooseMove(g *domain.GameState) (domain.Move, error) {
	res, err := e.Search(g)
	if err != nil {
		return domain.Move{}, err
	}
	return res.Move, nil
}

// Search runs iterative deepening from ply 1 to the engine depth and reports
// the best move of the deepest completed iteration. g is never modified.
func (e *Engine) Search(g *domain.GameState) (Result, error) {
	if g.CurrentPlayer() != e.player {
		return Result{}, errors.Wrapf(ErrWrongTurn, "engine plays %v, %v to move", e.player, g.CurrentPlayer())
	}
	moves := g.AvailableMoves()
	if len(moves) == 0 {
		return Result{}, ErrNoLegalMoves
	}

	start := time.Now()
	e.stats = Stats{}
	res := Result{}
	alpha, beta := math.Inf(-1), math.Inf(1)
	for d := 1; d <= e.depth; d++ {
		score, move, ok := e.alphaBeta(g, d, alpha, beta, true)
		if score <= alpha || score >= beta {
			e.stats.Researches++
			score, move, ok = e.alphaBeta(g, d, math.Inf(-1), math.Inf(1), true)
		}
		if ok {
			res.Move, res.Score, res.Depth = move, score, d
		}
		e.log.Debug().
			Int("depth", d).
			Float64("score", score).
			Int("board", move.Board).
			Int("cell", move.Cell).
			Uint64("nodes", e.stats.Nodes).
			Uint64("tt_hits", e.stats.TTHits).
			Uint64("cutoffs", e.stats.Cutoffs).
			Msg("iteration complete")
		alpha, beta = score-aspirationWindow, score+aspirationWindow
	}
	if res.Depth == 0 {
		res.Move = moves[0]
		res.Score = Evaluate(g, e.player)
	}
	res.PV = e.principalVariation(g, res.Depth)
	res.Stats = e.stats
	res.Elapsed = time.Since(start)
	return res, nil
}

// principalVariation follows best moves stored in the table from g.
func (e *Engine) principalVariation(g *domain.GameState, depth int) []domain.Move {
	var pv []domain.Move
	pos := g.Clone()
	for len(pv) < depth {
		entry, ok := e.tt.Probe(pos.Hash())
		if !ok || !entry.HasMove {
			break
		}
		if err := pos.ApplyMove(entry.Move.Board, entry.Move.Cell); err != nil {
			break
		}
		pv = append(pv, entry.Move)
	}
	return pv
}
