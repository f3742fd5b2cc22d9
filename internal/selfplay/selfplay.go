// Package selfplay plays engines against each other and tallies results.
package selfplay

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/jaminalder/hyperxo/internal/domain"
	"github.com/jaminalder/hyperxo/internal/engine"
)

type Config struct {
	// Games is the number of games per opening colour; doubled when Swap is set.
	Games   int
	Depth1  int
	Depth2  int
	Swap    bool
	Threads int
	Seed    uint64
	// RandomPlies is the number of uniformly random moves played before the
	// engines take over.
	RandomPlies int

	Log zerolog.Logger
}

func (c *Config) validate() error {
	switch {
	case c.Games < 1:
		return errors.Errorf("games must be positive, got %d", c.Games)
	case c.Depth1 < 1 || c.Depth2 < 1:
		return errors.Errorf("depths must be positive, got %d and %d", c.Depth1, c.Depth2)
	case c.RandomPlies < 0:
		return errors.Errorf("random plies must not be negative, got %d", c.RandomPlies)
	}
	return nil
}

type PlayerStats struct {
	Wins  int
	XWins int
	OWins int
}

type Stats struct {
	Players [2]PlayerStats
	X, O    int
	Draws   int

	Games []Result `json:"-"`
}

func (s *Stats) Count() int {
	return s.X + s.O + s.Draws
}

type Result struct {
	Index int
	// P1 is the side player 1 played.
	P1      domain.Cell
	Opening int
	Moves   []domain.Move
	Winner  domain.Cell
	Final   *domain.GameState
}

type gameSpec struct {
	i    int
	p1   domain.Cell
	seed uint64
}

// Run plays every configured game on a pool of c.Threads workers.
func Run(ctx context.Context, c *Config) (Stats, error) {
	if err := c.validate(); err != nil {
		return Stats{}, err
	}
	threads := c.Threads
	if threads < 1 {
		threads = 1
	}
	n := c.Games
	if c.Swap {
		n *= 2
	}

	specs := make(chan gameSpec)
	results := make([]Result, n)
	var mu sync.Mutex

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		defer close(specs)
		r := rand.New(rand.NewSource(c.Seed))
		for g := 0; g < n; g++ {
			p1 := domain.X
			if c.Swap && g%2 == 1 {
				p1 = domain.O
			}
			select {
			case specs <- gameSpec{i: g, p1: p1, seed: r.Uint64()}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < threads; w++ {
		grp.Go(func() error {
			for spec := range specs {
				res, err := playGame(ctx, c, spec)
				if err != nil {
					return err
				}
				mu.Lock()
				results[spec.i] = res
				mu.Unlock()
				c.Log.Debug().
					Int("game", spec.i).
					Str("p1", spec.p1.String()).
					Int("plies", len(res.Moves)).
					Str("winner", res.Winner.String()).
					Msg("game finished")
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return Stats{}, err
	}
	return tally(results), nil
}

func tally(results []Result) Stats {
	var st Stats
	for _, r := range results {
		switch r.Winner {
		case domain.X:
			st.X++
		case domain.O:
			st.O++
		default:
			st.Draws++
		}
		if r.Winner != domain.Empty {
			pst := &st.Players[0]
			if r.Winner != r.P1 {
				pst = &st.Players[1]
			}
			pst.Wins++
			if r.Winner == domain.X {
				pst.XWins++
			} else {
				pst.OWins++
			}
		}
	}
	st.Games = results
	return st
}

func playGame(ctx context.Context, c *Config, spec gameSpec) (Result, error) {
	r := rand.New(rand.NewSource(spec.seed))
	g := domain.New()
	res := Result{Index: spec.i, P1: spec.p1}

	for ply := 0; ply < c.RandomPlies && !g.Resolved(); ply++ {
		moves := g.AvailableMoves()
		m := moves[r.Intn(len(moves))]
		if err := g.ApplyMove(m.Board, m.Cell); err != nil {
			return res, err
		}
		res.Moves = append(res.Moves, m)
	}
	res.Opening = len(res.Moves)

	p1 := engine.New(spec.p1, c.Depth1)
	p2 := engine.New(spec.p1.Opponent(), c.Depth2)
	for !g.Resolved() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		e := p1
		if g.CurrentPlayer() != p1.Player() {
			e = p2
		}
		m, err := e.ChooseMove(g)
		if err != nil {
			return res, errors.Wrapf(err, "game %d ply %d", spec.i, len(res.Moves))
		}
		if err := g.ApplyMove(m.Board, m.Cell); err != nil {
			return res, errors.Wrapf(err, "game %d ply %d", spec.i, len(res.Moves))
		}
		res.Moves = append(res.Moves, m)
	}
	res.Winner = g.Winner()
	res.Final = g
	return res, nil
}
