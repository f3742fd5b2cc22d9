package analyze

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/samber/lo"

	"github.com/jaminalder/hyperxo/internal/config"
	"github.com/jaminalder/hyperxo/internal/domain"
	"github.com/jaminalder/hyperxo/internal/engine"
)

type Command struct {
	position  string
	variation string
	depth     int
	eval      bool
	quiet     bool
	verbose   bool
}

func (*Command) Name() string     { return "analyze" }
func (*Command) Synopsis() string { return "Search a position and print the best move" }
func (*Command) Usage() string {
	return `analyze [options]

Search a position given in board notation
("<b0>/<b1>/.../<b8> <side> <forced|->"), by default the empty
board. -variation plays a comma separated list of board.cell moves
before the search.
`
}

func (c *Command) SetFlags(flags *flag.FlagSet) {
	flags.StringVar(&c.position, "position", "", "position to analyze")
	flags.StringVar(&c.variation, "variation", "", "apply the listed moves after the given position")
	flags.IntVar(&c.depth, "depth", 5, "search depth")
	flags.BoolVar(&c.eval, "evaluate", false, "only show static evaluation")
	flags.BoolVar(&c.quiet, "quiet", false, "don't print the board diagram")
	flags.BoolVar(&c.verbose, "v", false, "log every completed iteration")
}

func (c *Command) Execute(ctx context.Context, flag *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	g, err := c.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		return subcommands.ExitUsageError
	}
	if !c.quiet {
		fmt.Println(domain.Format(g))
		fmt.Println(g.Encode())
	}
	if g.Resolved() {
		fmt.Printf("game over: winner=%s drawn=%t\n", g.Winner(), g.Drawn())
		return subcommands.ExitSuccess
	}
	side := g.CurrentPlayer()
	if c.eval {
		fmt.Printf("static eval (%s): %+.2f\n", side, engine.Evaluate(g, side))
		return subcommands.ExitSuccess
	}

	cfg := config.Default()
	cfg.LogLevel = "info"
	if c.verbose {
		cfg.LogLevel = "debug"
	}
	e := engine.New(side, c.depth, engine.WithLogger(cfg.Logger(os.Stderr)))
	res, err := e.Search(g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		return subcommands.ExitFailure
	}
	pv := lo.Map(res.PV, func(m domain.Move, _ int) string { return m.String() })
	fmt.Printf("best=%s side=%s score=%+.2f depth=%d\n", res.Move, side, res.Score, res.Depth)
	fmt.Printf("pv: %s\n", strings.Join(pv, " "))
	fmt.Printf("nodes=%d tt=%d cutoffs=%d researches=%d elapsed=%s\n",
		res.Stats.Nodes, res.Stats.TTHits, res.Stats.Cutoffs, res.Stats.Researches, res.Elapsed)
	return subcommands.ExitSuccess
}

func (c *Command) load() (*domain.GameState, error) {
	g := domain.New()
	if c.position != "" {
		var err error
		if g, err = domain.ParsePosition(c.position); err != nil {
			return nil, err
		}
	}
	if c.variation == "" {
		return g, nil
	}
	for _, tok := range strings.Split(c.variation, ",") {
		m, err := domain.ParseMove(tok)
		if err != nil {
			return nil, err
		}
		if err := g.ApplyMove(m.Board, m.Cell); err != nil {
			return nil, err
		}
	}
	return g, nil
}
