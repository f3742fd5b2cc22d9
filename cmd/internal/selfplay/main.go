package selfplay

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"github.com/jaminalder/hyperxo/internal/config"
	"github.com/jaminalder/hyperxo/internal/selfplay"
)

type Command struct {
	p1, p2      int
	games       int
	swap        bool
	threads     int
	seed        uint64
	randomPlies int
	verbose     bool
}

func (*Command) Name() string     { return "selfplay" }
func (*Command) Synopsis() string { return "Play two engines against each other and report results" }
func (*Command) Usage() string {
	return `selfplay [flags]
`
}

func (c *Command) SetFlags(flags *flag.FlagSet) {
	flags.IntVar(&c.p1, "p1", 3, "player 1 search depth")
	flags.IntVar(&c.p2, "p2", 3, "player 2 search depth")
	flags.IntVar(&c.games, "games", 10, "number of games to play per color")
	flags.BoolVar(&c.swap, "swap", true, "swap colors each game")
	flags.IntVar(&c.threads, "threads", 4, "number of parallel threads")
	flags.Uint64Var(&c.seed, "seed", 0, "starting random seed")
	flags.IntVar(&c.randomPlies, "random-plies", 2, "random opening moves before the engines play")
	flags.BoolVar(&c.verbose, "v", false, "verbose output")
}

func (c *Command) Execute(ctx context.Context, flag *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.seed == 0 {
		c.seed = uint64(time.Now().Unix())
	}
	cfg := config.Default()
	if c.verbose {
		cfg.LogLevel = "debug"
	}
	log := cfg.Logger(os.Stderr)

	start := time.Now()
	st, err := selfplay.Run(ctx, &selfplay.Config{
		Games:       c.games,
		Depth1:      c.p1,
		Depth2:      c.p2,
		Swap:        c.swap,
		Threads:     c.threads,
		Seed:        c.seed,
		RandomPlies: c.randomPlies,
		Log:         log,
	})
	if err != nil {
		log.Error().Err(err).Msg("selfplay failed")
		return subcommands.ExitFailure
	}

	log.Info().
		Int("games", st.Count()).
		Uint64("seed", c.seed).
		Int("draws", st.Draws).
		Int("x", st.X).
		Int("o", st.O).
		Dur("elapsed", time.Since(start)).
		Msg("done")
	tw := tabwriter.NewWriter(os.Stderr, 2, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "\tdepth\tX\tO\tsum\n")
	fmt.Fprintf(tw, "p1\t%d\t%d\t%d\t%d\n", c.p1, st.Players[0].XWins, st.Players[0].OWins, st.Players[0].Wins)
	fmt.Fprintf(tw, "p2\t%d\t%d\t%d\t%d\n", c.p2, st.Players[1].XWins, st.Players[1].OWins, st.Players[1].Wins)
	fmt.Fprintf(tw, "draws\t\t\t\t%d\n", st.Draws)
	tw.Flush()
	return subcommands.ExitSuccess
}
