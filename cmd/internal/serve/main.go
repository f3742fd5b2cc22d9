package serve

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/jaminalder/hyperxo/internal/app"
	"github.com/jaminalder/hyperxo/internal/config"
	"github.com/jaminalder/hyperxo/internal/web"
)

type Command struct {
	host     string
	port     int
	logLevel string
	logJSON  bool
	think    time.Duration
}

func (*Command) Name() string     { return "serve" }
func (*Command) Synopsis() string { return "Serve the HyperXO web UI and JSON API" }
func (*Command) Usage() string {
	return `serve [flags]
Serve games against the computer over HTTP. Flags override the
HYPERXO_* environment variables.
`
}

func (c *Command) SetFlags(flags *flag.FlagSet) {
	flags.StringVar(&c.host, "host", "", "bind host (default $HYPERXO_HOST or 0.0.0.0)")
	flags.IntVar(&c.port, "port", 0, "bind port (default $HYPERXO_PORT or 8000)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level")
	flags.BoolVar(&c.logJSON, "log-json", false, "log JSON instead of console output")
	flags.DurationVar(&c.think, "think", -1, "fixed computer think delay (default 1s-2s jitter)")
}

func (c *Command) config() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if c.host != "" {
		cfg.Host = c.host
	}
	if c.port != 0 {
		cfg.Port = c.port
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.logJSON {
		cfg.LogJSON = true
	}
	if c.think >= 0 {
		cfg.ThinkDelayMin, cfg.ThinkDelayMax = c.think, c.think
	}
	return cfg, cfg.Validate()
}

func (c *Command) Execute(ctx context.Context, flag *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := c.config()
	if err != nil {
		os.Stderr.WriteString("serve: " + err.Error() + "\n")
		return subcommands.ExitUsageError
	}
	log := cfg.Logger(os.Stderr)

	svc := app.NewService(
		app.WithDepths(cfg.AllowedDepths...),
		app.WithThinkDelay(cfg.ThinkDelayMin, cfg.ThinkDelayMax),
		app.WithSessionTTL(cfg.SessionTTL),
		app.WithLogger(log.With().Str("component", "app").Logger()),
	)
	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: web.NewServer(svc,
			web.WithLogger(log.With().Str("component", "web").Logger()),
			web.WithDefaultDepth(cfg.DefaultDepth),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		log.Info().Str("addr", srv.Addr).Ints("depths", cfg.AllowedDepths).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	grp.Go(func() error {
		err := svc.Run(ctx, cfg.ReapInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	grp.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = grp.Wait()
	svc.Wait()
	if err != nil {
		log.Error().Err(err).Msg("server stopped")
		return subcommands.ExitFailure
	}
	log.Info().Msg("server stopped")
	return subcommands.ExitSuccess
}
