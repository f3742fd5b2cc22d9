package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/jaminalder/hyperxo/cmd/internal/analyze"
	"github.com/jaminalder/hyperxo/cmd/internal/selfplay"
	"github.com/jaminalder/hyperxo/cmd/internal/serve"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&serve.Command{}, "")
	subcommands.Register(&selfplay.Command{}, "")
	subcommands.Register(&analyze.Command{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
