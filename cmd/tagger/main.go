// Command tagger reconciles merchant order reports against ledger
// transactions and itemizes the matched charges and refunds.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eshaffer321/ledger-tagger/internal/cli"
	"github.com/eshaffer321/ledger-tagger/internal/domain/retag"
	"github.com/eshaffer321/ledger-tagger/internal/infrastructure/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	flags, err := cli.ParseTaggerFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if err := flags.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	cfg := config.LoadOrEnvWithPath(flags.ConfigFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = cli.RunTagger(ctx, cfg, flags, cli.Console{In: os.Stdin, Out: os.Stdout})
	switch {
	case err == nil:
		return 0
	case errors.Is(err, retag.ErrAborted):
		fmt.Fprintln(os.Stderr, "Aborted; no changes were sent.")
		return 1
	case errors.Is(err, cli.ErrDataIntegrity):
		fmt.Fprintf(os.Stderr, "Data integrity error: %v\n", err)
		return 3
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
}
