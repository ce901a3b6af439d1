package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"

	"schism/internal/config"
	"schism/internal/console"
	"schism/internal/loader"
	"schism/internal/logger"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Parse("filterbreakpoints", args, stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		return 0
	case err != nil:
		return 2
	}

	log := logger.New(stderr, false, stderr == io.Writer(os.Stderr) && console.EnableANSI())

	if _, err := loader.Run(ctx, cfg, stdout, log); err != nil {
		log.Errorf("%v", err)
		return 1
	}
	return 0
}
