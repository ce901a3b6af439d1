package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"schism/internal/config"
	"schism/internal/console"
	"schism/internal/db"
	"schism/internal/logger"
	"schism/internal/server"
)

func main() {
	cfg, err := config.ParseServe("breakpointd", os.Args[1:], os.Stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	case err != nil:
		os.Exit(2)
	}

	log := logger.New(os.Stderr, cfg.LogTraffic, console.EnableANSI())
	log.Infof("breakpointd version %s", log.Accent(server.Version))
	log.Infof("DB path: %s", log.Accent(cfg.Database))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := db.Open(ctx, cfg.Database)
	if err != nil {
		log.Errorf("open db: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if _, err := db.Columns(ctx, sqlDB, db.BreakpointTable); err != nil {
		log.Errorf("%v", err)
		sqlDB.Close()
		os.Exit(1)
	}

	if err := server.New(cfg, sqlDB, log).ListenAndServe(ctx); err != nil {
		log.Errorf("server exited: %v", err)
		sqlDB.Close()
		os.Exit(1)
	}
	log.Infof("Shutting down...")
}
