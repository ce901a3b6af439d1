// Package loader reads a breakpoint database and reports what it holds.
//
// Quality filtering and writing the output file are not implemented: no
// filtering criteria or output schema have been defined yet. Run accepts the
// output path and reports it, but never creates it.
package loader

import (
	"context"
	"fmt"
	"io"

	"schism/internal/config"
	"schism/internal/db"
	"schism/internal/logger"
)

// Run echoes the configuration to out, loads the breakpoint table and prints
// its row count. The database handle is closed before Run returns.
func Run(ctx context.Context, cfg config.Config, out io.Writer, log *logger.Logger) (*db.RecordSet, error) {
	fmt.Fprintf(out, "Database is %s\n", cfg.Database)
	fmt.Fprintf(out, "Output file is %s\n", cfg.Outfile)

	sqlDB, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	defer sqlDB.Close()

	breakpoints, err := db.LoadBreakpoints(ctx, sqlDB)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(out, "Found %d breakpoints\n", breakpoints.Len())

	log.Warnf("filtering is not implemented; %s was not written", log.Accent(cfg.Outfile))
	return breakpoints, nil
}
