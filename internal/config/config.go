package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrUsage reports a command line that parsed but is missing a required flag.
var ErrUsage = errors.New("usage error")

// Config is the loader's command line.
type Config struct {
	Database string
	Outfile  string
}

// Parse reads the loader flags from args. Both flags are required; each has
// a short and a long spelling bound to the same value.
func Parse(name string, args []string, stderr io.Writer) (Config, error) {
	cfg := Config{}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Database, "db", "", "SQLite breakpoint database (required)")
	fs.StringVar(&cfg.Database, "database", "", "alias for -db")
	fs.StringVar(&cfg.Outfile, "o", "", "GZipped TSV file to write as output (required, not yet written)")
	fs.StringVar(&cfg.Outfile, "outfile", "", "alias for -o")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s -db DATABASE -o OUTFILE\n\n", name)
		fmt.Fprintln(fs.Output(), "Remove low quality breakpoints from the breakpoint database")
		fmt.Fprintln(fs.Output())
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, usageError(fs, "unexpected arguments: %v", fs.Args())
	}

	var missing []string
	if cfg.Database == "" {
		missing = append(missing, "-db/--database")
	}
	if cfg.Outfile == "" {
		missing = append(missing, "-o/--outfile")
	}
	if len(missing) > 0 {
		return cfg, usageError(fs, "the following arguments are required: %v", missing)
	}
	return cfg, nil
}

func usageError(fs *flag.FlagSet, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(fs.Output(), "%s: error: %s\n", fs.Name(), msg)
	fs.Usage()
	return fmt.Errorf("%w: %s", ErrUsage, msg)
}

// ServeConfig configures breakpointd. Every flag falls back to a
// BREAKPOINTD_* environment variable, which may come from a .env file.
type ServeConfig struct {
	Database       string
	Listen         string
	Token          string
	MaxRows        int
	LogTraffic     bool
	PingInterval   time.Duration
	RequestTimeout time.Duration
}

func ParseServe(name string, args []string, stderr io.Writer) (ServeConfig, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	cfg := ServeConfig{}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Database, "db", getEnv("BREAKPOINTD_DB", ""), "SQLite breakpoint database")
	fs.StringVar(&cfg.Listen, "listen", getEnv("BREAKPOINTD_LISTEN", "127.0.0.1:8765"), "listen address")
	fs.StringVar(&cfg.Token, "token", getEnv("BREAKPOINTD_TOKEN", ""), "bearer token required from clients")
	fs.IntVar(&cfg.MaxRows, "max-rows", getEnvInt("BREAKPOINTD_MAX_ROWS", 5000), "largest page a client may request")
	fs.BoolVar(&cfg.LogTraffic, "log-traffic", getEnvBool("BREAKPOINTD_LOG_TRAFFIC", false), "log websocket traffic")
	fs.DurationVar(&cfg.PingInterval, "ping", getEnvDuration("BREAKPOINTD_PING", 20*time.Second), "ping interval")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", getEnvDuration("BREAKPOINTD_TIMEOUT", 10*time.Second), "request timeout")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.Database == "" {
		return cfg, usageError(fs, "missing -db")
	}
	if cfg.MaxRows <= 0 {
		return cfg, usageError(fs, "-max-rows must be positive")
	}
	if cfg.PingInterval <= 0 {
		return cfg, usageError(fs, "-ping must be positive")
	}
	if cfg.RequestTimeout <= 0 {
		return cfg, usageError(fs, "-timeout must be positive")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" || v == "yes" || v == "YES" {
			return true
		}
		return false
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
