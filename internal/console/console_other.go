//go:build !windows

package console

import "os"

// EnableANSI reports whether stderr is a terminal that renders ANSI color.
func EnableANSI() bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
