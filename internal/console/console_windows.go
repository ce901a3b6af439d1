//go:build windows

package console

import (
	"os"

	"golang.org/x/sys/windows"
)

// EnableANSI turns on virtual terminal processing for stderr.
func EnableANSI() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	h := windows.Handle(windows.Stderr)
	var mode uint32
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		return false
	}
	mode |= windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING
	if err := windows.SetConsoleMode(h, mode); err != nil {
		return false
	}
	return true
}
