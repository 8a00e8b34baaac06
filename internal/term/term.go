// Package term resolves whether output should be colored and holds the ANSI
// sequences used outside the logger (the banner and check report).
//
// [Configure] sets the package-level sequences once during startup; when
// colors are disabled they are empty strings, so concatenation is a no-op.
package term

import (
	"os"
	"strings"

	"github.com/backmassage/mediaopt/internal/config"
)

// ANSI color codes. Empty when colors are disabled.
var (
	Red     = ""
	Green   = ""
	Yellow  = ""
	Magenta = ""
	NC      = "" // Reset sequence.
)

// Configure resolves mode against stdout and sets the package-level ANSI
// variables. It returns whether colors are on.
func Configure(mode config.ColorMode) bool {
	on := Resolve(mode, os.Stdout)
	if on {
		Red = "\033[1;91m"
		Green = "\033[1;92m"
		Yellow = "\033[1;93m"
		Magenta = "\033[1;95m"
		NC = "\033[0m"
	} else {
		Red, Green, Yellow, Magenta, NC = "", "", "", "", ""
	}
	return on
}

// Enabled reports whether ANSI colors are currently active.
func Enabled() bool { return NC != "" }

// Resolve reports whether colors should be used for out under mode. Auto
// mode requires a TTY, an unset NO_COLOR (https://no-color.org), and a
// TERM other than "dumb".
func Resolve(mode config.ColorMode, out *os.File) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default: // ColorAuto
		return IsTerminal(out) &&
			os.Getenv("NO_COLOR") == "" &&
			strings.ToLower(os.Getenv("TERM")) != "dumb"
	}
}

// IsTerminal reports whether f is attached to a TTY (character device).
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
