// Package term holds the console color state shared by the logger and the
// result tables, and detects whether stdout is an interactive terminal.
//
// The color variables are plain strings so callers can concatenate them
// unconditionally; they are empty whenever color output is off.
package term

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/backmassage/npy2mat/internal/config"
)

// Escape sequences for the active palette. Empty when colors are off.
var (
	Red     string
	Green   string
	Yellow  string
	Blue    string
	Cyan    string
	Magenta string
	NC      string // reset
)

// palette binds each color variable to its bold bright SGR code.
var palette = []struct {
	dst  *string
	code string
}{
	{&Red, "1;91"},
	{&Green, "1;92"},
	{&Yellow, "1;93"},
	{&Blue, "1;94"},
	{&Magenta, "1;95"},
	{&Cyan, "1;96"},
	{&NC, "0"},
}

// Configure turns the palette on or off for mode. [logging.NewLogger] calls
// it once at startup.
func Configure(mode config.ColorMode) {
	on := resolve(mode)
	for _, p := range palette {
		*p.dst = ""
		if on {
			*p.dst = "\033[" + p.code + "m"
		}
	}
}

// Enabled reports whether the palette is on.
func Enabled() bool { return NC != "" }

// resolve maps a color mode to on/off. Auto honors NO_COLOR and TERM=dumb
// and otherwise follows whether stdout is a terminal.
func resolve(mode config.ColorMode) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" || strings.EqualFold(os.Getenv("TERM"), "dumb") {
		return false
	}
	return IsTerminal(os.Stdout)
}

// IsTerminal reports whether f is attached to a terminal, including Cygwin
// and MSYS pseudo-terminals.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Paint wraps s in color and a reset. With colors off it returns s as is.
func Paint(color, s string) string {
	if color == "" {
		return s
	}
	return color + s + NC
}
