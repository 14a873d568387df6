// Package color styles diagnostics and IR listings for the terminal.
package color

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

var (
	colorEnabled = true
	profile      = termenv.ANSI
)

func init() {
	if os.Getenv("NO_COLOR") != "" || !isTerminal(os.Stdout) {
		colorEnabled = false
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func EnableColor(enable bool) {
	colorEnabled = enable
}

func IsColorEnabled() bool {
	return colorEnabled
}

// Colorize renders text in the given ANSI color ("1" to "15") when
// coloring is enabled.
func Colorize(c, text string) string {
	if !colorEnabled {
		return text
	}
	return termenv.String(text).Foreground(profile.Color(c)).String()
}

// ANSI color indexes
const (
	Red           = "1"
	Green         = "2"
	Yellow        = "3"
	Blue          = "4"
	Magenta       = "5"
	Cyan          = "6"
	Gray          = "8"
	BrightRed     = "9"
	BrightGreen   = "10"
	BrightYellow  = "11"
	BrightBlue    = "12"
	BrightMagenta = "13"
	BrightCyan    = "14"
)

func RedText(text string) string { return Colorize(Red, text) }
func GreenText(text string) string { return Colorize(Green, text) }
func YellowText(text string) string { return Colorize(Yellow, text) }
func BlueText(text string) string { return Colorize(Blue, text) }
func MagentaText(text string) string { return Colorize(Magenta, text) }
func CyanText(text string) string { return Colorize(Cyan, text) }
func GrayText(text string) string { return Colorize(Gray, text) }
func BrightRedText(text string) string { return Colorize(BrightRed, text) }
func BrightGreenText(text string) string { return Colorize(BrightGreen, text) }
func BrightYellowText(text string) string { return Colorize(BrightYellow, text) }
func BrightBlueText(text string) string { return Colorize(BrightBlue, text) }
func BrightMagentaText(text string) string { return Colorize(BrightMagenta, text) }
func BrightCyanText(text string) string { return Colorize(BrightCyan, text) }

// BoldText renders text in bold
func BoldText(text string) string {
	if !colorEnabled {
		return text
	}
	return termenv.String(text).Bold().String()
}
