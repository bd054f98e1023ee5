package main

import (
	"fmt"
	"os"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// colorsDisabled honors both the --no-color flag and the NO_COLOR
// convention (https://no-color.org).
func colorsDisabled() bool {
	if noColor {
		return true
	}
	_, set := os.LookupEnv("NO_COLOR")
	return set
}

func colorize(color, text string) string {
	if colorsDisabled() {
		return text
	}
	return color + text + colorReset
}

// Progress and result lines go to stderr so data output (lead lists,
// invite logs) stays pipeable on stdout.
func printMarked(color, mark, format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(color, mark+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { printMarked(colorGreen, "✓", format, args...) }
func printError(format string, args ...any)   { printMarked(colorRed, "✗", format, args...) }
func printWarning(format string, args ...any) { printMarked(colorYellow, "⚠", format, args...) }
func printStep(format string, args ...any)    { printMarked(colorCyan, "→", format, args...) }

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}
