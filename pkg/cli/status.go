package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	failureColor = color.New(color.FgRed, color.Bold)
)

// Success prints a green "✓" status line.
func Success(w io.Writer, format string, args ...any) {
	successColor.Fprint(w, "✓ ")
	fmt.Fprintf(w, format+"\n", args...)
}

// Warn prints a yellow "!" status line.
func Warn(w io.Writer, format string, args ...any) {
	warnColor.Fprint(w, "! ")
	fmt.Fprintf(w, format+"\n", args...)
}

// Failure prints a red "✗" status line.
func Failure(w io.Writer, format string, args ...any) {
	failureColor.Fprint(w, "✗ ")
	fmt.Fprintf(w, format+"\n", args...)
}

// Highlight returns s in bold when color is enabled.
func Highlight(s string) string {
	return color.New(color.Bold).Sprint(s)
}
