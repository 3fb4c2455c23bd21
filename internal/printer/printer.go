// Package printer provides colored diagnostic output. Everything goes to
// stderr: stdout is reserved for found keys.
package printer

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	// Color definitions
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
)

// out is swapped in tests to capture output.
var out io.Writer = os.Stderr

// Info prints an informational message in the default color.
func Info(format string, a ...any) {
	fmt.Fprintf(out, format, a...)
}

// Success prints a success message in green with a checkmark prefix.
func Success(format string, a ...any) {
	green.Fprintf(out, "✓ %s", fmt.Sprintf(format, a...))
}

// Warning prints a warning message in yellow.
func Warning(format string, a ...any) {
	yellow.Fprintf(out, "⚠ %s", fmt.Sprintf(format, a...))
}

// Error prints a formatted error with title and optional suggestions, and
// returns a simple error carrying only the title for the caller to propagate.
func Error(title string, explanation string, suggestions []string) error {
	red.Fprintf(out, "%s\n", title)

	if explanation != "" {
		fmt.Fprintf(out, "\n%s\n", explanation)
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(out, "\n")
		for _, suggestion := range suggestions {
			fmt.Fprintf(out, "  • %s\n", suggestion)
		}
	}

	return fmt.Errorf("%s", title)
}
