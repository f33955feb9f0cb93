// Package style provides consistent terminal styling for spielbash output.
package style

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Bold is used for headings and scene names.
	Bold = lipgloss.NewStyle().Bold(true)

	// Dim is used for secondary information.
	Dim = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "245", Dark: "242"})

	// Success marks completed steps.
	Success = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "42"})

	// Warning marks recoverable problems.
	Warning = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "130", Dark: "214"})

	// Error marks fatal problems.
	Error = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "160", Dark: "203"}).Bold(true)

	// Info marks hints.
	Info = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "75"})
)

// Prefixes for single-line status messages.
var (
	SuccessPrefix = Success.Render("✓")
	WarningPrefix = Warning.Render("⚠")
	ErrorPrefix   = Error.Render("✗")
	ArrowPrefix   = Info.Render("→")
)

// Stderr is where PrintWarning writes. Tests may replace it.
var Stderr io.Writer = os.Stderr

// PrintWarning prints a formatted warning line to stderr.
func PrintWarning(format string, args ...interface{}) {
	fmt.Fprintf(Stderr, "%s %s\n", WarningPrefix, Warning.Render(fmt.Sprintf(format, args...)))
}
