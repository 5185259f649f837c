package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color palette for the shell and command output.
var (
	primaryColor   = lipgloss.Color("#10B981")
	secondaryColor = lipgloss.Color("#6B7280")
	dimColor       = lipgloss.Color("#9CA3AF")
	errorColor     = lipgloss.Color("#EF4444")
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	dirStyle    = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	fileStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5E7EB"))
	dimStyle    = lipgloss.NewStyle().Foreground(dimColor)
	promptStyle = lipgloss.NewStyle().Foreground(secondaryColor).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
)

// formatBytes renders n as a human-readable byte count.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
