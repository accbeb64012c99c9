package mesh

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Terminal styles for the composite grid
var (
	markerCellStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00A000")).Bold(true)
	filledCellStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5F87D7"))
	emptyCellStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#585858"))
	summaryStyle    = lipgloss.NewStyle().Bold(true)
)

// RenderTerminal draws the searched grid with marker cells shown as 'O'
// and the rest with the configured glyphs. Styling degrades to plain text
// when the output is not a color terminal.
func RenderTerminal(search Search, glyphs Glyphs) string {
	highlight := search.Highlight()
	filled := string(glyphs.Filled)
	empty := string(glyphs.Empty)

	var b strings.Builder
	for r, row := range search.Grid {
		for c, s := range row {
			switch {
			case highlight[r][c]:
				b.WriteString(markerCellStyle.Render("O"))
			case s == Filled:
				b.WriteString(filledCellStyle.Render(filled))
			default:
				b.WriteString(emptyCellStyle.Render(empty))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatSummary renders the two outputs of a solve for the terminal
func FormatSummary(r Result) string {
	lines := []string{
		summaryStyle.Render(fmt.Sprintf("checksum:  %d", r.Checksum)),
		summaryStyle.Render(fmt.Sprintf("roughness: %d", r.Roughness)),
	}
	if r.PatternFound {
		lines = append(lines, fmt.Sprintf("markers:   %d (%s)", r.Occurrences, r.Orientation))
	} else {
		lines = append(lines, "markers:   none")
	}
	if r.Source != "" {
		lines = append([]string{r.Source}, lines...)
	}
	return strings.Join(lines, "\n") + "\n"
}
