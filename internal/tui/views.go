package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/crate/internal/tui/styles"
)

const (
	listPercent = 45
	minWidth    = 40
	// footer + status line
	chromeHeight = 2
)

// View renders the browser
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}
	width := max(m.Width, minWidth)
	bodyHeight := max(m.Height-chromeHeight, 3)

	listWidth := width * listPercent / 100
	detailWidth := width - listWidth

	var left string
	if m.State == StateSearching {
		left = m.renderSearch(listWidth, bodyHeight)
	} else {
		left = m.renderList(listWidth, bodyHeight)
	}
	right := m.renderDetail(detailWidth, bodyHeight)

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatus(width), m.renderFooter(width))
}

// innerSize is the usable area inside a bordered pane
func innerSize(width, height int) (int, int) {
	return max(width-2, 1), max(height-2, 1)
}

func (m Model) renderList(width, height int) string {
	w, h := innerSize(width, height)
	border := styles.ActiveBorder.Width(w).Height(h)

	if len(m.Records) == 0 {
		return border.Render(styles.DimStyle.Render("Library is empty"))
	}

	start, end := visibleRange(m.Cursor, len(m.Records), h)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		r := m.Records[i]
		line := styles.Truncate(fmt.Sprintf("%s - %s", r.Artist, r.Title), w-2)
		if i == m.Cursor {
			lines = append(lines, styles.SelectedItemStyle.Width(w).Render(line))
		} else {
			lines = append(lines, styles.NormalItemStyle.Render(line))
		}
	}
	return border.Render(strings.Join(lines, "\n"))
}

func (m Model) renderSearch(width, height int) string {
	w, h := innerSize(width, height)
	border := styles.ActiveBorder.Width(w).Height(h)

	lines := []string{styles.FilterPromptStyle.Render(m.SearchInput.View()), ""}
	if len(m.Matches) == 0 && m.SearchInput.Value() != "" {
		lines = append(lines, styles.DimStyle.Render("No matches"))
	}

	start, end := visibleRange(m.MatchCursor, len(m.Matches), max(h-2, 1))
	for i := start; i < end; i++ {
		match := m.Matches[i]
		text := match.Text
		if lipgloss.Width(text) > w-2 {
			text = styles.Truncate(text, w-2)
		} else {
			text = styles.Highlight(text, match.MatchedIndexes)
		}
		if i == m.MatchCursor {
			lines = append(lines, styles.SelectedItemStyle.Render(text))
		} else {
			lines = append(lines, styles.NormalItemStyle.Render(text))
		}
	}
	return border.Render(strings.Join(lines, "\n"))
}

func (m Model) renderDetail(width, height int) string {
	w, h := innerSize(width, height)
	border := styles.InactiveBorder.Width(w).Height(h)

	if len(m.Records) == 0 || m.Cursor >= len(m.Records) {
		return border.Render("")
	}
	r := m.Records[m.Cursor]

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(styles.Truncate(r.Title, w)))
	b.WriteString("\n\n")

	titles, values := r.TableRepresentation()
	for i := range titles {
		b.WriteString(styles.LabelStyle.Render(titles[i]))
		b.WriteString(styles.Truncate(values[i], max(w-8, 1)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.LabelStyle.Render("Cover"))
	b.WriteString(m.renderCover())

	return border.Render(b.String())
}

func (m Model) renderCover() string {
	switch m.Cover.Status {
	case CoverPending:
		return RenderSpinner(m.SpinnerFrame) + styles.DimStyle.Render(" loading")
	case CoverReady:
		info := m.Cover.Info
		return styles.SuccessStyle.Render(fmt.Sprintf("%s %dx%d", info.Format, info.Width, info.Height)) +
			styles.DimStyle.Render(fmt.Sprintf(" (%s)", formatBytes(info.Size)))
	case CoverFailed:
		return styles.DimStyle.Render("no image available")
	default:
		return ""
	}
}

func (m Model) renderStatus(width int) string {
	if m.StatusMsg == "" {
		return ""
	}
	text := styles.Truncate(m.StatusMsg, width)
	if m.StatusIsErr {
		return styles.ErrorStyle.Render(text)
	}
	return styles.AccentStyle.Render(text)
}

func (m Model) renderFooter(width int) string {
	var parts []string
	if m.State == StateSearching {
		parts = append(parts,
			styles.HelpKeyStyle.Render("enter")+" "+styles.HelpDescStyle.Render("jump"),
			styles.HelpKeyStyle.Render("esc")+" "+styles.HelpDescStyle.Render("cancel"),
		)
	} else {
		for _, b := range helpBindings() {
			if b.Help().Key == Keys.Undo.Help().Key && !m.Library.CanUndo() {
				continue
			}
			parts = append(parts, styles.HelpKeyStyle.Render(b.Help().Key)+" "+styles.HelpDescStyle.Render(b.Help().Desc))
		}
	}
	footer := strings.Join(parts, "  ")
	if lipgloss.Width(footer) > width {
		return lipgloss.NewStyle().MaxWidth(width).Render(footer)
	}
	return footer
}

// visibleRange returns the window of n rows of height h that keeps cursor visible
func visibleRange(cursor, n, h int) (int, int) {
	if n <= h {
		return 0, n
	}
	start := cursor - h/2
	start = max(start, 0)
	start = min(start, n-h)
	return start, start + h
}

// RenderSpinner renders a loading spinner
func RenderSpinner(frame int) string {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return styles.SpinnerStyle.Render(frames[frame%len(frames)])
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
