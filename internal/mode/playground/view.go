package playground

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/zjrosen/cmdgate/internal/command"
)

var (
	textPrimaryColor   = lipgloss.AdaptiveColor{Light: "#1F2328", Dark: "#E6EDF3"}
	textMutedColor     = lipgloss.AdaptiveColor{Light: "#6E7781", Dark: "#7D8590"}
	selectionColor     = lipgloss.AdaptiveColor{Light: "#0969DA", Dark: "#58A6FF"}
	okColor            = lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"}
	errorColor         = lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#F85149"}
	warnColor          = lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#D29922"}
	borderDefaultColor = lipgloss.AdaptiveColor{Light: "#D0D7DE", Dark: "#30363D"}

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(textPrimaryColor)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(selectionColor)
	normalStyle   = lipgloss.NewStyle().Foreground(textPrimaryColor)
	mutedStyle    = lipgloss.NewStyle().Foreground(textMutedColor)
	okStyle       = lipgloss.NewStyle().Foreground(okColor)
	errorStyle    = lipgloss.NewStyle().Foreground(errorColor)
	warnStyle     = lipgloss.NewStyle().Foreground(warnColor)
	spinnerStyle  = lipgloss.NewStyle().Foreground(selectionColor)
	paneStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(borderDefaultColor).Padding(0, 1)
)

const (
	nameWidth    = 10
	recentRuns   = 5
	defaultWidth = 80
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}
	inner := max(width-4, 20)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Commands"))
	sb.WriteString("\n")
	for i, e := range m.wb.Entries() {
		sb.WriteString(m.renderEntry(e, i == m.selected, inner))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(renderConditions(m.wb))
	sb.WriteString("\n")

	if sel := m.wb.Entries()[m.selected]; sel != nil {
		sb.WriteString(mutedStyle.Render(truncate.StringWithTail(sel.Description, uint(inner), "…")))
		sb.WriteString("\n")
		if err := sel.Cmd.LastError(); err != nil {
			sb.WriteString(errorStyle.Render(truncate.StringWithTail("last error: "+err.Error(), uint(inner), "…")))
			sb.WriteString("\n")
		}
	}

	if runs := m.wb.Recent(recentRuns); len(runs) > 0 {
		sb.WriteString("\n")
		sb.WriteString(titleStyle.Render("Recent runs"))
		sb.WriteString("\n")
		for _, r := range runs {
			line := fmt.Sprintf("%-*s %-9s %-8s %s", nameWidth, r.Command, r.Outcome,
				r.Duration().Round(time.Millisecond), m.wb.Ago(r.FinishedAt))
			sb.WriteString(mutedStyle.Render(truncate.StringWithTail(line, uint(inner), "…")))
			sb.WriteString("\n")
		}
	}

	content := paneStyle.Width(inner + 2).Render(strings.TrimRight(sb.String(), "\n"))

	var footer []string
	if m.message != "" {
		footer = append(footer, truncate.StringWithTail(m.message, uint(width), "…"))
	}
	if m.lastChange.Command != "" {
		footer = append(footer, mutedStyle.Render(truncate.StringWithTail(
			fmt.Sprintf("last change: %s %s (%s)", m.lastChange.Command, m.lastChange.Kind, m.lastChange.State),
			uint(width), "…")))
	}
	if m.lastLog != "" {
		footer = append(footer, mutedStyle.Render(truncate.StringWithTail(strings.TrimSpace(m.lastLog), uint(width), "…")))
	}
	footer = append(footer, m.help.View(m.keys))

	return content + "\n" + strings.Join(footer, "\n")
}

func (m Model) renderEntry(e *Entry, selected bool, width int) string {
	indicator := "  "
	name := normalStyle.Render(fmt.Sprintf("%-*s", nameWidth, e.Name))
	if selected {
		indicator = selectedStyle.Render("●") + " "
		name = selectedStyle.Render(fmt.Sprintf("%-*s", nameWidth, e.Name))
	}

	var state string
	switch e.Cmd.State() {
	case command.Running:
		state = m.spinner.View() + " running"
	case command.Completed:
		state = okStyle.Render("completed")
	case command.Faulted:
		state = errorStyle.Render("faulted")
	case command.Canceled:
		state = warnStyle.Render("canceled")
	default:
		state = mutedStyle.Render("idle")
	}

	gate := errorStyle.Render("blocked")
	if e.Cmd.CanRun() {
		gate = okStyle.Render("ready")
	}

	parts := []string{indicator + name, gate, state}
	if e.Panel != nil {
		if e.Panel.IsActive() {
			parts = append(parts, okStyle.Render("active"))
		} else {
			parts = append(parts, mutedStyle.Render("inactive"))
		}
	}
	parts = append(parts, mutedStyle.Render(fmt.Sprintf("%d changes", e.Changes())))

	return truncate.String(strings.Join(parts, "  "), uint(width))
}

func renderConditions(wb *Workbench) string {
	flag := func(label string, on bool) string {
		if on {
			return label + " " + okStyle.Render("on")
		}
		return label + " " + mutedStyle.Render("off")
	}
	return flag("condition 1:", wb.Condition1.Get()) + "   " + flag("condition 2:", wb.Condition2.Get())
}
