package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	appmodel "agentui/model"
)

func renderAgentSelector(agents []appmodel.Agent, selectedIdx int, currentID string, stale bool, filterMode bool, filterInput textinput.Model, filteredAgents []appmodel.Agent, width, height int) string {
	// Modal dimensions
	modalWidth := width - 10
	if modalWidth > 80 {
		modalWidth = 80
	}
	modalHeight := height - 6

	titleSection := lipgloss.NewStyle().
		Bold(true).
		Align(lipgloss.Center).
		Width(modalWidth).
		Render("Select Agent")

	// Determine which list to display
	displayList := agents
	if filterMode {
		displayList = filteredAgents
	}

	// Header: show filter input or count
	var header string
	if filterMode {
		header = filterInput.View()
	} else if len(agents) == len(displayList) {
		header = fmt.Sprintf("%d agents", len(agents))
	} else {
		header = fmt.Sprintf("%d of %d agents", len(displayList), len(agents))
	}
	if stale && !filterMode {
		header += " (cached, server unreachable)"
	}

	headerSection := lipgloss.NewStyle().
		Foreground(dimColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(header)

	var agentLines []string
	maxLines := modalHeight - 8 // Reserve space for title, borders, header, footer
	if maxLines < 1 {
		maxLines = 1
	}

	if len(displayList) == 0 {
		emptyMsg := "No agents available"
		if filterMode {
			emptyMsg = "No matches found"
		}
		agentLines = append(agentLines, lipgloss.NewStyle().
			Foreground(dimColor).
			Italic(true).
			Align(lipgloss.Center).
			Width(modalWidth).
			Render(emptyMsg))
	} else {
		startIdx, endIdx := visibleWindow(len(displayList), selectedIdx, maxLines)

		for i := startIdx; i < endIdx; i++ {
			agent := displayList[i]

			indicator := "  "
			if i == selectedIdx {
				indicator = "▶ "
			}

			currentMarker := ""
			if agent.ID == currentID {
				currentMarker = " (current)"
			}

			idText := "#" + agent.ID
			maxNameWidth := modalWidth - runewidth.StringWidth(idText) - len(currentMarker) - 6
			name := runewidth.Truncate(agent.DisplayName(), maxNameWidth, "…")

			spacing := modalWidth - runewidth.StringWidth(indicator) - runewidth.StringWidth(name) - len(currentMarker) - runewidth.StringWidth(idText) - 2
			if spacing < 1 {
				spacing = 1
			}

			line := indicator + name + currentMarker + strings.Repeat(" ", spacing) + DimStyle.Render(idText)

			lineStyle := lipgloss.NewStyle()
			if i == selectedIdx {
				lineStyle = SelectedStyle
			} else if agent.ID == currentID {
				lineStyle = CurrentStyle
			}

			agentLines = append(agentLines, lipgloss.NewStyle().Width(modalWidth).Render(lineStyle.Render(line)))
		}

		// Show the selected agent's system prompt as a hint
		if selectedIdx >= 0 && selectedIdx < len(displayList) && displayList[selectedIdx].SystemPrompt != "" {
			prompt := runewidth.Truncate(strings.ReplaceAll(displayList[selectedIdx].SystemPrompt, "\n", " "), modalWidth-4, "…")
			agentLines = append(agentLines, "", lipgloss.NewStyle().
				Foreground(dimColor).
				Italic(true).
				Width(modalWidth).
				Render("  "+prompt))
		}
	}

	// Add empty line before and after list
	emptyLine := strings.Repeat(" ", modalWidth)
	agentLines = append([]string{emptyLine}, agentLines...)
	agentLines = append(agentLines, emptyLine)

	var footerText string
	if filterMode {
		footerText = FormatFooter("Type", "to filter", "Alt+J/K", "Navigate", "Enter", "Select", "Esc", "Cancel")
	} else {
		footerText = FormatFooter("/", "Filter", "j/k", "Navigate", "Enter", "Select", "Alt+R", "Refresh", "Esc", "Exit")
	}
	footerSection := lipgloss.NewStyle().
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(footerText)

	sections := []string{titleSection, headerSection}
	sections = append(sections, agentLines...)
	sections = append(sections, footerSection)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, strings.Join(sections, "\n"))
}

// visibleWindow returns the [start, end) range of a list of n items that
// keeps selected roughly centered in maxLines rows.
func visibleWindow(n, selected, maxLines int) (int, int) {
	if n <= maxLines {
		return 0, n
	}
	switch {
	case selected < maxLines/2:
		return 0, maxLines
	case selected >= n-maxLines/2:
		return n - maxLines, n
	default:
		start := selected - maxLines/2
		return start, start + maxLines
	}
}
