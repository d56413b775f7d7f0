package render

import (
	"context"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Terminal draws the card as a bordered box for CLI output.
type Terminal struct {
	Width int
}

// Name implements Renderer.
func (Terminal) Name() string { return "terminal" }

// Render implements Renderer. The output is not CQ-coded.
func (t Terminal) Render(_ context.Context, title, text string) string {
	card := ParseCard(title, text)

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	footerStyle := lipgloss.NewStyle().Faint(true)

	body := []string{titleStyle.Render(card.Title), ""}
	body = append(body, card.Lines...)
	body = append(body, "", footerStyle.Render(Footer))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)
	if t.Width > 0 {
		box = box.Width(t.Width)
	}

	out := box.Render(strings.Join(body, "\n"))
	if card.Link != "" {
		out += "\n" + card.Link
	}
	return out
}
