// Package ui is the terminal front end: a Bubble Tea program that renders
// frames as colored cells and feeds mouse and keyboard input back into the
// session.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme bundles the styles for one output renderer. Tests pass a renderer
// bound to a non-terminal writer so output carries no escape codes.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Text      lipgloss.Color
	Subtext   lipgloss.Color
	Muted     lipgloss.Color
	Border    lipgloss.Color
	BgDark    lipgloss.Color
	Error     lipgloss.Color
}

// DefaultTheme returns the dark palette used by the renderers.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return Theme{
		Renderer:  r,
		Primary:   lipgloss.Color("#7c3aed"),
		Secondary: lipgloss.Color("#3b82f6"),
		Text:      lipgloss.Color("#f8fafc"),
		Subtext:   lipgloss.Color("#cbd5e1"),
		Muted:     lipgloss.Color("#64748b"),
		Border:    lipgloss.Color("#334155"),
		BgDark:    lipgloss.Color("#0f172a"),
		Error:     lipgloss.Color("#dc2626"),
	}
}

func (t Theme) header() lipgloss.Style {
	return t.Renderer.NewStyle().Bold(true).Foreground(t.Text).Background(t.Primary).Padding(0, 1)
}

func (t Theme) status() lipgloss.Style {
	return t.Renderer.NewStyle().Foreground(t.Subtext).Background(t.BgDark).Padding(0, 1)
}

func (t Theme) errorText() lipgloss.Style {
	return t.Renderer.NewStyle().Bold(true).Foreground(t.Error)
}
