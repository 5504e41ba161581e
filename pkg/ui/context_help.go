package ui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/identigraph/pkg/model"
)

// quickReference fits on one screen without scrolling.
const quickReference = `**Mouse**
  move      Highlight the node under the pointer
  click     Light up a node and its neighbors
  click bg  Clear the highlight

**Keyboard**
  tab/l     Activate the next node
  S-tab/h   Activate the previous node
  esc       Clear the highlight
  a/space   Toggle automatic path tours
  r         Reload the topology file
  ?         Toggle this help
  q         Quit`

// RenderHelp renders the help modal with a legend of the categories that
// appear in g.
func RenderHelp(theme Theme, g *model.Graph, width int) string {
	r := theme.Renderer

	modalWidth := 60
	if modalWidth > width-4 {
		modalWidth = width - 4
	}
	if modalWidth < 20 {
		modalWidth = 20
	}

	titleStyle := r.NewStyle().Bold(true).Foreground(theme.Primary)
	contentStyle := r.NewStyle().Foreground(theme.Subtext)
	footerStyle := r.NewStyle().Foreground(theme.Muted).Italic(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quick Reference"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", modalWidth-4)))
	b.WriteString("\n\n")
	b.WriteString(contentStyle.Render(quickReference))

	if g != nil {
		b.WriteString("\n\n")
		b.WriteString(titleStyle.Render("Legend"))
		b.WriteString("\n")
		for _, cat := range legend(g) {
			icon := r.NewStyle().Bold(true).Foreground(lipgloss.Color(model.Hex(cat.Color))).Render(cat.Icon)
			b.WriteString("  " + icon + "  " + contentStyle.Render(cat.Label) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(footerStyle.Render("Press ? or Esc to close"))

	modalStyle := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(1, 2).
		Width(modalWidth)

	return modalStyle.Render(b.String())
}

// legend lists the categories in use, sorted by label.
func legend(g *model.Graph) []model.Category {
	seen := make(map[string]bool)
	var out []model.Category
	for _, n := range g.Nodes() {
		if seen[n.Category] {
			continue
		}
		seen[n.Category] = true
		if cat, ok := g.Category(n.Category); ok {
			out = append(out, cat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
