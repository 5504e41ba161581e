package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/identigraph/pkg/session"
)

// now is swapped out by tests that compare report text.
var now = time.Now

// GenerateMarkdown creates a report of the graph layout: a summary, a
// Mermaid diagram of the relationships, a node table ranked by
// centrality and the declared paths.
func GenerateMarkdown(snap session.Snapshot, title string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now().Format(time.RFC1123)))

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Nodes**: %d\n", len(snap.Nodes)))
	sb.WriteString(fmt.Sprintf("- **Relationships**: %d\n", len(snap.Edges)))
	sb.WriteString(fmt.Sprintf("- **Paths**: %d\n", len(snap.Paths)))
	sb.WriteString(fmt.Sprintf("- **Canvas**: %.0f x %.0f\n", snap.Width, snap.Height))
	sb.WriteString(fmt.Sprintf("- **Frames simulated**: %d\n", snap.Frames))
	if len(snap.ActiveNodes) > 0 {
		sb.WriteString(fmt.Sprintf("- **Highlight**: %s (%d nodes, %d edges)\n",
			snap.State.Phase, len(snap.ActiveNodes), len(snap.ActiveEdges)))
	}
	sb.WriteString("\n")

	sb.WriteString("## Relationship Graph\n\n")
	sb.WriteString("```mermaid\ngraph LR\n")
	for _, n := range snap.Nodes {
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", mermaidID(n.ID), mermaidText(n.Label)))
	}
	for _, e := range snap.Edges {
		arrow := "-->"
		if e.Active {
			arrow = "==>"
		}
		if e.Label != "" {
			sb.WriteString(fmt.Sprintf("    %s %s|%s| %s\n",
				mermaidID(e.Source), arrow, mermaidText(e.Label), mermaidID(e.Target)))
		} else {
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", mermaidID(e.Source), arrow, mermaidID(e.Target)))
		}
	}
	if len(snap.Edges) == 0 {
		sb.WriteString("    NoRelationships[No Relationships]\n")
	}
	sb.WriteString("```\n\n")

	sb.WriteString("## Nodes\n\n")
	sb.WriteString("| Node | Category | Degree | Centrality | Position |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	nodes := append([]session.NodeSnapshot(nil), snap.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Centrality != nodes[j].Centrality {
			return nodes[i].Centrality > nodes[j].Centrality
		}
		return nodes[i].ID < nodes[j].ID
	})
	for _, n := range nodes {
		name := n.Label
		if n.Active {
			name = "**" + name + "**"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %.2f | (%.0f, %.0f) |\n",
			name, n.Category, n.Degree, n.Centrality, n.X, n.Y))
	}
	sb.WriteString("\n")

	if len(snap.Paths) > 0 {
		sb.WriteString("## Paths\n\n")
		for _, p := range snap.Paths {
			marker := ""
			if p.Active {
				marker = " (active)"
			}
			sb.WriteString(fmt.Sprintf("### %s%s\n\n", p.ID, marker))
			if p.Description != "" {
				sb.WriteString(p.Description + "\n\n")
			}
			sb.WriteString(fmt.Sprintf("Edges: %s\n\n", strings.Join(p.Edges, " → ")))
		}
	}

	return sb.String()
}

// mermaidID keeps identifiers Mermaid accepts unquoted.
func mermaidID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, id)
}

func mermaidText(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	s = strings.NewReplacer("[", "", "]", "", "(", "", ")", "", "|", "/").Replace(s)
	if len(s) > 30 {
		s = s[:27] + "..."
	}
	return s
}
