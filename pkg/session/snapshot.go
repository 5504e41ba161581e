package session

import (
	"github.com/vanderheijden86/identigraph/pkg/interaction"
	"github.com/vanderheijden86/identigraph/pkg/model"
)

// NodeSnapshot is one node's layout at snapshot time.
type NodeSnapshot struct {
	ID         string  `json:"id"`
	Category   string  `json:"category"`
	Label      string  `json:"label"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	VX         float64 `json:"vx"`
	VY         float64 `json:"vy"`
	Fixed      bool    `json:"fixed,omitempty"`
	Active     bool    `json:"active,omitempty"`
	Degree     int     `json:"degree"`
	Centrality float64 `json:"centrality"`
}

// EdgeSnapshot is one edge and whether it is lit.
type EdgeSnapshot struct {
	ID       string  `json:"id"`
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Strength float64 `json:"strength"`
	Label    string  `json:"label"`
	Active   bool    `json:"active,omitempty"`
}

// PathSnapshot is one declared path and whether it is the live activation.
type PathSnapshot struct {
	ID          string   `json:"id"`
	Edges       []string `json:"edges"`
	Description string   `json:"description,omitempty"`
	Active      bool     `json:"active,omitempty"`
}

// Snapshot is a consistent copy of layout and highlight state.
type Snapshot struct {
	Width       float64           `json:"width"`
	Height      float64           `json:"height"`
	Frames      uint64            `json:"frames"`
	Energy      float64           `json:"energy"`
	Nodes       []NodeSnapshot    `json:"nodes"`
	Edges       []EdgeSnapshot    `json:"edges"`
	Paths       []PathSnapshot    `json:"paths"`
	State       interaction.State `json:"state"`
	ActiveNodes []string          `json:"active_nodes"`
	ActiveEdges []string          `json:"active_edges"`
}

// Snapshot copies positions and highlight state under the session lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.ctrl.State()
	b := s.graph.Bounds()
	snap := Snapshot{
		Width:       b.Width,
		Height:      b.Height,
		Frames:      s.frames,
		Energy:      s.stats.Energy,
		Nodes:       make([]NodeSnapshot, 0, len(s.graph.Nodes())),
		Edges:       make([]EdgeSnapshot, 0, len(s.graph.Edges())),
		Paths:       make([]PathSnapshot, 0, len(s.graph.Paths())),
		State:       st,
		ActiveNodes: st.NodeIDs(),
		ActiveEdges: st.EdgeIDs(),
	}
	for _, n := range s.graph.Nodes() {
		snap.Nodes = append(snap.Nodes, nodeSnapshot(s.graph, n, st))
	}
	for _, e := range s.graph.Edges() {
		snap.Edges = append(snap.Edges, EdgeSnapshot{
			ID:       e.ID,
			Source:   e.Source,
			Target:   e.Target,
			Strength: e.Strength,
			Label:    e.Label,
			Active:   st.IsActiveEdge(e.ID),
		})
	}
	for _, p := range s.graph.Paths() {
		snap.Paths = append(snap.Paths, PathSnapshot{
			ID:          p.ID,
			Edges:       append([]string(nil), p.EdgeIDs...),
			Description: p.Description,
			Active:      st.PathID == p.ID,
		})
	}
	return snap
}

func nodeSnapshot(g *model.Graph, n *model.Node, st interaction.State) NodeSnapshot {
	return NodeSnapshot{
		ID:         n.ID,
		Category:   n.Category,
		Label:      n.Label,
		X:          n.Pos.X,
		Y:          n.Pos.Y,
		VX:         n.Vel.X,
		VY:         n.Vel.Y,
		Fixed:      n.Fixed,
		Active:     st.IsActiveNode(n.ID),
		Degree:     g.Degree(n.ID),
		Centrality: g.Centrality(n.ID),
	}
}
