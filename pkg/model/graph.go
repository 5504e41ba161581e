package model

import (
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
)

// Graph is the static topology of one session plus the kinematic state of
// its nodes. Topology never changes after New; only node Pos and Vel do.
type Graph struct {
	nodes []*Node
	edges []*Edge
	paths []*Path

	nodeIdx map[string]*Node
	edgeIdx map[string]*Edge
	pathIdx map[string]*Path

	incident map[string][]*Edge // node id -> edges touching it, declaration order
	adjacent map[string][]string
	linked   map[pairKey]bool

	degree     map[string]int
	centrality map[string]float64

	cats   CategorySet
	anchor *Node
	bounds Bounds
}

type pairKey struct{ a, b string }

func pair(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// New validates the topology and builds a Graph laid out inside bounds.
// Nodes start at center+Offset; the fixed node starts at the center. When
// bounds is zero the nodes keep their raw offsets until the first Resize.
//
// All problems are collected into a single *ConfigError.
func New(nodes []NodeSpec, edges []EdgeSpec, paths []PathSpec, cats CategorySet, bounds Bounds) (*Graph, error) {
	if cats == nil {
		cats = DefaultCategories()
	}
	cerr := &ConfigError{}

	g := &Graph{
		nodeIdx:    make(map[string]*Node, len(nodes)),
		edgeIdx:    make(map[string]*Edge, len(edges)),
		pathIdx:    make(map[string]*Path, len(paths)),
		incident:   make(map[string][]*Edge, len(nodes)),
		adjacent:   make(map[string][]string, len(nodes)),
		linked:     make(map[pairKey]bool, len(edges)),
		degree:     make(map[string]int, len(nodes)),
		centrality: make(map[string]float64, len(nodes)),
		cats:       cats,
	}

	fixed := 0
	for i, spec := range nodes {
		if spec.ID == "" {
			cerr.addf("node[%d]: id is required", i)
			continue
		}
		if _, dup := g.nodeIdx[spec.ID]; dup {
			cerr.addf("node %q: duplicate id", spec.ID)
			continue
		}
		cat, ok := cats[spec.Category]
		if !ok {
			cerr.addf("node %q: unknown category %q", spec.ID, spec.Category)
			continue
		}
		label := spec.Label
		if label == "" {
			label = cat.Label
		}
		n := &Node{
			ID:       spec.ID,
			Category: spec.Category,
			Label:    label,
			Icon:     cat.Icon,
			Color:    cat.Color,
			Size:     cat.Size,
			Fixed:    spec.Fixed,
			Offset:   spec.Offset,
		}
		if n.Fixed {
			fixed++
			g.anchor = n
		}
		g.nodes = append(g.nodes, n)
		g.nodeIdx[n.ID] = n
	}
	switch {
	case fixed == 0:
		cerr.addf("exactly one node must be fixed, found none")
	case fixed > 1:
		cerr.addf("exactly one node must be fixed, found %d", fixed)
	}

	for i, spec := range edges {
		if spec.ID == "" {
			cerr.addf("edge[%d]: id is required", i)
			continue
		}
		if _, dup := g.edgeIdx[spec.ID]; dup {
			cerr.addf("edge %q: duplicate id", spec.ID)
			continue
		}
		bad := false
		for _, end := range []string{spec.Source, spec.Target} {
			if _, ok := g.nodeIdx[end]; !ok {
				cerr.addf("edge %q: unknown node %q", spec.ID, end)
				bad = true
			}
		}
		if spec.Source == spec.Target && spec.Source != "" {
			cerr.addf("edge %q: source and target are the same node", spec.ID)
			bad = true
		}
		if spec.Strength <= 0 || spec.Strength > 1 {
			cerr.addf("edge %q: strength %g outside (0,1]", spec.ID, spec.Strength)
			bad = true
		}
		if bad {
			continue
		}
		e := &Edge{
			ID:       spec.ID,
			Source:   spec.Source,
			Target:   spec.Target,
			Strength: spec.Strength,
			Label:    spec.Label,
		}
		g.edges = append(g.edges, e)
		g.edgeIdx[e.ID] = e
	}

	for i, spec := range paths {
		if spec.ID == "" {
			cerr.addf("path[%d]: id is required", i)
			continue
		}
		if _, dup := g.pathIdx[spec.ID]; dup {
			cerr.addf("path %q: duplicate id", spec.ID)
			continue
		}
		if len(spec.Edges) == 0 {
			cerr.addf("path %q: no edges", spec.ID)
			continue
		}
		bad := false
		for _, id := range spec.Edges {
			if _, ok := g.edgeIdx[id]; !ok {
				cerr.addf("path %q: unknown edge %q", spec.ID, id)
				bad = true
			}
		}
		if bad {
			continue
		}
		p := &Path{
			ID:          spec.ID,
			EdgeIDs:     append([]string(nil), spec.Edges...),
			Description: spec.Description,
		}
		g.paths = append(g.paths, p)
		g.pathIdx[p.ID] = p
	}

	if err := cerr.orNil(); err != nil {
		return nil, err
	}

	g.index()
	g.place(bounds)
	return g, nil
}

// index builds adjacency lookups and connection metrics.
func (g *Graph) index() {
	ug := simple.NewUndirectedGraph()
	ids := make(map[string]int64, len(g.nodes))
	for i, n := range g.nodes {
		ids[n.ID] = int64(i)
		ug.AddNode(simple.Node(int64(i)))
	}

	for _, e := range g.edges {
		g.incident[e.Source] = append(g.incident[e.Source], e)
		g.incident[e.Target] = append(g.incident[e.Target], e)
		g.linked[pair(e.Source, e.Target)] = true
		ug.SetEdge(simple.Edge{F: simple.Node(ids[e.Source]), T: simple.Node(ids[e.Target])})
	}

	for _, n := range g.nodes {
		seen := make(map[string]bool)
		for _, e := range g.incident[n.ID] {
			other := e.Other(n.ID)
			if !seen[other] {
				seen[other] = true
				g.adjacent[n.ID] = append(g.adjacent[n.ID], other)
			}
		}
		g.degree[n.ID] = len(g.incident[n.ID])
	}

	bc := network.Betweenness(ug)
	for _, n := range g.nodes {
		g.centrality[n.ID] = bc[ids[n.ID]]
	}
}

// place sets initial positions relative to the center of bounds.
func (g *Graph) place(bounds Bounds) {
	g.bounds = bounds
	c := Point{}
	if !bounds.IsZero() {
		c = bounds.Center()
	}
	for _, n := range g.nodes {
		n.Vel = Point{}
		if n.Fixed {
			n.Pos = c
			continue
		}
		n.Pos = c.Add(n.Offset)
	}
}

// Resize recenters the fixed node and rescales every other node's position
// relative to the center by the per-axis ratio of new to old dimensions.
// Velocities are reset. Resizing from zero bounds places nodes at their
// configured offsets.
func (g *Graph) Resize(bounds Bounds) {
	if bounds.IsZero() {
		return
	}
	old := g.bounds
	if old.IsZero() {
		g.place(bounds)
		return
	}
	oc, nc := old.Center(), bounds.Center()
	sx, sy := bounds.Width/old.Width, bounds.Height/old.Height
	for _, n := range g.nodes {
		n.Vel = Point{}
		if n.Fixed {
			n.Pos = nc
			continue
		}
		rel := n.Pos.Sub(oc)
		n.Pos = Point{nc.X + rel.X*sx, nc.Y + rel.Y*sy}
	}
	g.bounds = bounds
}

// Bounds returns the container size the graph is currently laid out in.
func (g *Graph) Bounds() Bounds { return g.bounds }

// Anchor returns the single fixed node.
func (g *Graph) Anchor() *Node { return g.anchor }

// Category looks up a category by name.
func (g *Graph) Category(name string) (Category, bool) {
	c, ok := g.cats[name]
	return c, ok
}

// Nodes returns all nodes in declaration order.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Edges returns all edges in declaration order.
func (g *Graph) Edges() []*Edge { return g.edges }

// Paths returns all paths in declaration order.
func (g *Graph) Paths() []*Path { return g.paths }

// Node returns the node with id, or nil.
func (g *Graph) Node(id string) *Node { return g.nodeIdx[id] }

// Edge returns the edge with id, or nil.
func (g *Graph) Edge(id string) *Edge { return g.edgeIdx[id] }

// Path returns the path with id, or nil.
func (g *Graph) Path(id string) *Path { return g.pathIdx[id] }

// Neighbors returns the edges touching id in declaration order.
func (g *Graph) Neighbors(id string) []*Edge { return g.incident[id] }

// Adjacent returns the ids of nodes sharing an edge with id.
func (g *Graph) Adjacent(id string) []string { return g.adjacent[id] }

// Connected reports whether a direct edge joins a and b.
func (g *Graph) Connected(a, b string) bool { return g.linked[pair(a, b)] }

// Degree is the number of edges touching id.
func (g *Graph) Degree(id string) int { return g.degree[id] }

// Centrality is the betweenness centrality of id in the undirected topology.
func (g *Graph) Centrality(id string) float64 { return g.centrality[id] }
