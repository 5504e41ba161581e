package model

import (
	"errors"
	"image/color"
	"strings"
	"testing"
)

func triangle() ([]NodeSpec, []EdgeSpec, []PathSpec) {
	nodes := []NodeSpec{
		{ID: "center", Category: "shield", Fixed: true},
		{ID: "a", Category: "user", Offset: Point{-50, 0}},
		{ID: "b", Category: "key", Offset: Point{60, 20}},
		{ID: "c", Category: "cloud", Offset: Point{0, 100}},
	}
	edges := []EdgeSpec{
		{ID: "e1", Source: "center", Target: "a", Strength: 0.5, Label: "manages"},
		{ID: "e2", Source: "a", Target: "b", Strength: 0.7, Label: "owns"},
		{ID: "e3", Source: "center", Target: "c", Strength: 0.3, Label: "secures"},
	}
	paths := []PathSpec{{ID: "p1", Edges: []string{"e1", "e2"}, Description: "user key"}}
	return nodes, edges, paths
}

func TestNew_ValidTopology(t *testing.T) {
	nodes, edges, paths := triangle()
	g, err := New(nodes, edges, paths, nil, Bounds{Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if got := len(g.Nodes()); got != 4 {
		t.Errorf("Expected 4 nodes, got %d", got)
	}
	if g.Anchor() == nil || g.Anchor().ID != "center" {
		t.Fatalf("Expected anchor 'center', got %+v", g.Anchor())
	}
	if g.Anchor().Pos != (Point{400, 300}) {
		t.Errorf("Anchor should sit at the container center, got %+v", g.Anchor().Pos)
	}
	if a := g.Node("a"); a.Pos != (Point{350, 300}) {
		t.Errorf("Node a should start at center+offset, got %+v", a.Pos)
	}
	if a := g.Node("a"); a.Label != "User Identity" {
		t.Errorf("Label should default to the category label, got %q", a.Label)
	}
	if g.Edge("e2") == nil || g.Path("p1") == nil {
		t.Error("Expected edge e2 and path p1 to be indexed")
	}
	if g.Node("missing") != nil || g.Edge("missing") != nil || g.Path("missing") != nil {
		t.Error("Lookups for unknown ids should return nil")
	}
}

func TestNew_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(n *[]NodeSpec, e *[]EdgeSpec, p *[]PathSpec)
		want   string
	}{
		{"DanglingEdge", func(n *[]NodeSpec, e *[]EdgeSpec, p *[]PathSpec) {
			*e = append(*e, EdgeSpec{ID: "e9", Source: "a", Target: "ghost", Strength: 0.5})
		}, `unknown node "ghost"`},
		{"NoFixed", func(n *[]NodeSpec, e *[]EdgeSpec, p *[]PathSpec) {
			(*n)[0].Fixed = false
		}, "found none"},
		{"TwoFixed", func(n *[]NodeSpec, e *[]EdgeSpec, p *[]PathSpec) {
			(*n)[1].Fixed = true
		}, "found 2"},
		{"DuplicateNode", func(n *[]NodeSpec, e *[]EdgeSpec, p *[]PathSpec) {
			*n = append(*n, NodeSpec{ID: "a", Category: "user"})
		}, `node "a": duplicate id`},
		{"DuplicateEdge", func(n *[]NodeSpec, e *[]EdgeSpec, p *[]PathSpec) {
			*e = append(*e, EdgeSpec{ID: "e1", Source: "b", Target: "c", Strength: 0.5})
		}, `edge "e1": duplicate id`},
		{"DuplicatePath", func(n *[]NodeSpec, e *[]EdgeSpec, p *[]PathSpec) {
			*p = append(*p, PathSpec{ID: "p1", Edges: []string{"e3"}})
		}, `path "p1": duplicate id`},
		{"UnknownCategory", func(n *[]NodeSpec, e *[]EdgeSpec, p *[]PathSpec) {
			*n = append(*n, NodeSpec{ID: "z", Category: "printer"})
		}, `unknown category "printer"`},
		{"StrengthOutOfRange", func(n *[]NodeSpec, e *[]EdgeSpec, p *[]PathSpec) {
			(*e)[0].Strength = 1.5
		}, "outside (0,1]"},
		{"ZeroStrength", func(n *[]NodeSpec, e *[]EdgeSpec, p *[]PathSpec) {
			(*e)[0].Strength = 0
		}, "outside (0,1]"},
		{"SelfLoop", func(n *[]NodeSpec, e *[]EdgeSpec, p *[]PathSpec) {
			*e = append(*e, EdgeSpec{ID: "loop", Source: "b", Target: "b", Strength: 0.5})
		}, "same node"},
		{"PathUnknownEdge", func(n *[]NodeSpec, e *[]EdgeSpec, p *[]PathSpec) {
			*p = append(*p, PathSpec{ID: "p2", Edges: []string{"nope"}})
		}, `unknown edge "nope"`},
		{"EmptyPath", func(n *[]NodeSpec, e *[]EdgeSpec, p *[]PathSpec) {
			*p = append(*p, PathSpec{ID: "p3"})
		}, "no edges"},
		{"EmptyNodeID", func(n *[]NodeSpec, e *[]EdgeSpec, p *[]PathSpec) {
			*n = append(*n, NodeSpec{Category: "user"})
		}, "id is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, edges, paths := triangle()
			tt.mutate(&nodes, &edges, &paths)
			g, err := New(nodes, edges, paths, nil, Bounds{Width: 800, Height: 600})
			if err == nil {
				t.Fatalf("Expected ConfigError, got graph with %d nodes", len(g.Nodes()))
			}
			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("Expected *ConfigError, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestNew_CollectsAllProblems(t *testing.T) {
	nodes, edges, paths := triangle()
	nodes[0].Fixed = false
	edges = append(edges, EdgeSpec{ID: "bad", Source: "a", Target: "ghost", Strength: 2})

	_, err := New(nodes, edges, paths, nil, Bounds{})
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected *ConfigError, got %v", err)
	}
	if len(cerr.Problems) != 3 {
		t.Errorf("Expected 3 problems, got %d: %v", len(cerr.Problems), cerr.Problems)
	}
	if !strings.Contains(err.Error(), "3 problems") {
		t.Errorf("Error should summarize the count, got %q", err.Error())
	}
}

func TestGraph_Queries(t *testing.T) {
	nodes, edges, paths := triangle()
	g, err := New(nodes, edges, paths, nil, Bounds{Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var ids []string
	for _, e := range g.Neighbors("a") {
		ids = append(ids, e.ID)
	}
	if strings.Join(ids, ",") != "e1,e2" {
		t.Errorf("Neighbors(a) = %v, want [e1 e2]", ids)
	}
	if adj := g.Adjacent("a"); strings.Join(adj, ",") != "center,b" {
		t.Errorf("Adjacent(a) = %v, want [center b]", adj)
	}
	if !g.Connected("b", "a") || g.Connected("b", "c") {
		t.Error("Connected should be symmetric and only true for direct edges")
	}
	if g.Degree("center") != 2 || g.Degree("c") != 1 {
		t.Errorf("Unexpected degrees: center=%d c=%d", g.Degree("center"), g.Degree("c"))
	}
	if g.Centrality("a") <= 0 {
		t.Errorf("Node a bridges center and b, expected positive centrality, got %v", g.Centrality("a"))
	}
	if g.Centrality("b") != 0 {
		t.Errorf("Leaf b should have zero centrality, got %v", g.Centrality("b"))
	}
	if len(g.Neighbors("missing")) != 0 {
		t.Error("Neighbors of unknown id should be empty")
	}
}

func TestGraph_Resize(t *testing.T) {
	nodes, edges, paths := triangle()
	g, err := New(nodes, edges, paths, nil, Bounds{Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	g.Node("a").Vel = Point{3, 3}

	g.Resize(Bounds{Width: 400, Height: 1200})

	if got := g.Anchor().Pos; got != (Point{200, 600}) {
		t.Errorf("Anchor should be recentered, got %+v", got)
	}
	// a was at offset (-50, 0); x halves, y doubles.
	if got := g.Node("a").Pos; got != (Point{175, 600}) {
		t.Errorf("Node a rescaled to %+v, want {175 600}", got)
	}
	if got := g.Node("b").Pos; got != (Point{230, 640}) {
		t.Errorf("Node b rescaled to %+v, want {230 640}", got)
	}
	if g.Node("a").Vel != (Point{}) {
		t.Error("Resize should reset velocities")
	}
	if g.Bounds() != (Bounds{Width: 400, Height: 1200}) {
		t.Errorf("Bounds not updated: %+v", g.Bounds())
	}
}

func TestGraph_ResizeFromZero(t *testing.T) {
	nodes, edges, paths := triangle()
	g, err := New(nodes, edges, paths, nil, Bounds{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	g.Resize(Bounds{Width: 200, Height: 200})
	if got := g.Node("a").Pos; got != (Point{50, 100}) {
		t.Errorf("Expected center+offset after first resize, got %+v", got)
	}

	g.Resize(Bounds{})
	if g.Bounds() != (Bounds{Width: 200, Height: 200}) {
		t.Error("Resizing to zero bounds should be ignored")
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#7c3aed", color.RGBA{0x7c, 0x3a, 0xed, 0xff}, false},
		{"fff", color.RGBA{0xff, 0xff, 0xff, 0xff}, false},
		{"#12345", color.RGBA{}, true},
		{"#gggggg", color.RGBA{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHex(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseHex(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
	if Hex(MustHex("#3b82f6")) != "#3b82f6" {
		t.Error("Hex should round-trip MustHex")
	}
}

func TestCategorySet_Merge(t *testing.T) {
	base := DefaultCategories()
	merged := base.Merge(CategorySet{
		"user":    {Name: "user", Size: 30},
		"printer": {Name: "printer", Size: 20},
	})
	if merged["user"].Size != 30 {
		t.Errorf("Override not applied: %+v", merged["user"])
	}
	if _, ok := merged["printer"]; !ok {
		t.Error("New category not added")
	}
	if base["user"].Size != 24 {
		t.Error("Merge must not mutate the receiver")
	}
}
