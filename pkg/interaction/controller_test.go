package interaction

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"pgregory.net/rapid"

	"github.com/vanderheijden86/identigraph/pkg/clock"
	"github.com/vanderheijden86/identigraph/pkg/model"
)

// fixedPicker always picks the same path.
type fixedPicker int

func (f fixedPicker) IntN(n int) int { return int(f) % n }

// fatalHelper is the part of testing.TB that rapid.T also provides.
type fatalHelper interface {
	Helper()
	Fatalf(format string, args ...any)
}

func testGraph(t fatalHelper) *model.Graph {
	t.Helper()
	g, err := model.New(
		[]model.NodeSpec{
			{ID: "center", Category: "shield", Fixed: true},
			{ID: "a", Category: "user", Offset: model.Point{X: -100}},
			{ID: "b", Category: "key", Offset: model.Point{X: -100, Y: 100}},
			{ID: "c", Category: "cloud", Offset: model.Point{X: 150, Y: -50}},
		},
		[]model.EdgeSpec{
			{ID: "e1", Source: "a", Target: "center", Strength: 0.7, Label: "manages"},
			{ID: "e2", Source: "a", Target: "b", Strength: 0.5, Label: "owns"},
			{ID: "e3", Source: "center", Target: "c", Strength: 0.6, Label: "secures"},
		},
		[]model.PathSpec{{ID: "p1", Edges: []string{"e3"}, Description: "cloud"}},
		nil,
		model.Bounds{Width: 800, Height: 600},
	)
	if err != nil {
		t.Fatalf("model.New failed: %v", err)
	}
	return g
}

func newTestController(t testing.TB) (*Controller, *clock.Manual, *model.Graph) {
	g := testGraph(t)
	clk := clock.NewManual(time.Unix(1000, 0))
	opts := DefaultOptions()
	opts.Clock = clk
	opts.Rand = fixedPicker(0)
	return New(g, opts), clk, g
}

func TestPointerMove_HoversNode(t *testing.T) {
	c, _, g := newTestController(t)

	if got := c.PointerMove(g.Node("a").Pos); got != "a" {
		t.Errorf("Expected hover on a, got %q", got)
	}
	if st := c.State(); st.Phase != Hovering || !st.IsHovered("a") {
		t.Errorf("Expected Hovering(a), got %v hovered=%q", st.Phase, st.Hovered)
	}

	// user marker radius 12 + margin 10
	edge := g.Node("a").Pos.Add(model.Point{X: 22})
	if got := c.PointerMove(edge); got != "a" {
		t.Errorf("Point on the hit boundary should hover a, got %q", got)
	}
	if got := c.PointerMove(edge.Add(model.Point{X: 0.5})); got != "" {
		t.Errorf("Point outside the hit radius should clear hover, got %q", got)
	}
	if st := c.State(); st.Phase != Idle {
		t.Errorf("Expected Idle, got %v", st.Phase)
	}
}

func TestPointerMove_FirstDeclaredNodeWins(t *testing.T) {
	g, err := model.New(
		[]model.NodeSpec{
			{ID: "center", Category: "shield", Fixed: true},
			{ID: "first", Category: "user", Offset: model.Point{X: 100}},
			{ID: "second", Category: "user", Offset: model.Point{X: 104}},
		}, nil, nil, nil, model.Bounds{Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("model.New failed: %v", err)
	}
	c := New(g, Options{Clock: clock.NewManual(time.Unix(0, 0))})
	if got := c.PointerMove(model.Point{X: 502, Y: 300}); got != "first" {
		t.Errorf("Overlapping hit areas should resolve to the first node, got %q", got)
	}
}

func TestPointerMove_CenterAlwaysHits(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := testGraph(t)
		c := New(g, Options{HitMargin: rapid.Float64Range(0, 20).Draw(t, "margin"), Clock: clock.NewManual(time.Unix(0, 0))})
		for _, n := range g.Nodes() {
			if n.Fixed {
				continue
			}
			n.Pos = model.Point{
				X: rapid.Float64Range(0, 800).Draw(t, "x"),
				Y: rapid.Float64Range(0, 600).Draw(t, "y"),
			}
		}
		nodes := g.Nodes()
		target := nodes[rapid.IntRange(0, len(nodes)-1).Draw(t, "target")]
		// Nodes declared earlier would win a tie; park them out of reach.
		for _, n := range nodes {
			if n == target {
				break
			}
			n.Pos = model.Point{X: -1000, Y: -1000}
		}
		if got := c.PointerMove(target.Pos); got != target.ID {
			t.Fatalf("Pointer at %s center hovered %q", target.ID, got)
		}
	})
}

func TestClick_ActivatesNeighborhoodAndDecays(t *testing.T) {
	c, clk, g := newTestController(t)

	if !c.Click(g.Node("a").Pos) {
		t.Fatal("Click on a should activate")
	}
	st := c.State()
	if st.Phase != Activated {
		t.Errorf("Expected Activated, got %v", st.Phase)
	}
	if got := strings.Join(st.NodeIDs(), ","); got != "a,b,center" {
		t.Errorf("ActiveNodes = %s, want a,b,center", got)
	}
	if got := strings.Join(st.EdgeIDs(), ","); got != "e1,e2" {
		t.Errorf("ActiveEdges = %s, want e1,e2", got)
	}
	if !st.ExpiresAt.Equal(clk.Now().Add(3 * time.Second)) {
		t.Errorf("ExpiresAt = %v, want now+3s", st.ExpiresAt)
	}

	clk.Advance(3 * time.Second)
	st = c.State()
	if len(st.ActiveNodes) != 0 || len(st.ActiveEdges) != 0 {
		t.Errorf("Expected empty sets after decay, got %v / %v", st.NodeIDs(), st.EdgeIDs())
	}
	if st.Phase != Hovering || st.Hovered != "a" {
		t.Errorf("Hover should survive decay, got %v hovered=%q", st.Phase, st.Hovered)
	}
}

func TestClick_RestartsDecayWindow(t *testing.T) {
	c, clk, g := newTestController(t)
	at := g.Node("a").Pos

	c.Click(at)
	first := c.State().Generation
	clk.Advance(1500 * time.Millisecond)
	c.Click(at)
	if c.State().Generation == first {
		t.Fatal("Re-click should issue a new generation token")
	}

	// The first timer fires at 3s and must be a no-op.
	clk.Advance(1500 * time.Millisecond)
	if st := c.State(); st.Phase != Activated || len(st.ActiveNodes) != 3 {
		t.Fatalf("Stale decay cleared a newer activation: %v %v", st.Phase, st.NodeIDs())
	}

	clk.Advance(1500 * time.Millisecond)
	if st := c.State(); st.Phase == Activated || len(st.ActiveNodes) != 0 {
		t.Errorf("Expected activation to decay 3s after the second click, got %v %v", st.Phase, st.NodeIDs())
	}
}

func TestClick_BackgroundDismisses(t *testing.T) {
	c, clk, g := newTestController(t)
	c.Click(g.Node("a").Pos)

	if c.Click(model.Point{X: 5, Y: 5}) {
		t.Error("Click on background should not activate")
	}
	st := c.State()
	if st.Phase != Idle || len(st.ActiveNodes) != 0 {
		t.Errorf("Expected Idle after dismiss, got %v %v", st.Phase, st.NodeIDs())
	}

	gen := st.Generation
	clk.Advance(10 * time.Second)
	if c.State().Generation != gen {
		t.Error("Pending decay must not touch state after a dismiss")
	}
}

func TestActivate_Keyboard(t *testing.T) {
	c, _, _ := newTestController(t)
	if c.Activate("missing") {
		t.Error("Activate on unknown id should fail")
	}
	if !c.Activate("c") {
		t.Fatal("Activate(c) should succeed")
	}
	if got := strings.Join(c.State().NodeIDs(), ","); got != "c,center" {
		t.Errorf("ActiveNodes = %s, want c,center", got)
	}
}

func TestAutoActivation_Cycle(t *testing.T) {
	c, clk, _ := newTestController(t)
	c.Start()
	c.Start() // idempotent

	clk.Advance(5 * time.Second)
	st := c.State()
	if st.Phase != AutoActivated || st.PathID != "p1" {
		t.Fatalf("Expected AutoActivated(p1), got %v %q", st.Phase, st.PathID)
	}
	if got := strings.Join(st.NodeIDs(), ","); got != "c,center" {
		t.Errorf("ActiveNodes = %s, want c,center", got)
	}
	if got := strings.Join(st.EdgeIDs(), ","); got != "e3" {
		t.Errorf("ActiveEdges = %s, want e3", got)
	}

	clk.Advance(2 * time.Second)
	if st := c.State(); st.Phase != Idle {
		t.Errorf("Auto activation should decay after 2s, got %v", st.Phase)
	}

	clk.Advance(3 * time.Second)
	if st := c.State(); st.Phase != AutoActivated {
		t.Errorf("Expected the next tick to re-activate, got %v", st.Phase)
	}
}

func TestAutoActivation_SuppressedDuringUserActivation(t *testing.T) {
	c, clk, g := newTestController(t)
	c.Start()

	clk.Advance(4 * time.Second)
	c.Click(g.Node("a").Pos) // lives until t=7s

	clk.Advance(time.Second) // tick at t=5s
	st := c.State()
	if st.Phase != Activated || st.PathID != "" {
		t.Fatalf("Tick must not override a live user activation, got %v %q", st.Phase, st.PathID)
	}

	clk.Advance(2 * time.Second) // user decay at t=7s
	if st := c.State(); st.Phase == Activated {
		t.Fatalf("User activation should have decayed, got %v", st.Phase)
	}

	clk.Advance(3 * time.Second) // tick at t=10s
	if st := c.State(); st.Phase != AutoActivated {
		t.Errorf("Auto activation should resume after the user window, got %v", st.Phase)
	}
}

func TestAutoActivation_Disabled(t *testing.T) {
	c, clk, _ := newTestController(t)
	c.SetAutoActivationEnabled(false)
	c.Start()
	clk.Advance(30 * time.Second)
	if st := c.State(); st.Phase != Idle || st.AutoEnabled {
		t.Errorf("Disabled auto activation fired: %v", st.Phase)
	}

	c.SetAutoActivationEnabled(true)
	clk.Advance(5 * time.Second)
	if st := c.State(); st.Phase != AutoActivated {
		t.Errorf("Re-enabled auto activation should fire on the next tick, got %v", st.Phase)
	}
}

func TestTeardown_StopsEverything(t *testing.T) {
	c, clk, g := newTestController(t)
	c.Start()
	c.Click(g.Node("a").Pos)

	c.Teardown()
	c.Teardown()
	before := c.State()
	if before.Phase != Idle || len(before.ActiveNodes) != 0 {
		t.Fatalf("Teardown should clear state, got %v", before.Phase)
	}

	clk.Advance(time.Minute)
	after := c.State()
	if after.Generation != before.Generation || after.Phase != Idle || len(after.ActiveNodes) != 0 {
		t.Errorf("State changed after teardown: %+v", after)
	}
	if clk.Pending() != 0 {
		t.Errorf("Interval should not reschedule after teardown, %d timers pending", clk.Pending())
	}

	if c.Click(g.Node("a").Pos) || c.Activate("a") || c.PointerMove(g.Node("a").Pos) != "" {
		t.Error("Events after teardown must be ignored")
	}
}

func TestState_IsCopy(t *testing.T) {
	c, _, g := newTestController(t)
	c.Click(g.Node("a").Pos)
	st := c.State()
	st.ActiveNodes["intruder"] = true
	if c.State().IsActiveNode("intruder") {
		t.Error("Mutating a State copy leaked into the controller")
	}
}

func TestPhase_String(t *testing.T) {
	tests := map[Phase]string{
		Idle:          "idle",
		Hovering:      "hovering",
		Activated:     "activated",
		AutoActivated: "auto_activated",
		Phase(42):     "unknown",
	}
	for p, want := range tests {
		if got := p.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(p), got, want)
		}
	}
}

func TestStateJSON_TimestampsOnlyWhileActive(t *testing.T) {
	c, clk, g := newTestController(t)

	idle, err := json.Marshal(c.State())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, key := range []string{"activated_at", "expires_at"} {
		if strings.Contains(string(idle), key) {
			t.Errorf("Idle state should omit %s: %s", key, idle)
		}
	}
	if !strings.Contains(string(idle), `"phase":"idle"`) {
		t.Errorf("Idle state missing phase: %s", idle)
	}

	c.Click(g.Node("a").Pos)
	active, err := json.Marshal(c.State())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var got struct {
		Phase       string    `json:"phase"`
		ActivatedAt time.Time `json:"activated_at"`
		ExpiresAt   time.Time `json:"expires_at"`
	}
	if err := json.Unmarshal(active, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Phase != "activated" {
		t.Errorf("phase = %q, want activated", got.Phase)
	}
	if !got.ActivatedAt.Equal(clk.Now()) || !got.ExpiresAt.Equal(clk.Now().Add(3*time.Second)) {
		t.Errorf("Timestamps = %v / %v", got.ActivatedAt, got.ExpiresAt)
	}
}
