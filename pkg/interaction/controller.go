// Package interaction turns pointer events and timers into the highlight
// state read by the renderer: hover hit-testing, click-driven neighborhood
// activation with token-guarded decay, and periodic path activation.
package interaction

import (
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vanderheijden86/identigraph/pkg/clock"
	"github.com/vanderheijden86/identigraph/pkg/model"
)

// Phase is the controller's position in its state machine.
type Phase int

const (
	// Idle means nothing is hovered or active.
	Idle Phase = iota
	// Hovering means the pointer is over a node and nothing is active.
	Hovering
	// Activated means a user click highlighted a neighborhood.
	Activated
	// AutoActivated means a path was highlighted by the periodic timer.
	AutoActivated
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Hovering:
		return "hovering"
	case Activated:
		return "activated"
	case AutoActivated:
		return "auto_activated"
	default:
		return "unknown"
	}
}

// MarshalText lets Phase render as its name in JSON.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Origin records who started the current activation.
type Origin int

const (
	OriginNone Origin = iota
	OriginUser
	OriginAuto
)

// Options tunes the controller.
type Options struct {
	HitMargin    float64       // Added to a node's visual radius when hit-testing
	ClickDecay   time.Duration // How long a click activation stays lit
	AutoInterval time.Duration // Period of autonomous path activation
	AutoDecay    time.Duration // How long an autonomous activation stays lit
	AutoEnabled  bool

	Clock  clock.Clock
	Rand   Picker
	Logger *zap.Logger
}

// Picker chooses a random index in [0,n). *rand.Rand satisfies it.
type Picker interface {
	IntN(n int) int
}

// DefaultOptions returns the timings used by the widget.
func DefaultOptions() Options {
	return Options{
		HitMargin:    10,
		ClickDecay:   3 * time.Second,
		AutoInterval: 5 * time.Second,
		AutoDecay:    2 * time.Second,
		AutoEnabled:  true,
	}
}

type pathActivation struct {
	id    string
	nodes []string
	edges []string
}

// Controller owns the highlight state of one session. Pointer events,
// timer callbacks and readers may come from different goroutines; every
// mutation replaces the active sets under the lock, and State hands out
// copies.
type Controller struct {
	graph *model.Graph
	opts  Options
	clock clock.Clock
	rnd   Picker
	log   *zap.Logger
	paths []pathActivation

	mu          sync.Mutex
	hovered     string
	activeNodes map[string]bool
	activeEdges map[string]bool
	origin      Origin
	pathID      string
	activatedAt time.Time
	expiresAt   time.Time
	generation  uint64
	autoEnabled bool
	started     bool
	tornDown    bool
	interval    clock.Timer
}

// New creates a controller for g. Zero-valued options fall back to defaults.
func New(g *model.Graph, opts Options) *Controller {
	def := DefaultOptions()
	if opts.ClickDecay <= 0 {
		opts.ClickDecay = def.ClickDecay
	}
	if opts.AutoInterval <= 0 {
		opts.AutoInterval = def.AutoInterval
	}
	if opts.AutoDecay <= 0 {
		opts.AutoDecay = def.AutoDecay
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	c := &Controller{
		graph:       g,
		opts:        opts,
		clock:       opts.Clock,
		rnd:         opts.Rand,
		log:         opts.Logger.Named("interaction"),
		activeNodes: map[string]bool{},
		activeEdges: map[string]bool{},
		autoEnabled: opts.AutoEnabled,
	}
	for _, p := range g.Paths() {
		c.paths = append(c.paths, resolvePath(g, p))
	}
	return c
}

// resolvePath collects a path's edges and the nodes they touch.
func resolvePath(g *model.Graph, p *model.Path) pathActivation {
	pa := pathActivation{id: p.ID}
	seen := map[string]bool{}
	for _, id := range p.EdgeIDs {
		e := g.Edge(id)
		if e == nil {
			continue
		}
		pa.edges = append(pa.edges, e.ID)
		for _, n := range []string{e.Source, e.Target} {
			if !seen[n] {
				seen[n] = true
				pa.nodes = append(pa.nodes, n)
			}
		}
	}
	return pa
}

// Start arms the periodic auto-activation timer. Start is idempotent.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.tornDown {
		return
	}
	c.started = true
	c.scheduleTickLocked()
}

func (c *Controller) scheduleTickLocked() {
	c.interval = c.clock.AfterFunc(c.opts.AutoInterval, c.tick)
}

func (c *Controller) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return
	}
	c.scheduleTickLocked()

	if !c.autoEnabled || c.origin == OriginUser || len(c.paths) == 0 {
		return
	}
	p := c.paths[c.rnd.IntN(len(c.paths))]
	c.activateLocked(p.nodes, p.edges, OriginAuto, p.id, c.opts.AutoDecay)
}

// HitTest returns the first node, in declaration order, whose marker plus
// the hit margin contains pt.
func (c *Controller) HitTest(pt model.Point) string {
	for _, n := range c.graph.Nodes() {
		if n.Pos.Dist(pt) <= n.VisualRadius()+c.opts.HitMargin {
			return n.ID
		}
	}
	return ""
}

// PointerMove updates the hovered node and returns its id, or "" when the
// pointer is over empty background.
func (c *Controller) PointerMove(pt model.Point) string {
	id := c.HitTest(pt)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return ""
	}
	c.hovered = id
	return id
}

// PointerLeave clears the hovered node.
func (c *Controller) PointerLeave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hovered = ""
}

// Click activates the neighborhood of the node under pt. Clicking empty
// background dismisses the current activation. It reports whether a node
// was activated.
func (c *Controller) Click(pt model.Point) bool {
	id := c.HitTest(pt)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return false
	}
	c.hovered = id
	if id == "" {
		c.dismissLocked()
		return false
	}
	c.activateNodeLocked(id)
	return true
}

// Activate highlights the neighborhood of id as if it had been clicked.
func (c *Controller) Activate(id string) bool {
	if c.graph.Node(id) == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return false
	}
	c.activateNodeLocked(id)
	return true
}

func (c *Controller) activateNodeLocked(id string) {
	nodes := append([]string{id}, c.graph.Adjacent(id)...)
	var edges []string
	for _, e := range c.graph.Neighbors(id) {
		edges = append(edges, e.ID)
	}
	c.activateLocked(nodes, edges, OriginUser, "", c.opts.ClickDecay)
}

// activateLocked swaps in new active sets and schedules their decay under a
// fresh generation token.
func (c *Controller) activateLocked(nodes, edges []string, origin Origin, pathID string, decay time.Duration) {
	an := make(map[string]bool, len(nodes))
	for _, id := range nodes {
		an[id] = true
	}
	ae := make(map[string]bool, len(edges))
	for _, id := range edges {
		ae[id] = true
	}

	c.generation++
	token := c.generation
	now := c.clock.Now()

	c.activeNodes, c.activeEdges = an, ae
	c.origin = origin
	c.pathID = pathID
	c.activatedAt = now
	c.expiresAt = now.Add(decay)

	c.clock.AfterFunc(decay, func() { c.expire(token) })
	c.log.Debug("activated",
		zap.Uint64("generation", token),
		zap.Int("nodes", len(an)),
		zap.Int("edges", len(ae)),
		zap.String("path", pathID),
		zap.Bool("auto", origin == OriginAuto),
	)
}

// expire clears the active sets only if no newer activation replaced the
// one that scheduled it.
func (c *Controller) expire(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown || token != c.generation {
		return
	}
	c.clearLocked()
	c.log.Debug("decayed", zap.Uint64("generation", token))
}

// Dismiss clears the current activation immediately.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dismissLocked()
}

func (c *Controller) dismissLocked() {
	if c.tornDown || c.origin == OriginNone {
		return
	}
	c.generation++
	c.clearLocked()
}

func (c *Controller) clearLocked() {
	c.activeNodes = map[string]bool{}
	c.activeEdges = map[string]bool{}
	c.origin = OriginNone
	c.pathID = ""
	c.activatedAt = time.Time{}
	c.expiresAt = time.Time{}
}

// SetAutoActivationEnabled toggles periodic path activation.
func (c *Controller) SetAutoActivationEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoEnabled = enabled
}

// Teardown stops the interval and invalidates every pending decay. After
// Teardown no event or timer changes the state.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return
	}
	c.tornDown = true
	c.generation++
	if c.interval != nil {
		c.interval.Stop()
	}
	c.clearLocked()
	c.hovered = ""
}

// State returns a copy of the current highlight state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Hovered:     c.hovered,
		ActiveNodes: make(map[string]bool, len(c.activeNodes)),
		ActiveEdges: make(map[string]bool, len(c.activeEdges)),
		Generation:  c.generation,
		Origin:      c.origin,
		PathID:      c.pathID,
		ActivatedAt: c.activatedAt,
		ExpiresAt:   c.expiresAt,
		AutoEnabled: c.autoEnabled,
	}
	for k := range c.activeNodes {
		st.ActiveNodes[k] = true
	}
	for k := range c.activeEdges {
		st.ActiveEdges[k] = true
	}

	switch {
	case c.origin == OriginUser:
		st.Phase = Activated
	case c.origin == OriginAuto:
		st.Phase = AutoActivated
	case c.hovered != "":
		st.Phase = Hovering
	default:
		st.Phase = Idle
	}
	return st
}
