// Package render turns graph positions and highlight state into draw
// instructions, and draws them onto raster, vector or terminal surfaces.
package render

import (
	"image/color"
	"math"
	"time"

	"github.com/vanderheijden86/identigraph/pkg/interaction"
	"github.com/vanderheijden86/identigraph/pkg/model"
)

// Options tunes frame composition.
type Options struct {
	CurveBend    float64 // Control point offset as a fraction of edge length; 0 draws straight edges
	PulsePeriod  time.Duration
	PulseOffsets []float64 // Pulse positions along an active edge at elapsed=0
	RingPeriod   time.Duration
}

// DefaultOptions matches the widget's canvas animation.
func DefaultOptions() Options {
	return Options{
		PulsePeriod:  2 * time.Second,
		PulseOffsets: []float64{0.2, 0.5, 0.8},
		RingPeriod:   1500 * time.Millisecond,
	}
}

// Node scale factors.
const (
	ScaleBase    = 1.0
	ScaleActive  = 1.1
	ScaleHovered = 1.2
)

// Edge stroke styles.
const (
	ActiveWidth = 2.0
	IdleWidth   = 1.0
	IdleOpacity = 0.15
)

// Glow opacities behind node markers.
const (
	GlowBase    = 0.2
	GlowActive  = 0.5
	GlowHovered = 0.6
)

// EdgeDraw describes one edge for the edge pass.
type EdgeDraw struct {
	ID        string
	From, To  model.Point
	Control   model.Point // Quadratic control point when Curved
	Curved    bool
	Active    bool
	Width     float64
	Opacity   float64
	FromColor color.RGBA
	ToColor   color.RGBA
	Pulses    []model.Point
	Label     string // Empty unless Active
	LabelAt   model.Point
}

// At returns the point at parameter t in [0,1] along the edge.
func (e EdgeDraw) At(t float64) model.Point {
	if !e.Curved {
		return e.From.Lerp(e.To, t)
	}
	u := 1 - t
	return model.Point{
		X: u*u*e.From.X + 2*u*t*e.Control.X + t*t*e.To.X,
		Y: u*u*e.From.Y + 2*u*t*e.Control.Y + t*t*e.To.Y,
	}
}

// Ring is the expanding pulse drawn around an active node.
type Ring struct {
	Radius  float64
	Opacity float64
}

// NodeDraw describes one node for the node pass.
type NodeDraw struct {
	ID          string
	Label       string
	Icon        string
	Center      model.Point
	Radius      float64 // Unscaled marker radius
	Color       color.RGBA
	Scale       float64 // Displayed scale, eased toward TargetScale
	TargetScale float64
	Glow        float64
	Anchor      bool
	Active      bool
	Hovered     bool
	ShowLabel   bool
	Ring        *Ring
	Badge       int // Connection count shown while hovered or active, 0 hides it
}

// Frame is everything one render pass needs.
type Frame struct {
	Bounds  model.Bounds
	Elapsed time.Duration
	Phase   interaction.Phase
	Edges   []EdgeDraw
	Nodes   []NodeDraw
}

// Compose builds a frame from the current positions and highlight state.
// It never mutates g or st. anim may be nil, in which case scales snap to
// their targets. Edges whose endpoints cannot be resolved are skipped.
func Compose(g *model.Graph, st interaction.State, elapsed time.Duration, opts Options, anim *ScaleAnimator) Frame {
	f := Frame{
		Bounds:  g.Bounds(),
		Elapsed: elapsed,
		Phase:   st.Phase,
		Edges:   make([]EdgeDraw, 0, len(g.Edges())),
		Nodes:   make([]NodeDraw, 0, len(g.Nodes())),
	}

	for _, e := range g.Edges() {
		src, dst := g.Node(e.Source), g.Node(e.Target)
		if src == nil || dst == nil {
			continue
		}
		f.Edges = append(f.Edges, composeEdge(e, src, dst, st.IsActiveEdge(e.ID), elapsed, opts))
	}

	for _, n := range g.Nodes() {
		if n == nil {
			continue
		}
		f.Nodes = append(f.Nodes, composeNode(g, n, st, elapsed, opts, anim))
	}
	return f
}

func composeEdge(e *model.Edge, src, dst *model.Node, active bool, elapsed time.Duration, opts Options) EdgeDraw {
	d := EdgeDraw{
		ID:        e.ID,
		From:      src.Pos,
		To:        dst.Pos,
		Active:    active,
		Width:     IdleWidth,
		Opacity:   IdleOpacity,
		FromColor: src.Color,
		ToColor:   dst.Color,
	}

	if opts.CurveBend > 0 {
		chord := dst.Pos.Sub(src.Pos)
		if length := chord.Len(); length > 0 {
			mid := src.Pos.Lerp(dst.Pos, 0.5)
			perp := model.Point{X: -chord.Y / length, Y: chord.X / length}
			d.Control = mid.Add(perp.Scale(length * opts.CurveBend))
			d.Curved = true
		}
	}

	if !active {
		return d
	}
	d.Width = ActiveWidth
	d.Opacity = 1
	d.Label = e.Label
	d.LabelAt = d.At(0.5)

	phase := 0.0
	if opts.PulsePeriod > 0 {
		phase = float64(elapsed%opts.PulsePeriod) / float64(opts.PulsePeriod)
	}
	d.Pulses = make([]model.Point, 0, len(opts.PulseOffsets))
	for _, off := range opts.PulseOffsets {
		t := math.Mod(phase+off, 1)
		d.Pulses = append(d.Pulses, d.At(t))
	}
	return d
}

func composeNode(g *model.Graph, n *model.Node, st interaction.State, elapsed time.Duration, opts Options, anim *ScaleAnimator) NodeDraw {
	hovered := st.IsHovered(n.ID)
	active := st.IsActiveNode(n.ID)

	d := NodeDraw{
		ID:          n.ID,
		Label:       n.Label,
		Icon:        n.Icon,
		Center:      n.Pos,
		Radius:      n.VisualRadius(),
		Color:       n.Color,
		TargetScale: ScaleBase,
		Glow:        GlowBase,
		Anchor:      n.Fixed,
		Active:      active,
		Hovered:     hovered,
	}
	switch {
	case hovered:
		d.TargetScale, d.Glow = ScaleHovered, GlowHovered
	case active:
		d.TargetScale, d.Glow = ScaleActive, GlowActive
	}

	d.Scale = d.TargetScale
	if anim != nil {
		d.Scale = anim.Update(n.ID, d.TargetScale)
	}

	d.ShowLabel = n.Fixed || hovered || active
	if hovered || active {
		d.Badge = g.Degree(n.ID)
	}

	if active && opts.RingPeriod > 0 {
		progress := float64(elapsed%opts.RingPeriod) / float64(opts.RingPeriod)
		d.Ring = &Ring{
			Radius:  d.Radius * (1 + progress),
			Opacity: 1 - progress,
		}
	}
	return d
}
