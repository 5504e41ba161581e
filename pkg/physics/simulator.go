// Package physics advances node positions with a damped spring/repulsion
// model, one timestep per animation frame.
package physics

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/vanderheijden86/identigraph/pkg/model"
)

// Params tunes the force model. The zero value is not useful; start from
// DefaultParams.
type Params struct {
	SpringConstant   float64 `json:"spring_constant" yaml:"spring_constant" toml:"spring_constant"`
	SpringMultiplier float64 `json:"spring_multiplier" yaml:"spring_multiplier" toml:"spring_multiplier"` // ideal = (sizeA+sizeB) * multiplier
	RepulsionGain    float64 `json:"repulsion_gain" yaml:"repulsion_gain" toml:"repulsion_gain"`
	RepulsionRadius  float64 `json:"repulsion_radius" yaml:"repulsion_radius" toml:"repulsion_radius"`
	CenterThreshold  float64 `json:"center_threshold" yaml:"center_threshold" toml:"center_threshold"`
	CenterGain       float64 `json:"center_gain" yaml:"center_gain" toml:"center_gain"`
	Damping          float64 `json:"damping" yaml:"damping" toml:"damping"`
	JitterAmplitude  float64 `json:"jitter" yaml:"jitter" toml:"jitter"` // Peak-to-peak random impulse per axis
}

// DefaultParams returns the constants the layout was tuned with.
func DefaultParams() Params {
	return Params{
		SpringConstant:   0.01,
		SpringMultiplier: 4,
		RepulsionGain:    200,
		RepulsionRadius:  200,
		CenterThreshold:  180,
		CenterGain:       0.01,
		Damping:          0.9,
		JitterAmplitude:  0.2,
	}
}

// Validate rejects parameter sets that cannot converge.
func (p Params) Validate() error {
	if p.Damping <= 0 || p.Damping >= 1 {
		return fmt.Errorf("damping %g must be in (0,1)", p.Damping)
	}
	for name, v := range map[string]float64{
		"spring_constant":   p.SpringConstant,
		"spring_multiplier": p.SpringMultiplier,
		"repulsion_gain":    p.RepulsionGain,
		"repulsion_radius":  p.RepulsionRadius,
		"center_threshold":  p.CenterThreshold,
		"center_gain":       p.CenterGain,
		"jitter":            p.JitterAmplitude,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%s %g must be non-negative", name, v)
		}
	}
	return nil
}

// Noise supplies uniform samples in [0,1). *rand.Rand satisfies it.
type Noise interface {
	Float64() float64
}

// Still is a Noise that never perturbs the layout.
type Still struct{}

// Float64 returns the midpoint, which maps to a zero impulse.
func (Still) Float64() float64 { return 0.5 }

// NewSeededNoise returns a reproducible noise source.
func NewSeededNoise(seed uint64) Noise {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Stats summarizes one step.
type Stats struct {
	Energy   float64 // Sum of squared speeds of non-fixed nodes
	MaxSpeed float64
	Moved    int
}

// Simulator advances the kinematic state of a graph.
type Simulator struct {
	params Params
	noise  Noise

	// scratch buffers reused across steps
	snap  []model.Point
	accel []model.Point
}

// New creates a simulator. A nil noise source disables jitter.
func New(params Params, noise Noise) *Simulator {
	if noise == nil {
		noise = Still{}
	}
	return &Simulator{params: params, noise: noise}
}

// Params returns the active parameters.
func (s *Simulator) Params() Params { return s.params }

// Step advances every non-fixed node by dt frames (dt=1 is one 60 Hz frame).
// All forces read positions from a snapshot taken at the start of the step,
// so node order never biases the result. Positions are clamped into bounds.
func (s *Simulator) Step(g *model.Graph, bounds model.Bounds, dt float64) Stats {
	nodes := g.Nodes()
	if dt <= 0 || len(nodes) == 0 {
		return Stats{}
	}

	if cap(s.snap) < len(nodes) {
		s.snap = make([]model.Point, len(nodes))
		s.accel = make([]model.Point, len(nodes))
	}
	snap, accel := s.snap[:len(nodes)], s.accel[:len(nodes)]
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		snap[i] = n.Pos
		accel[i] = model.Point{}
		index[n.ID] = i
	}

	p := s.params
	center := bounds.Center()

	for i, n := range nodes {
		if n.Fixed {
			continue
		}
		pos := snap[i]
		var f model.Point

		// Jitter
		f.X += (s.noise.Float64() - 0.5) * p.JitterAmplitude
		f.Y += (s.noise.Float64() - 0.5) * p.JitterAmplitude

		// Springs along incident edges
		for _, e := range g.Neighbors(n.ID) {
			j, ok := index[e.Other(n.ID)]
			if !ok {
				continue
			}
			delta := snap[j].Sub(pos)
			d := delta.Len()
			if d == 0 {
				continue
			}
			ideal := (n.Size + nodes[j].Size) * p.SpringMultiplier
			force := (d - ideal) * p.SpringConstant * e.Strength
			f = f.Add(delta.Scale(force / d))
		}

		// Repulsion from unconnected, non-fixed nodes
		for j, other := range nodes {
			if j == i || other.Fixed || g.Connected(n.ID, other.ID) {
				continue
			}
			delta := pos.Sub(snap[j])
			d := delta.Len()
			if d == 0 || d >= p.RepulsionRadius {
				continue
			}
			f = f.Add(delta.Scale(p.RepulsionGain / (d * d) / d))
		}

		// Pull back toward the container center
		toCenter := center.Sub(pos)
		if dc := toCenter.Len(); dc > p.CenterThreshold {
			f = f.Add(toCenter.Scale((dc - p.CenterThreshold) * p.CenterGain / dc))
		}

		accel[i] = f
	}

	damp := math.Pow(p.Damping, dt)
	var st Stats
	for i, n := range nodes {
		if n.Fixed {
			continue
		}
		n.Vel = n.Vel.Add(accel[i].Scale(dt)).Scale(damp)
		n.Pos = clamp(snap[i].Add(n.Vel.Scale(dt)), n.VisualRadius(), bounds)

		speed2 := n.Vel.X*n.Vel.X + n.Vel.Y*n.Vel.Y
		st.Energy += speed2
		st.MaxSpeed = math.Max(st.MaxSpeed, math.Sqrt(speed2))
		st.Moved++
	}
	return st
}

// clamp keeps a marker of radius r fully inside bounds.
func clamp(p model.Point, r float64, b model.Bounds) model.Point {
	return model.Point{X: clampAxis(p.X, r, b.Width), Y: clampAxis(p.Y, r, b.Height)}
}

func clampAxis(v, r, dim float64) float64 {
	lo, hi := r, dim-r
	if lo > hi {
		return dim / 2
	}
	return math.Max(lo, math.Min(hi, v))
}
