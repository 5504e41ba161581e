package render

import (
	"sync"

	"github.com/charmbracelet/harmonica"
)

// ScaleAnimator eases each node's displayed scale toward its target with a
// critically-damped-ish spring, so hover and activation grow smoothly
// instead of snapping.
type ScaleAnimator struct {
	mu     sync.Mutex
	spring harmonica.Spring
	state  map[string]*scaleState
}

type scaleState struct {
	pos, vel float64
}

// NewScaleAnimator creates an animator stepped once per frame at fps.
func NewScaleAnimator(fps int) *ScaleAnimator {
	if fps <= 0 {
		fps = 60
	}
	return &ScaleAnimator{
		spring: harmonica.NewSpring(harmonica.FPS(fps), 12.0, 0.9),
		state:  make(map[string]*scaleState),
	}
}

// Update advances id one frame toward target and returns the new scale.
// The first call for an id starts at target.
func (a *ScaleAnimator) Update(id string, target float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.state[id]
	if !ok {
		s = &scaleState{pos: target}
		a.state[id] = s
		return target
	}
	s.pos, s.vel = a.spring.Update(s.pos, s.vel, target)
	return s.pos
}

// Reset forgets all eased values.
func (a *ScaleAnimator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = make(map[string]*scaleState)
}
