// Package session wires one graph instance together: model, physics,
// interaction and rendering, with an explicit init/teardown lifecycle.
package session

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/vanderheijden86/identigraph/pkg/interaction"
	"github.com/vanderheijden86/identigraph/pkg/model"
	"github.com/vanderheijden86/identigraph/pkg/physics"
	"github.com/vanderheijden86/identigraph/pkg/render"
)

// ErrClosed is returned by Frame after Teardown.
var ErrClosed = errors.New("session: torn down")

// frameDuration is the physics unit step (dt = 1).
const frameDuration = time.Second / 60

// maxStep caps the physics step after a long pause between frames.
const maxStep = 4.0

// Options describes one session.
type Options struct {
	Nodes      []model.NodeSpec
	Edges      []model.EdgeSpec
	Paths      []model.PathSpec
	Categories model.CategorySet // nil means model.DefaultCategories
	Bounds     model.Bounds

	Physics     physics.Params
	Noise       physics.Noise // nil disables jitter
	Interaction interaction.Options
	Render      render.Options

	// Renderer receives every composed frame. Nil composes without drawing.
	Renderer render.Renderer
	// EaseScale animates node scale changes with springs instead of snapping.
	EaseScale bool

	Logger *zap.Logger
}

// DefaultOptions returns options with the widget's tuning and no topology.
func DefaultOptions() Options {
	return Options{
		Physics:     physics.DefaultParams(),
		Interaction: interaction.DefaultOptions(),
		Render:      render.DefaultOptions(),
		EaseScale:   true,
	}
}

// Session owns one graph and everything that animates it. Frames, pointer
// events and resizes are serialized by the session lock; controller timers
// only touch the controller, so they never wait on a frame.
type Session struct {
	graph    *model.Graph
	sim      *physics.Simulator
	ctrl     *interaction.Controller
	anim     *render.ScaleAnimator
	renderer render.Renderer
	ropts    render.Options
	log      *zap.Logger

	mu       sync.Mutex
	started  time.Time
	last     time.Time
	frames   uint64
	stats    physics.Stats
	tornDown bool

	// epoch is set by the first Init, Frame or Step. A Step-only epoch
	// counts from the zero time and is rebased onto the wall clock by the
	// next Init or Frame.
	epoch   bool
	virtual bool
	running bool
}

// New validates the topology and builds the session. Nothing runs until Init.
func New(opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if err := opts.Physics.Validate(); err != nil {
		return nil, errors.Wrap(err, "physics parameters")
	}

	g, err := model.New(opts.Nodes, opts.Edges, opts.Paths, opts.Categories, opts.Bounds)
	if err != nil {
		return nil, err
	}

	iopts := opts.Interaction
	if iopts.Logger == nil {
		iopts.Logger = opts.Logger
	}

	s := &Session{
		graph:    g,
		sim:      physics.New(opts.Physics, opts.Noise),
		ctrl:     interaction.New(g, iopts),
		renderer: opts.Renderer,
		ropts:    opts.Render,
		log:      opts.Logger.Named("session"),
	}
	if opts.EaseScale {
		s.anim = render.NewScaleAnimator(60)
	}

	s.log.Info("session created",
		zap.Int("nodes", len(g.Nodes())),
		zap.Int("edges", len(g.Edges())),
		zap.Int("paths", len(g.Paths())),
		zap.Float64("width", opts.Bounds.Width),
		zap.Float64("height", opts.Bounds.Height),
	)
	return s, nil
}

// Init starts autonomous activation and marks the animation epoch. Calling
// it again is a no-op. Frames stepped before Init keep their elapsed time.
func (s *Session) Init(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown || s.running {
		return
	}
	s.running = true
	s.setEpochLocked(now, now)
	s.ctrl.Start()
	s.log.Debug("session initialized")
}

// setEpochLocked anchors frame timing at now. last is where the next Frame
// measures its step from.
func (s *Session) setEpochLocked(now, last time.Time) {
	switch {
	case !s.epoch:
		s.started = now
	case s.virtual:
		s.started = last.Add(-s.last.Sub(s.started))
	default:
		return
	}
	s.epoch = true
	s.virtual = false
	s.last = last
}

// Frame advances physics by the time since the previous frame, composes the
// frame and hands it to the renderer.
func (s *Session) Frame(now time.Time) (render.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown {
		return render.Frame{}, ErrClosed
	}
	s.setEpochLocked(now, now.Add(-frameDuration))

	dt := float64(now.Sub(s.last)) / float64(frameDuration)
	switch {
	case dt > maxStep:
		dt = maxStep
	case dt < 0:
		dt = 0
	}
	s.last = now
	return s.frameLocked(now, dt)
}

// Step advances by exactly dt physics frames and composes the result,
// independent of wall time. Headless renderers use it for reproducible
// output.
func (s *Session) Step(dt float64) (render.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown {
		return render.Frame{}, ErrClosed
	}
	if !s.epoch {
		s.epoch = true
		s.virtual = true
	}
	now := s.last.Add(time.Duration(dt * float64(frameDuration)))
	s.last = now
	return s.frameLocked(now, dt)
}

func (s *Session) frameLocked(now time.Time, dt float64) (render.Frame, error) {
	s.stats = s.sim.Step(s.graph, s.graph.Bounds(), dt)
	s.frames++

	f := render.Compose(s.graph, s.ctrl.State(), now.Sub(s.started), s.ropts, s.anim)
	if s.renderer != nil {
		if err := render.Draw(s.renderer, f); err != nil {
			return f, errors.Wrapf(err, "draw frame %d", s.frames)
		}
	}
	if s.frames%600 == 0 {
		s.log.Debug("physics",
			zap.Uint64("frame", s.frames),
			zap.Float64("energy", s.stats.Energy),
			zap.Float64("max_speed", s.stats.MaxSpeed))
	}
	return f, nil
}

// PointerMove updates hover from container-relative coordinates.
func (s *Session) PointerMove(pt model.Point) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown {
		return ""
	}
	return s.ctrl.PointerMove(pt)
}

// PointerLeave clears hover when the pointer exits the container.
func (s *Session) PointerLeave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown {
		return
	}
	s.ctrl.PointerLeave()
}

// Click activates the node under pt, or dismisses on empty background.
func (s *Session) Click(pt model.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown {
		return false
	}
	return s.ctrl.Click(pt)
}

// Activate lights up id and its neighborhood as if it had been clicked.
func (s *Session) Activate(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown {
		return false
	}
	return s.ctrl.Activate(id)
}

// Dismiss clears the current activation.
func (s *Session) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown {
		return
	}
	s.ctrl.Dismiss()
}

// SetAutoActivation toggles autonomous path activation.
func (s *Session) SetAutoActivation(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown {
		return
	}
	s.ctrl.SetAutoActivationEnabled(enabled)
}

// Resize rescales the layout to new container bounds.
func (s *Session) Resize(b model.Bounds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown || b.IsZero() {
		return
	}
	s.graph.Resize(b)
	s.log.Debug("resized", zap.Float64("width", b.Width), zap.Float64("height", b.Height))
}

// State returns the current highlight state.
func (s *Session) State() interaction.State {
	return s.ctrl.State()
}

// Bounds returns the current container bounds.
func (s *Session) Bounds() model.Bounds {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Bounds()
}

// Graph exposes the model for read-only inspection. Callers must not read
// positions concurrently with Frame; use Snapshot for that.
func (s *Session) Graph() *model.Graph { return s.graph }

// Teardown stops timers and makes every later call a no-op. It is
// idempotent.
func (s *Session) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown {
		return
	}
	s.tornDown = true
	s.ctrl.Teardown()
	if s.anim != nil {
		s.anim.Reset()
	}
	s.log.Info("session torn down", zap.Uint64("frames", s.frames))
}

// Stats returns the physics summary of the most recent step.
func (s *Session) Stats() physics.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Closed reports whether Teardown has run.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tornDown
}
