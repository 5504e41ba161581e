package export

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/vanderheijden86/identigraph/pkg/anim"
	"github.com/vanderheijden86/identigraph/pkg/model"
	"github.com/vanderheijden86/identigraph/pkg/render"
	"github.com/vanderheijden86/identigraph/pkg/session"
)

// DefaultPreviewInterval is the preview's frame rate. Browsers refetch the
// SVG per frame, so it runs slower than a local display.
const DefaultPreviewInterval = time.Second / 20

// PreviewOptions configures a Preview.
type PreviewOptions struct {
	Title    string
	Interval time.Duration
	Logger   *zap.Logger
}

// Preview serves a live session over HTTP. A scheduler advances the
// session; browsers are told about each frame over SSE and send pointer
// input back as POSTs.
type Preview struct {
	title   string
	hub     *Hub
	sched   *anim.Scheduler
	metrics *Metrics
	log     *zap.Logger

	mu    sync.RWMutex
	sess  *session.Session
	frame render.Frame
}

// NewPreview wraps sess. The preview owns the session from here on and
// tears it down on Stop or Replace.
func NewPreview(sess *session.Session, opts PreviewOptions) *Preview {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPreviewInterval
	}
	if opts.Title == "" {
		opts.Title = "Identity Graph"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	p := &Preview{
		title: opts.Title,
		hub:   NewHub(),
		sess:  sess,
		log:   opts.Logger.Named("preview"),
	}
	p.metrics = NewMetrics("identigraph", p.hub.ClientCount)
	p.sched = anim.New(p.tick, anim.Options{Interval: opts.Interval, Logger: p.log})
	return p
}

// Start initializes the session and begins the frame loop.
func (p *Preview) Start(ctx context.Context) error {
	p.current().Init(time.Now())
	return p.sched.Start(ctx)
}

// Stop ends the frame loop, disconnects clients and tears the session down.
func (p *Preview) Stop() {
	p.sched.Stop()
	p.hub.Stop()
	p.current().Teardown()
}

// Replace swaps in a rebuilt session, tears the old one down and tells
// browsers to reload.
func (p *Preview) Replace(sess *session.Session) {
	sess.Init(time.Now())
	p.mu.Lock()
	old := p.sess
	p.sess = sess
	p.frame = render.Frame{}
	p.mu.Unlock()

	old.Teardown()
	p.metrics.Reloads.Inc()
	p.hub.Broadcast(Event{Name: "reload", Data: `{"action":"reload"}`})
	p.log.Info("session replaced")
}

// Hub exposes the event hub.
func (p *Preview) Hub() *Hub { return p.hub }

// Metrics exposes the preview's collectors.
func (p *Preview) Metrics() *Metrics { return p.metrics }

func (p *Preview) current() *session.Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sess
}

func (p *Preview) tick(now time.Time, _ time.Duration) error {
	start := time.Now()
	sess := p.current()
	f, err := sess.Frame(now)
	if errors.Is(err, session.ErrClosed) {
		// Replaced between current() and Frame
		return nil
	}
	if err != nil {
		return err
	}
	p.mu.Lock()
	if p.sess == sess {
		p.frame = f
	}
	p.mu.Unlock()
	p.metrics.Frames.Inc()
	p.metrics.FrameDuration.Observe(time.Since(start).Seconds())
	p.metrics.Energy.Set(sess.Stats().Energy)
	p.hub.Broadcast(Event{Name: "frame", Data: strconv.FormatUint(p.sched.Frames(), 10)})
	return nil
}

// latest returns the most recent frame, composing one if the loop has not
// produced any yet.
func (p *Preview) latest() (render.Frame, error) {
	p.mu.RLock()
	f := p.frame
	p.mu.RUnlock()
	if f.Nodes != nil {
		return f, nil
	}
	return p.current().Step(0)
}

// Handler returns the preview's routes.
func (p *Preview) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", p.handleIndex)
	mux.HandleFunc("GET /frame.svg", p.handleFrame(SVG, "image/svg+xml"))
	mux.HandleFunc("GET /frame.png", p.handleFrame(PNG, "image/png"))
	mux.HandleFunc("GET /state.json", p.handleState)
	mux.HandleFunc("GET /report.md", p.handleReport)
	mux.HandleFunc("POST /click", p.handlePointer("click", func(s *session.Session, pt model.Point) { s.Click(pt) }))
	mux.HandleFunc("POST /hover", p.handlePointer("move", func(s *session.Session, pt model.Point) { s.PointerMove(pt) }))
	mux.HandleFunc("POST /leave", func(w http.ResponseWriter, r *http.Request) {
		p.current().PointerLeave()
		p.metrics.Pointer.WithLabelValues("leave", "http").Inc()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /activate/{id}", p.handleActivate)
	mux.HandleFunc("POST /dismiss", func(w http.ResponseWriter, r *http.Request) {
		p.current().Dismiss()
		p.metrics.Pointer.WithLabelValues("dismiss", "http").Inc()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.Handle("GET /metrics", p.metrics.Handler())
	mux.HandleFunc("GET /__preview__/events", p.hub.SSEHandler())
	mux.HandleFunc("GET /__preview__/pointer", p.handlePointerSocket)
	return mux
}

func (p *Preview) handleIndex(w http.ResponseWriter, r *http.Request) {
	b := p.current().Bounds()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title>
<style>body{margin:0;background:#0f172a;display:flex;justify-content:center;align-items:center;height:100vh}
img{max-width:100%%;max-height:100vh;cursor:pointer}</style>
</head>
<body>
<img id="graph" src="/frame.svg" width="%.0f" height="%.0f" alt="%s">
%s
</body>
</html>
`, html.EscapeString(p.title), b.Width, b.Height, html.EscapeString(p.title), previewScript)
}

func (p *Preview) handleFrame(format Format, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := p.latest()
		if err != nil {
			p.log.Warn("frame unavailable", zap.Error(err))
			http.Error(w, "frame unavailable", http.StatusServiceUnavailable)
			return
		}
		var buf bytes.Buffer
		if err := WriteFrame(&buf, f, format); err != nil {
			p.log.Error("render frame", zap.Error(err))
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(buf.Bytes())
	}
}

func (p *Preview) handleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := WriteState(w, p.current().Snapshot()); err != nil {
		p.log.Warn("write state", zap.Error(err))
	}
}

func (p *Preview) handleReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(GenerateMarkdown(p.current().Snapshot(), p.title)))
}

func (p *Preview) handlePointer(kind string, apply func(*session.Session, model.Point)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
		y, errY := strconv.ParseFloat(r.URL.Query().Get("y"), 64)
		if errX != nil || errY != nil {
			http.Error(w, "x and y must be numbers", http.StatusBadRequest)
			return
		}
		apply(p.current(), model.Point{X: x, Y: y})
		p.metrics.Pointer.WithLabelValues(kind, "http").Inc()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (p *Preview) handleActivate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !p.current().Activate(id) {
		http.Error(w, "unknown node "+id, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
