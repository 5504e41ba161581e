package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/vanderheijden86/identigraph/pkg/anim"
	"github.com/vanderheijden86/identigraph/pkg/render"
	"github.com/vanderheijden86/identigraph/pkg/session"
)

// Header and footer take one row each; the canvas gets the rest.
const chromeRows = 2

// FrameMsg asks the model to advance one frame.
type FrameMsg time.Time

// Options configures the viewer model.
type Options struct {
	Title    string
	Interval time.Duration // Frame interval, default anim.DefaultInterval
	Theme    Theme
	Worker   *BackgroundWorker // Optional; enables reload
	Logger   *zap.Logger
}

// Model is the Bubble Tea model for the graph viewer.
type Model struct {
	sess     *session.Session
	canvas   *Canvas
	theme    Theme
	keys     KeyMap
	help     help.Model
	worker   *BackgroundWorker
	log      *zap.Logger
	title    string
	interval time.Duration

	width, height int
	focus         int // Index of the node last activated from the keyboard
	showHelp      bool
	status        string
	err           error
	ready         bool
}

// NewModel wraps sess. The model owns the session and tears it down when
// replaced.
func NewModel(sess *session.Session, opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = anim.DefaultInterval
	}
	if opts.Theme.Renderer == nil {
		opts.Theme = DefaultTheme(nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Title == "" {
		opts.Title = "Identity Graph"
	}
	h := help.New()
	h.Styles.ShortKey = opts.Theme.Renderer.NewStyle().Foreground(opts.Theme.Subtext)
	h.Styles.ShortDesc = opts.Theme.Renderer.NewStyle().Foreground(opts.Theme.Muted)
	return Model{
		sess:     sess,
		canvas:   NewCanvas(opts.Theme),
		theme:    opts.Theme,
		keys:     DefaultKeyMap(),
		help:     h,
		worker:   opts.Worker,
		log:      opts.Logger.Named("ui"),
		title:    opts.Title,
		interval: opts.Interval,
		focus:    -1,
	}
}

// Init starts the session's timers and the frame loop.
func (m Model) Init() tea.Cmd {
	m.sess.Init(time.Now())
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return FrameMsg(t)
	})
}

// Session returns the session currently on screen.
func (m Model) Session() *session.Session { return m.sess }

// Canvas returns the terminal renderer.
func (m Model) Canvas() *Canvas { return m.canvas }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.ready = true
		m.sess.Resize(BoundsFor(m.width, max(m.height-chromeRows, 1)))
		return m, nil

	case FrameMsg:
		return m.handleFrame(time.Time(msg))

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SessionReadyMsg:
		old := m.sess
		m.sess = msg.Session
		m.sess.Init(time.Now())
		if m.ready {
			m.sess.Resize(BoundsFor(m.width, max(m.height-chromeRows, 1)))
		}
		old.Teardown()
		m.focus = -1
		m.err = nil
		m.status = fmt.Sprintf("reloaded %s", msg.Path)
		m.log.Info("session reloaded", zap.String("path", msg.Path))
		return m, nil

	case SessionErrorMsg:
		m.err = msg.Err
		m.status = ""
		return m, nil
	}
	return m, nil
}

func (m Model) handleFrame(now time.Time) (tea.Model, tea.Cmd) {
	f, err := m.sess.Frame(now)
	if errors.Is(err, session.ErrClosed) {
		return m, nil
	}
	if err != nil {
		m.err = err
		return m, m.tick()
	}
	if err := render.Draw(m.canvas, f); err != nil {
		m.err = err
	}
	return m, m.tick()
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	row := msg.Y - 1 // header
	if row < 0 || row >= m.height-chromeRows {
		m.sess.PointerLeave()
		return m, nil
	}
	pt := PointAt(msg.X, row)
	switch {
	case msg.Action == tea.MouseActionMotion:
		m.sess.PointerMove(pt)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.sess.PointerMove(pt)
		m.sess.Click(pt)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.Dismiss):
		if m.showHelp {
			m.showHelp = false
			break
		}
		m.sess.Dismiss()
		m.focus = -1
	case key.Matches(msg, m.keys.Next):
		m.cycle(1)
	case key.Matches(msg, m.keys.Prev):
		m.cycle(-1)
	case key.Matches(msg, m.keys.ToggleAuto):
		enabled := !m.sess.State().AutoEnabled
		m.sess.SetAutoActivation(enabled)
		m.status = "auto paths " + onOff(enabled)
	case key.Matches(msg, m.keys.Reload):
		if m.worker == nil {
			m.status = "no topology file to reload"
			break
		}
		m.worker.TriggerRefresh()
		m.status = "reloading…"
	}
	return m, nil
}

// cycle activates the next or previous node in declaration order.
func (m *Model) cycle(dir int) {
	nodes := m.sess.Graph().Nodes()
	if len(nodes) == 0 {
		return
	}
	switch {
	case m.focus < 0 && dir < 0:
		m.focus = len(nodes) - 1
	case m.focus < 0:
		m.focus = 0
	default:
		m.focus = ((m.focus+dir)%len(nodes) + len(nodes)) % len(nodes)
	}
	n := nodes[m.focus]
	m.sess.Activate(n.ID)
	m.status = n.Label
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.showHelp {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			RenderHelp(m.theme, m.sess.Graph(), m.width))
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), m.canvas.String(), m.renderFooter())
}

func (m Model) renderHeader() string {
	st := m.sess.State()
	left := m.theme.header().Render(m.title)
	info := fmt.Sprintf("%s · auto %s", st.Phase, onOff(st.AutoEnabled))
	if st.PathID != "" {
		info += " · path " + st.PathID
	}
	if n := len(st.ActiveNodes); n > 0 {
		info += fmt.Sprintf(" · %d lit", n)
	}
	right := m.theme.status().Render(info)
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	filler := m.theme.Renderer.NewStyle().Background(m.theme.BgDark).Width(gap).Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

func (m Model) renderFooter() string {
	switch {
	case m.err != nil:
		return m.theme.errorText().Render("error: " + m.err.Error())
	case m.status != "":
		return m.theme.status().Render(m.status) + " " + m.help.View(m.keys)
	}
	return m.help.View(m.keys)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
