package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/identigraph/pkg/clock"
	"github.com/vanderheijden86/identigraph/pkg/interaction"
	"github.com/vanderheijden86/identigraph/pkg/model"
	"github.com/vanderheijden86/identigraph/pkg/session"
)

func newViewer(t *testing.T) (Model, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(time.Unix(1000, 0))
	opts := session.DefaultOptions()
	opts.Nodes = []model.NodeSpec{
		{ID: "core", Category: "shield", Label: "Core", Fixed: true},
		{ID: "users", Category: "user", Label: "Users", Offset: model.Point{X: -150, Y: 0}},
		{ID: "db", Category: "database", Label: "Directory", Offset: model.Point{X: 150, Y: 0}},
	}
	opts.Edges = []model.EdgeSpec{
		{ID: "c1", Source: "users", Target: "core", Strength: 0.5, Label: "logs in"},
		{ID: "c2", Source: "core", Target: "db", Strength: 0.5, Label: "reads"},
	}
	opts.Paths = []model.PathSpec{{ID: "login", Edges: []string{"c1"}}}
	opts.Interaction.Clock = clk
	opts.Interaction.AutoEnabled = false
	opts.EaseScale = false
	sess, err := session.New(opts)
	if err != nil {
		t.Fatalf("session.New failed: %v", err)
	}
	t.Cleanup(sess.Teardown)

	m := NewModel(sess, Options{Title: "Test", Theme: plainTheme()})
	m.Init()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 22})
	return next.(Model), clk
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestModel_ResizeMapsCellsToBounds(t *testing.T) {
	m, _ := newViewer(t)
	b := m.Session().Bounds()
	if b.Width != 60*CellWidth || b.Height != 20*CellHeight {
		t.Errorf("Bounds = %+v, want 600x400", b)
	}
}

func TestModel_FrameDrawsAndReschedules(t *testing.T) {
	m, _ := newViewer(t)
	m, cmd := update(t, m, FrameMsg(time.Now()))
	if cmd == nil {
		t.Fatal("A frame should schedule the next one")
	}
	if cols, rows := m.Canvas().Size(); cols != 60 || rows != 20 {
		t.Errorf("Canvas = %dx%d, want 60x20", cols, rows)
	}

	view := m.View()
	lines := strings.Split(view, "\n")
	if len(lines) != 22 {
		t.Errorf("View has %d lines, want 22", len(lines))
	}
	if !strings.Contains(lines[0], "Test") || !strings.Contains(lines[0], "idle") {
		t.Errorf("Header = %q", lines[0])
	}
	if !strings.Contains(view, "◆") {
		t.Error("The anchor icon should be drawn")
	}
}

func TestModel_MouseHoverAndClick(t *testing.T) {
	m, _ := newViewer(t)
	core := m.Session().Graph().Node("core").Pos
	col, row := int(core.X/CellWidth), int(core.Y/CellHeight)

	m, _ = update(t, m, tea.MouseMsg{X: col, Y: row + 1, Action: tea.MouseActionMotion})
	if st := m.Session().State(); st.Hovered != "core" {
		t.Errorf("Hovered = %q, want core", st.Hovered)
	}

	m, _ = update(t, m, tea.MouseMsg{X: col, Y: row + 1, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	st := m.Session().State()
	if st.Phase != interaction.Activated || len(st.ActiveNodes) != 3 {
		t.Errorf("After click: phase=%v active=%v", st.Phase, st.NodeIDs())
	}

	// Pointer on the header row leaves the canvas
	m, _ = update(t, m, tea.MouseMsg{X: col, Y: 0, Action: tea.MouseActionMotion})
	if m.Session().State().Hovered != "" {
		t.Error("Moving onto the header should clear hover")
	}
}

func TestModel_KeyboardCycling(t *testing.T) {
	m, _ := newViewer(t)
	tab := tea.KeyMsg{Type: tea.KeyTab}

	m, _ = update(t, m, tab)
	if !m.Session().State().IsActiveNode("core") || m.status != "Core" {
		t.Errorf("First tab should activate core, status %q", m.status)
	}
	m, _ = update(t, m, tab)
	if st := m.Session().State(); !st.IsActiveNode("users") || st.IsActiveNode("db") {
		t.Errorf("Second tab should activate users, got %v", st.NodeIDs())
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.focus != 2 {
		t.Errorf("Shift+tab should wrap to the last node, focus=%d", m.focus)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if len(m.Session().State().ActiveNodes) != 0 || m.focus != -1 {
		t.Error("Esc should clear the highlight")
	}
}

func TestModel_ToggleAutoAndHelp(t *testing.T) {
	m, _ := newViewer(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	if !m.Session().State().AutoEnabled || m.status != "auto paths on" {
		t.Errorf("a should enable auto paths, status %q", m.status)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	view := m.View()
	if !strings.Contains(view, "Quick Reference") || !strings.Contains(view, "Identity Control Center") {
		t.Errorf("Help should list keys and the category legend:\n%s", view)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.showHelp {
		t.Error("Esc should close help first")
	}
}

func TestModel_ReloadWithoutWorker(t *testing.T) {
	m, _ := newViewer(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if m.status != "no topology file to reload" {
		t.Errorf("status = %q", m.status)
	}
}

func TestModel_SessionSwap(t *testing.T) {
	m, _ := newViewer(t)
	old := m.Session()

	replacement, err := session.New(func() session.Options {
		o := session.DefaultOptions()
		o.Nodes = []model.NodeSpec{{ID: "solo", Category: "shield", Fixed: true}}
		o.Interaction.Clock = clock.NewManual(time.Unix(0, 0))
		return o
	}())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(replacement.Teardown)

	m, _ = update(t, m, SessionReadyMsg{Session: replacement, Path: "identigraph.yaml"})
	if m.Session() != replacement || !old.Closed() {
		t.Error("Ready message should swap sessions and tear down the old one")
	}
	if b := replacement.Bounds(); b.Width != 600 {
		t.Errorf("Replacement should take the current window size, got %+v", b)
	}

	m, _ = update(t, m, SessionErrorMsg{Err: &WorkerError{Phase: "build", Cause: errTest}})
	if !strings.Contains(m.View(), "error: build failed") {
		t.Errorf("Footer should show the error")
	}

	// Frames from a torn-down session stop the loop
	old.Teardown()
	_, cmd := update(t, Model{sess: old, canvas: m.canvas, theme: m.theme}, FrameMsg(time.Now()))
	if cmd != nil {
		t.Error("A closed session should not reschedule frames")
	}
}

type testErr string

func (e testErr) Error() string { return string(e) }

const errTest = testErr("bad topology")
