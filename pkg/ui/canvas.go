package ui

import (
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/identigraph/pkg/model"
	"github.com/vanderheijden86/identigraph/pkg/render"
)

// One terminal cell covers this much layout space. Cells are about twice
// as tall as they are wide.
const (
	CellWidth  = 10.0
	CellHeight = 20.0
)

var (
	termBg    = model.MustHex("#0f172a")
	termText  = model.MustHex("#f8fafc")
	termPulse = model.MustHex("#ffffff")
)

type cell struct {
	ch   rune
	fg   color.RGBA
	bold bool
	cont bool // right half of a wide rune
}

// Canvas is a render.Renderer that draws into a grid of terminal cells.
// Edges become line glyphs sampled along their curve; nodes become their
// category icon with an optional label underneath.
type Canvas struct {
	theme      Theme
	cols, rows int
	cells      []cell
	out        string
}

// NewCanvas creates an empty canvas. Its size follows the bounds passed to
// Begin.
func NewCanvas(theme Theme) *Canvas {
	return &Canvas{theme: theme}
}

// BoundsFor returns the layout bounds of a cols x rows cell area.
func BoundsFor(cols, rows int) model.Bounds {
	return model.Bounds{Width: float64(cols) * CellWidth, Height: float64(rows) * CellHeight}
}

// PointAt returns the layout point at the center of cell (col, row).
func PointAt(col, row int) model.Point {
	return model.Point{X: (float64(col) + 0.5) * CellWidth, Y: (float64(row) + 0.5) * CellHeight}
}

// Size returns the grid size.
func (c *Canvas) Size() (cols, rows int) { return c.cols, c.rows }

// Begin clears the grid, resizing it to match b.
func (c *Canvas) Begin(b model.Bounds) error {
	cols := int(math.Round(b.Width / CellWidth))
	rows := int(math.Round(b.Height / CellHeight))
	if cols != c.cols || rows != c.rows || c.cells == nil {
		c.cols, c.rows = max(cols, 0), max(rows, 0)
		c.cells = make([]cell, c.cols*c.rows)
	}
	for i := range c.cells {
		c.cells[i] = cell{}
	}
	return nil
}

// DrawEdges samples each edge densely enough to touch every cell it
// crosses. Active edges blend from source to target color and show their
// pulses and label.
func (c *Canvas) DrawEdges(edges []render.EdgeDraw) error {
	for _, e := range edges {
		span := math.Max(math.Abs(e.To.X-e.From.X)/CellWidth, math.Abs(e.To.Y-e.From.Y)/CellHeight)
		steps := max(int(span*2), 1)
		for i := 0; i <= steps; i++ {
			t := float64(i) / float64(steps)
			p := e.At(t)
			ch := '·'
			fg := render.LerpColor(termBg, termText, math.Max(e.Opacity*3, 0.35))
			if e.Active {
				ch = lineGlyph(e, t)
				fg = render.LerpColor(e.FromColor, e.ToColor, t)
			}
			c.setAt(p, ch, fg, false)
		}
	}

	for _, e := range edges {
		if !e.Active {
			continue
		}
		for _, p := range e.Pulses {
			c.setAt(p, '●', termPulse, true)
		}
		if e.Label != "" {
			col, row := c.cellOf(e.LabelAt)
			c.text(e.Label, col, row, termText, false)
		}
	}
	return nil
}

// DrawNodes draws rings, icons, labels and connection badges.
func (c *Canvas) DrawNodes(nodes []render.NodeDraw) error {
	for _, n := range nodes {
		if n.Ring == nil || n.Ring.Opacity < 0.2 {
			continue
		}
		fg := render.LerpColor(termBg, n.Color, n.Ring.Opacity)
		r := n.Ring.Radius
		for a := 0.0; a < 2*math.Pi; a += math.Pi / 8 {
			c.setAt(model.Point{X: n.Center.X + r*math.Cos(a), Y: n.Center.Y + r*math.Sin(a)}, '∙', fg, false)
		}
	}

	for _, n := range nodes {
		col, row := c.cellOf(n.Center)
		bold := n.Active || n.Hovered || n.Anchor
		icon := n.Icon
		if icon == "" {
			icon = "●"
		}
		if n.Hovered {
			icon = "[" + icon + "]"
		}
		c.text(icon, col, row, n.Color, bold)

		if n.ShowLabel {
			label := n.Label
			if n.Badge > 0 {
				label += " (" + strconv.Itoa(n.Badge) + ")"
			}
			fg := termText
			if !bold {
				fg = render.LerpColor(termBg, termText, 0.7)
			}
			c.text(label, col, row+1, fg, bold)
		}
	}
	return nil
}

// End flattens the grid into styled lines, merging runs of equal style.
func (c *Canvas) End() error {
	var sb strings.Builder
	var run strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		var cur cell
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if cur.ch == 0 {
				sb.WriteString(run.String())
			} else {
				st := c.theme.Renderer.NewStyle().Foreground(lipgloss.Color(model.Hex(cur.fg))).Bold(cur.bold)
				sb.WriteString(st.Render(run.String()))
			}
			run.Reset()
		}
		for col := 0; col < c.cols; col++ {
			cl := c.cells[row*c.cols+col]
			if cl.cont {
				continue
			}
			if cl.ch == 0 {
				cl = cell{}
			}
			if cl.fg != cur.fg || cl.bold != cur.bold || (cl.ch == 0) != (cur.ch == 0) {
				flush()
				cur = cl
			}
			if cl.ch == 0 {
				run.WriteByte(' ')
			} else {
				run.WriteRune(cl.ch)
			}
		}
		flush()
	}
	c.out = sb.String()
	return nil
}

// String returns the last completed frame.
func (c *Canvas) String() string { return c.out }

func (c *Canvas) cellOf(p model.Point) (col, row int) {
	return int(math.Floor(p.X / CellWidth)), int(math.Floor(p.Y / CellHeight))
}

func (c *Canvas) setAt(p model.Point, ch rune, fg color.RGBA, bold bool) {
	col, row := c.cellOf(p)
	c.set(col, row, ch, fg, bold)
}

func (c *Canvas) set(col, row int, ch rune, fg color.RGBA, bold bool) {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return
	}
	w := runewidth.RuneWidth(ch)
	if w == 2 && col+1 >= c.cols {
		return
	}
	i := row*c.cols + col
	// Overwriting half of a wide rune clears the other half
	if c.cells[i].cont && col > 0 {
		c.cells[i-1] = cell{}
	}
	if col+1 < c.cols && c.cells[i+1].cont {
		c.cells[i+1] = cell{}
	}
	c.cells[i] = cell{ch: ch, fg: fg, bold: bold}
	if w == 2 {
		c.cells[i+1] = cell{cont: true}
	}
}

// text writes s on row centered on col. Text running off either edge is
// shifted back inside the grid.
func (c *Canvas) text(s string, col, row int, fg color.RGBA, bold bool) {
	s = runewidth.Truncate(s, c.cols, "…")
	w := runewidth.StringWidth(s)
	col = min(max(col-w/2, 0), max(c.cols-w, 0))
	for _, r := range s {
		c.set(col, row, r, fg, bold)
		col += max(runewidth.RuneWidth(r), 1)
	}
}

// lineGlyph picks a box-drawing character from the edge's direction at t,
// measured in cells so the terminal's aspect ratio is respected.
func lineGlyph(e render.EdgeDraw, t float64) rune {
	a, b := e.At(math.Max(t-0.01, 0)), e.At(math.Min(t+0.01, 1))
	dx := (b.X - a.X) / CellWidth
	dy := (b.Y - a.Y) / CellHeight
	if dx == 0 && dy == 0 {
		return '─'
	}
	angle := math.Atan2(-dy, dx) * 180 / math.Pi
	if angle < 0 {
		angle += 180
	}
	switch {
	case angle < 22.5 || angle >= 157.5:
		return '─'
	case angle < 67.5:
		return '╱'
	case angle < 112.5:
		return '│'
	default:
		return '╲'
	}
}
