package render

import (
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/vanderheijden86/identigraph/pkg/model"
)

const svgFont = "font-family:system-ui,sans-serif;font-size:11px"

// SVG draws frames as a standalone SVG document. Each Begin/End pair
// produces one complete document on the writer.
type SVG struct {
	w      io.Writer
	canvas *svg.SVG
}

// NewSVG creates a vector surface that writes to w.
func NewSVG(w io.Writer) *SVG {
	return &SVG{w: w, canvas: svg.New(w)}
}

// Begin opens the document and writes shared definitions and the background.
func (s *SVG) Begin(b model.Bounds) error {
	width, height := int(b.Width), int(b.Height)
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	canvas := s.canvas
	canvas.Start(width, height)

	canvas.Def()
	canvas.LinearGradient("bgGrad", 0, 0, 0, 100, []svg.Offcolor{
		{Offset: 0, Color: cssRGBA(bgTop), Opacity: 1},
		{Offset: 100, Color: cssRGBA(bgBottom), Opacity: 1},
	})
	canvas.RadialGradient("pulse", 50, 50, 50, 50, 50, []svg.Offcolor{
		{Offset: 0, Color: "#ffffff", Opacity: 0.8},
		{Offset: 100, Color: "#ffffff", Opacity: 0},
	})
	canvas.Filter("glow")
	canvas.FeGaussianBlur(svg.Filterspec{In: "SourceGraphic", Result: "blur"}, 6, 6)
	canvas.FeMerge([]string{"blur", "SourceGraphic"})
	canvas.Fend()
	canvas.DefEnd()

	canvas.Rect(0, 0, width, height, "fill:url(#bgGrad)")
	return nil
}

// DrawEdges writes one path per edge inside an "edges" group. Active edges
// get a per-edge gradient running from source to target color.
func (s *SVG) DrawEdges(edges []EdgeDraw) error {
	canvas := s.canvas
	canvas.Gid("edges")
	for _, e := range edges {
		style := fmt.Sprintf("fill:none;stroke:#ffffff;stroke-opacity:%.2f;stroke-width:%g", e.Opacity, e.Width)
		if e.Active {
			id := "edge-" + svgID(e.ID)
			s.edgeGradient(id, e)
			style = fmt.Sprintf("fill:none;stroke:url(#%s);stroke-width:%g", id, e.Width)
		}
		canvas.Path(edgePath(e), style)
	}
	for _, e := range edges {
		if !e.Active {
			continue
		}
		for _, p := range e.Pulses {
			canvas.Circle(round(p.X), round(p.Y), 6, "fill:url(#pulse)")
		}
		if e.Label != "" {
			s.pill(e.Label, e.LabelAt.X, e.LabelAt.Y)
		}
	}
	canvas.Gend()
	return nil
}

// edgeGradient writes a userSpaceOnUse gradient; svgo only emits
// bounding-box gradients, which collapse on horizontal or vertical lines.
func (s *SVG) edgeGradient(id string, e EdgeDraw) {
	s.canvas.Def()
	fmt.Fprintf(s.canvas.Writer,
		`<linearGradient id="%s" gradientUnits="userSpaceOnUse" x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f">`+"\n",
		id, e.From.X, e.From.Y, e.To.X, e.To.Y)
	fmt.Fprintf(s.canvas.Writer, `<stop offset="0%%" stop-color="%s"/>`+"\n", cssRGBA(e.FromColor))
	fmt.Fprintf(s.canvas.Writer, `<stop offset="100%%" stop-color="%s"/>`+"\n", cssRGBA(e.ToColor))
	fmt.Fprintln(s.canvas.Writer, `</linearGradient>`)
	s.canvas.DefEnd()
}

// DrawNodes writes one group per node inside a "nodes" group.
func (s *SVG) DrawNodes(nodes []NodeDraw) error {
	canvas := s.canvas
	canvas.Gid("nodes")
	for _, n := range nodes {
		x, y := round(n.Center.X), round(n.Center.Y)
		radius := n.Radius * n.Scale
		fill := cssRGBA(n.Color)

		canvas.Gid("node-" + svgID(n.ID))
		canvas.Circle(x, y, round(radius*1.4),
			fmt.Sprintf("fill:%s;fill-opacity:%.2f;filter:url(#glow)", fill, n.Glow))
		if n.Ring != nil {
			canvas.Circle(x, y, round(n.Ring.Radius*n.Scale),
				fmt.Sprintf("fill:none;stroke:%s;stroke-width:2;stroke-opacity:%.2f", fill, n.Ring.Opacity))
		}
		canvas.Circle(x, y, round(radius),
			fmt.Sprintf("fill:%s;fill-opacity:0.8;stroke:%s;stroke-width:2", cssRGBA(markerFill), fill))
		canvas.Text(x, y, n.Icon,
			"fill:#ffffff;"+svgFont+";font-weight:bold;text-anchor:middle;dominant-baseline:middle")
		if n.ShowLabel && n.Label != "" {
			s.pill(n.Label, n.Center.X, n.Center.Y+radius+12)
		}
		if n.Badge > 0 {
			bx, by := round(n.Center.X+radius*0.75), round(n.Center.Y-radius*0.75)
			canvas.Circle(bx, by, 7, "fill:"+fill)
			canvas.Text(bx, by, strconv.Itoa(n.Badge),
				"fill:#ffffff;font-size:9px;font-family:system-ui,sans-serif;text-anchor:middle;dominant-baseline:middle")
		}
		canvas.Gend()
	}
	canvas.Gend()
	return nil
}

// End closes the document.
func (s *SVG) End() error {
	s.canvas.End()
	return nil
}

func (s *SVG) pill(text string, x, y float64) {
	// Rough advance width for an 11px sans-serif face.
	w := float64(len([]rune(text)))*6.2 + 12
	s.canvas.Roundrect(round(x-w/2), round(y-9), round(w), 18, 4, 4, "fill:#000000;fill-opacity:0.6")
	s.canvas.Text(round(x), round(y), text,
		"fill:#ffffff;"+svgFont+";text-anchor:middle;dominant-baseline:middle")
}

func edgePath(e EdgeDraw) string {
	if e.Curved {
		return fmt.Sprintf("M %.1f %.1f Q %.1f %.1f %.1f %.1f",
			e.From.X, e.From.Y, e.Control.X, e.Control.Y, e.To.X, e.To.Y)
	}
	return fmt.Sprintf("M %.1f %.1f L %.1f %.1f", e.From.X, e.From.Y, e.To.X, e.To.Y)
}

// svgID maps an arbitrary identifier onto the characters valid in an XML
// id. Other bytes become _xx hex escapes, so distinct ids stay distinct.
func svgID(id string) string {
	var b strings.Builder
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02x", c)
		}
	}
	return b.String()
}

func cssRGBA(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func round(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}
