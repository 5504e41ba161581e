package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/vanderheijden86/identigraph/pkg/model"
)

// Palette shared by the raster and vector back ends.
var (
	bgTop       = color.RGBA{0x0f, 0x17, 0x2a, 0xff}
	bgBottom    = color.RGBA{0x1e, 0x1b, 0x4b, 0xff}
	textPrimary = color.RGBA{0xff, 0xff, 0xff, 0xff}
	labelBg     = color.RGBA{0x00, 0x00, 0x00, 0x99}
	markerFill  = color.RGBA{0x0f, 0x17, 0x2a, 0xcc}
)

// Raster draws frames into an in-memory RGBA image.
type Raster struct {
	dc   *gg.Context
	face font.Face
}

// NewRaster creates a raster surface of the given size.
func NewRaster(b model.Bounds) (*Raster, error) {
	face, err := loadFace(11)
	if err != nil {
		return nil, err
	}
	r := &Raster{face: face}
	r.resize(b)
	return r, nil
}

func loadFace(size float64) (font.Face, error) {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return face, nil
}

func (r *Raster) resize(b model.Bounds) {
	w, h := int(b.Width), int(b.Height)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if r.dc != nil && r.dc.Width() == w && r.dc.Height() == h {
		return
	}
	r.dc = gg.NewContext(w, h)
	r.dc.SetFontFace(r.face)
}

// Begin clears the surface, resizing it when the bounds changed.
func (r *Raster) Begin(b model.Bounds) error {
	r.resize(b)
	dc := r.dc
	grad := gg.NewLinearGradient(0, 0, 0, float64(dc.Height()))
	grad.AddColorStop(0, bgTop)
	grad.AddColorStop(1, bgBottom)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, float64(dc.Width()), float64(dc.Height()))
	dc.Fill()
	return nil
}

// DrawEdges strokes every edge, then decorates the active ones.
func (r *Raster) DrawEdges(edges []EdgeDraw) error {
	dc := r.dc
	for _, e := range edges {
		if e.Active {
			grad := gg.NewLinearGradient(e.From.X, e.From.Y, e.To.X, e.To.Y)
			grad.AddColorStop(0, e.FromColor)
			grad.AddColorStop(1, e.ToColor)
			dc.SetStrokeStyle(grad)
		} else {
			dc.SetColor(withAlpha(textPrimary, e.Opacity))
		}
		dc.SetLineWidth(e.Width)
		dc.MoveTo(e.From.X, e.From.Y)
		if e.Curved {
			dc.QuadraticTo(e.Control.X, e.Control.Y, e.To.X, e.To.Y)
		} else {
			dc.LineTo(e.To.X, e.To.Y)
		}
		dc.Stroke()
	}

	for _, e := range edges {
		if !e.Active {
			continue
		}
		for _, p := range e.Pulses {
			glow := gg.NewRadialGradient(p.X, p.Y, 0, p.X, p.Y, 6)
			glow.AddColorStop(0, withAlpha(textPrimary, 0.8))
			glow.AddColorStop(1, withAlpha(textPrimary, 0))
			dc.SetFillStyle(glow)
			dc.DrawCircle(p.X, p.Y, 6)
			dc.Fill()
		}
		if e.Label != "" {
			r.pill(e.Label, e.LabelAt.X, e.LabelAt.Y)
		}
	}
	return nil
}

// DrawNodes paints glow, rings, markers, icons, labels and badges.
func (r *Raster) DrawNodes(nodes []NodeDraw) error {
	dc := r.dc
	for _, n := range nodes {
		x, y := n.Center.X, n.Center.Y
		radius := n.Radius * n.Scale

		dc.SetColor(withAlpha(n.Color, n.Glow))
		dc.DrawCircle(x, y, radius*1.4)
		dc.Fill()

		if n.Ring != nil {
			dc.SetLineWidth(2)
			dc.SetColor(withAlpha(n.Color, n.Ring.Opacity))
			dc.DrawCircle(x, y, n.Ring.Radius*n.Scale)
			dc.Stroke()
		}

		dc.SetColor(markerFill)
		dc.DrawCircle(x, y, radius)
		dc.Fill()
		dc.SetLineWidth(2)
		dc.SetColor(n.Color)
		dc.DrawCircle(x, y, radius)
		dc.Stroke()

		dc.SetColor(textPrimary)
		dc.DrawStringAnchored(n.Icon, x, y, 0.5, 0.35)

		if n.ShowLabel && n.Label != "" {
			r.pill(n.Label, x, y+radius+12)
		}

		if n.Badge > 0 {
			bx, by := x+radius*0.75, y-radius*0.75
			dc.SetColor(n.Color)
			dc.DrawCircle(bx, by, 7)
			dc.Fill()
			dc.SetColor(textPrimary)
			dc.DrawStringAnchored(strconv.Itoa(n.Badge), bx, by, 0.5, 0.35)
		}
	}
	return nil
}

// End is a no-op; the image stays readable until the next Begin.
func (r *Raster) End() error { return nil }

// Image returns the current surface.
func (r *Raster) Image() image.Image { return r.dc.Image() }

// EncodePNG writes the current surface as PNG.
func (r *Raster) EncodePNG(w io.Writer) error { return r.dc.EncodePNG(w) }

// SavePNG writes the current surface to path.
func (r *Raster) SavePNG(path string) error { return r.dc.SavePNG(path) }

func (r *Raster) pill(text string, x, y float64) {
	dc := r.dc
	w, h := dc.MeasureString(text)
	dc.SetColor(labelBg)
	dc.DrawRoundedRectangle(x-w/2-6, y-h/2-3, w+12, h+6, 4)
	dc.Fill()
	dc.SetColor(textPrimary)
	dc.DrawStringAnchored(text, x, y, 0.5, 0.35)
}

func withAlpha(c color.RGBA, a float64) color.NRGBA {
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(a*255 + 0.5)}
}

// LerpColor blends a toward b by t in [0,1].
func LerpColor(a, b color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(a.R) + t*(float64(b.R)-float64(a.R))),
		G: uint8(float64(a.G) + t*(float64(b.G)-float64(a.G))),
		B: uint8(float64(a.B) + t*(float64(b.B)-float64(a.B))),
		A: uint8(float64(a.A) + t*(float64(b.A)-float64(a.A))),
	}
}
