package model

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Point is a position or velocity in container coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x" toml:"x"`
	Y float64 `json:"y" yaml:"y" toml:"y"`
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p*k.
func (p Point) Scale(k float64) Point { return Point{p.X * k, p.Y * k} }

// Len returns the euclidean length of p.
func (p Point) Len() float64 { return math.Hypot(p.X, p.Y) }

// Dist returns the distance between p and q.
func (p Point) Dist(q Point) float64 { return p.Sub(q).Len() }

// Lerp interpolates between p and q; t=0 yields p, t=1 yields q.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{p.X + (q.X-p.X)*t, p.Y + (q.Y-p.Y)*t}
}

// Bounds is the size of the drawing container.
type Bounds struct {
	Width  float64 `json:"width" yaml:"width" toml:"width"`
	Height float64 `json:"height" yaml:"height" toml:"height"`
}

// Center returns the container center.
func (b Bounds) Center() Point { return Point{b.Width / 2, b.Height / 2} }

// IsZero reports whether the container has no area.
func (b Bounds) IsZero() bool { return b.Width <= 0 || b.Height <= 0 }

// Category describes the visual class of a node.
type Category struct {
	Name  string
	Label string     // Default node label for this category
	Icon  string     // Short glyph drawn inside the marker
	Size  float64    // Marker diameter in pixels
	Color color.RGBA // Border, glow and gradient color
}

// CategorySet maps category names to their visual description.
type CategorySet map[string]Category

// Anchor is the category of the fixed center node in the default palette.
const Anchor = "shield"

// DefaultCategories returns the built-in palette.
func DefaultCategories() CategorySet {
	return CategorySet{
		"shield":      {Name: "shield", Label: "Identity Control Center", Icon: "◆", Size: 48, Color: MustHex("#7c3aed")},
		"user":        {Name: "user", Label: "User Identity", Icon: "U", Size: 24, Color: MustHex("#3b82f6")},
		"service":     {Name: "service", Label: "Service Account", Icon: "S", Size: 24, Color: MustHex("#10b981")},
		"database":    {Name: "database", Label: "Database Credentials", Icon: "D", Size: 24, Color: MustHex("#f59e0b")},
		"key":         {Name: "key", Label: "API Key", Icon: "K", Size: 22, Color: MustHex("#ec4899")},
		"device":      {Name: "device", Label: "Device Identity", Icon: "L", Size: 24, Color: MustHex("#6366f1")},
		"cloud":       {Name: "cloud", Label: "Cloud Resource", Icon: "C", Size: 26, Color: MustHex("#8b5cf6")},
		"certificate": {Name: "certificate", Label: "Certificate", Icon: "F", Size: 22, Color: MustHex("#14b8a6")},
		"domain":      {Name: "domain", Label: "Domain Identity", Icon: "G", Size: 24, Color: MustHex("#f97316")},
		"lock":        {Name: "lock", Label: "Security Policy", Icon: "P", Size: 22, Color: MustHex("#dc2626")},
	}
}

// Merge returns a copy of s with the entries of other added or replaced.
func (s CategorySet) Merge(other CategorySet) CategorySet {
	out := make(CategorySet, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// ParseHex parses "#rrggbb" or "#rgb" into an opaque color.
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// MustHex is ParseHex for package-level palettes.
func MustHex(s string) color.RGBA {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats c as "#rrggbb".
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// NodeSpec is the construction input for a node.
type NodeSpec struct {
	ID       string `json:"id" yaml:"id" toml:"id"`
	Category string `json:"category" yaml:"category" toml:"category"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
	Offset   Point  `json:"offset" yaml:"offset" toml:"offset"` // Initial offset from container center
	Fixed    bool   `json:"fixed,omitempty" yaml:"fixed,omitempty" toml:"fixed,omitempty"`
}

// EdgeSpec is the construction input for an edge.
type EdgeSpec struct {
	ID       string  `json:"id" yaml:"id" toml:"id"`
	Source   string  `json:"source" yaml:"source" toml:"source"`
	Target   string  `json:"target" yaml:"target" toml:"target"`
	Strength float64 `json:"strength" yaml:"strength" toml:"strength"`
	Label    string  `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
}

// PathSpec is the construction input for a path.
type PathSpec struct {
	ID          string   `json:"id" yaml:"id" toml:"id"`
	Edges       []string `json:"edges" yaml:"edges" toml:"edges"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
}

// Node is a positioned graph vertex. Pos and Vel are the kinematic state
// advanced by the physics simulator; everything else is fixed for the session.
type Node struct {
	ID       string
	Category string
	Label    string
	Icon     string
	Color    color.RGBA
	Size     float64
	Fixed    bool
	Offset   Point

	Pos Point
	Vel Point
}

// VisualRadius is the marker radius used for clamping and hit-testing.
func (n *Node) VisualRadius() float64 { return n.Size / 2 }

// Edge is an immutable weighted connection between two nodes.
type Edge struct {
	ID       string
	Source   string
	Target   string
	Strength float64
	Label    string
}

// Other returns the endpoint of e that is not id.
func (e *Edge) Other(id string) string {
	if e.Source == id {
		return e.Target
	}
	return e.Source
}

// Touches reports whether id is an endpoint of e.
func (e *Edge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}

// Path is a named group of edges used for autonomous highlighting.
type Path struct {
	ID          string
	EdgeIDs     []string
	Description string
}
