package render

import (
	"fmt"

	"github.com/vanderheijden86/identigraph/pkg/model"
)

// EdgeRenderer draws the edge pass onto an immediate-mode surface.
type EdgeRenderer interface {
	DrawEdges(edges []EdgeDraw) error
}

// NodeRenderer draws the node pass, typically onto a retained element tree.
type NodeRenderer interface {
	DrawNodes(nodes []NodeDraw) error
}

// Renderer is a complete back end: a surface lifecycle plus both passes.
type Renderer interface {
	Begin(bounds model.Bounds) error
	EdgeRenderer
	NodeRenderer
	End() error
}

// Draw runs one render pass: edges first, then nodes on top.
func Draw(r Renderer, f Frame) error {
	if err := r.Begin(f.Bounds); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	if err := r.DrawEdges(f.Edges); err != nil {
		return fmt.Errorf("edge pass: %w", err)
	}
	if err := r.DrawNodes(f.Nodes); err != nil {
		return fmt.Errorf("node pass: %w", err)
	}
	if err := r.End(); err != nil {
		return fmt.Errorf("end frame: %w", err)
	}
	return nil
}

// Layered combines independent edge and node surfaces into one Renderer.
// Either layer may be nil.
type Layered struct {
	Edges EdgeRenderer
	Nodes NodeRenderer
}

// Begin is a no-op; each layer manages its own surface.
func (l Layered) Begin(model.Bounds) error { return nil }

// End is a no-op.
func (l Layered) End() error { return nil }

// DrawEdges forwards to the edge layer.
func (l Layered) DrawEdges(edges []EdgeDraw) error {
	if l.Edges == nil {
		return nil
	}
	return l.Edges.DrawEdges(edges)
}

// DrawNodes forwards to the node layer.
func (l Layered) DrawNodes(nodes []NodeDraw) error {
	if l.Nodes == nil {
		return nil
	}
	return l.Nodes.DrawNodes(nodes)
}

// Multi fans each pass out to several renderers, stopping at the first error.
type Multi []Renderer

func (m Multi) Begin(b model.Bounds) error {
	for _, r := range m {
		if err := r.Begin(b); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) DrawEdges(edges []EdgeDraw) error {
	for _, r := range m {
		if err := r.DrawEdges(edges); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) DrawNodes(nodes []NodeDraw) error {
	for _, r := range m {
		if err := r.DrawNodes(nodes); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) End() error {
	for _, r := range m {
		if err := r.End(); err != nil {
			return err
		}
	}
	return nil
}
