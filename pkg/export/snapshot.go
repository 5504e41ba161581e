// Package export writes frames and layout state to files: PNG and SVG
// images, frame sequences, JSON state dumps and Markdown reports.
package export

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/identigraph/pkg/render"
	"github.com/vanderheijden86/identigraph/pkg/session"
)

// Format is an output file type.
type Format string

const (
	PNG      Format = "png"
	SVG      Format = "svg"
	JSON     Format = "json"
	Markdown Format = "md"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG, nil
	case ".svg":
		return SVG, nil
	case ".json":
		return JSON, nil
	case ".md", ".markdown":
		return Markdown, nil
	}
	return "", errors.WithHint(errors.Newf("unsupported output %q", path),
		"use a .png, .svg, .json or .md file name")
}

// Snapshot pairs a composed frame with the layout state it was composed from.
type Snapshot struct {
	Frame render.Frame
	State session.Snapshot
	Title string // Markdown report heading
}

// WriteFrame draws f onto w in the given image format.
func WriteFrame(w io.Writer, f render.Frame, format Format) error {
	switch format {
	case PNG:
		r, err := render.NewRaster(f.Bounds)
		if err != nil {
			return err
		}
		if err := render.Draw(r, f); err != nil {
			return err
		}
		return r.EncodePNG(w)
	case SVG:
		return render.Draw(render.NewSVG(w), f)
	}
	return errors.Newf("%s is not an image format", format)
}

// WriteState writes the layout and highlight state as indented JSON.
func WriteState(w io.Writer, snap session.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// Write writes s to w in the given format.
func Write(w io.Writer, s Snapshot, format Format) error {
	switch format {
	case PNG, SVG:
		return WriteFrame(w, s.Frame, format)
	case JSON:
		return WriteState(w, s.State)
	case Markdown:
		title := s.Title
		if title == "" {
			title = "Identity Graph"
		}
		_, err := io.WriteString(w, GenerateMarkdown(s.State, title))
		return err
	}
	return errors.Newf("unknown format %q", format)
}

// SaveAll writes s to every path concurrently, choosing each format from
// the file extension. All formats are checked before anything is written.
func SaveAll(ctx context.Context, s Snapshot, paths ...string) error {
	formats := make([]Format, len(paths))
	for i, p := range paths {
		f, err := FormatFor(p)
		if err != nil {
			return err
		}
		formats[i] = f
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return saveFile(p, s, formats[i])
		})
	}
	return g.Wait()
}

func saveFile(path string, s Snapshot, format Format) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	bw := bufio.NewWriter(file)
	if err := Write(bw, s, format); err != nil {
		file.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(file.Close(), "close %s", path)
}
