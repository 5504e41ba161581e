package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/identigraph/pkg/render"
)

// Stepper advances a simulation by dt frames and returns the composed frame.
// *session.Session satisfies it.
type Stepper interface {
	Step(dt float64) (render.Frame, error)
}

// SequenceOptions configures RenderSequence.
type SequenceOptions struct {
	Frames  int     // Number of frames to write
	Step    float64 // Physics frames advanced between images, default 1
	Format  Format  // PNG or SVG
	Workers int     // Concurrent encoders, default GOMAXPROCS
	Logger  *zap.Logger
}

// RenderSequence steps s and writes each frame to dir as frame-00000.png
// and so on. Stepping is sequential; encoding runs on a bounded worker
// pool. It returns the written paths in frame order.
func RenderSequence(ctx context.Context, s Stepper, dir string, opts SequenceOptions) ([]string, error) {
	if opts.Frames <= 0 {
		return nil, errors.Newf("frame count must be positive, got %d", opts.Frames)
	}
	if opts.Format != PNG && opts.Format != SVG {
		return nil, errors.WithHint(errors.Newf("sequence format %q", opts.Format), "use png or svg")
	}
	if opts.Step <= 0 {
		opts.Step = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", dir)
	}

	// Rasters are reused across frames; each worker holds one at a time.
	rasters := make(chan *render.Raster, opts.Workers)

	paths := make([]string, opts.Frames)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range opts.Frames {
		if ctx.Err() != nil {
			break
		}
		f, err := s.Step(opts.Step)
		if err != nil {
			g.Wait()
			return nil, errors.Wrapf(err, "step frame %d", i)
		}
		paths[i] = filepath.Join(dir, fmt.Sprintf("frame-%05d.%s", i, opts.Format))
		path := paths[i]
		g.Go(func() error {
			if opts.Format == SVG {
				return writeSVGFile(path, f)
			}
			return writePNGFile(path, f, rasters)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Info("sequence written",
		zap.String("dir", dir),
		zap.Int("frames", opts.Frames),
		zap.String("format", string(opts.Format)))
	return paths, nil
}

func writePNGFile(path string, f render.Frame, pool chan *render.Raster) error {
	var r *render.Raster
	select {
	case r = <-pool:
	default:
		var err error
		if r, err = render.NewRaster(f.Bounds); err != nil {
			return err
		}
	}
	defer func() {
		select {
		case pool <- r:
		default:
		}
	}()
	if err := render.Draw(r, f); err != nil {
		return errors.Wrapf(err, "draw %s", path)
	}
	return errors.Wrapf(r.SavePNG(path), "save %s", path)
}

func writeSVGFile(path string, f render.Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := WriteFrame(file, f, SVG); err != nil {
		file.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(file.Close(), "close %s", path)
}
