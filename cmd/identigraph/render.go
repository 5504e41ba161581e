package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vanderheijden86/identigraph/pkg/config"
	"github.com/vanderheijden86/identigraph/pkg/export"
	"github.com/vanderheijden86/identigraph/pkg/render"
	"github.com/vanderheijden86/identigraph/pkg/session"
)

var (
	renderOutputs  []string
	renderWarmup   int
	renderWidth    float64
	renderHeight   float64
	renderActivate string
	renderTitle    string
	renderSeqDir   string
	renderSeqCount int
	renderSeqFmt   string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Settle the layout and write images or reports",
	Long: `Run the simulation headless for a fixed number of frames and write the
result. The format follows each output's extension: .png, .svg, .json
(layout state) or .md (Markdown report with a Mermaid diagram).

With --sequence, frames after warmup are written one file each for
stitching into an animation.

Examples:
  identigraph render -o graph.png
  identigraph render -o graph.svg -o layout.json --activate users
  identigraph render --sequence frames/ --sequence-frames 120`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringArrayVarP(&renderOutputs, "output", "o", nil, "Output file (repeatable)")
	renderCmd.Flags().IntVar(&renderWarmup, "frames", 300, "Physics frames to run before writing")
	renderCmd.Flags().Float64Var(&renderWidth, "width", 0, "Canvas width (default from config)")
	renderCmd.Flags().Float64Var(&renderHeight, "height", 0, "Canvas height (default from config)")
	renderCmd.Flags().StringVar(&renderActivate, "activate", "", "Highlight this node's neighborhood")
	renderCmd.Flags().StringVar(&renderTitle, "title", "", "Report heading for .md outputs")
	renderCmd.Flags().StringVar(&renderSeqDir, "sequence", "", "Write an image sequence to this directory")
	renderCmd.Flags().IntVar(&renderSeqCount, "sequence-frames", 60, "Number of sequence images")
	renderCmd.Flags().StringVar(&renderSeqFmt, "format", "png", "Sequence image format (png or svg)")
}

func runRender(cmd *cobra.Command, args []string) error {
	if len(renderOutputs) == 0 && renderSeqDir == "" {
		return errors.WithHint(errors.New("nothing to write"), "pass -o graph.png or --sequence DIR")
	}
	if renderWarmup < 0 {
		return errors.Newf("--frames must be non-negative, got %d", renderWarmup)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCanvasFlags(cfg)

	sess, err := headlessSession(cfg)
	if err != nil {
		return err
	}
	defer sess.Teardown()

	frame, err := settle(sess, renderWarmup, renderActivate)
	if err != nil {
		return err
	}

	if len(renderOutputs) > 0 {
		snap := export.Snapshot{Frame: frame, State: sess.Snapshot(), Title: renderTitle}
		if err := export.SaveAll(cmd.Context(), snap, renderOutputs...); err != nil {
			return err
		}
		for _, out := range renderOutputs {
			good.Fprintf(cmd.OutOrStdout(), "✓ ")
			fmt.Fprintln(cmd.OutOrStdout(), out)
		}
	}

	if renderSeqDir != "" {
		paths, err := export.RenderSequence(cmd.Context(), sess, renderSeqDir, export.SequenceOptions{
			Frames: renderSeqCount,
			Format: export.Format(renderSeqFmt),
			Logger: logger,
		})
		if err != nil {
			return err
		}
		good.Fprintf(cmd.OutOrStdout(), "✓ ")
		fmt.Fprintf(cmd.OutOrStdout(), "%d frames in %s\n", len(paths), renderSeqDir)
	}
	return nil
}

func applyCanvasFlags(cfg *config.Config) {
	if renderWidth > 0 {
		cfg.Canvas.Width = renderWidth
	}
	if renderHeight > 0 {
		cfg.Canvas.Height = renderHeight
	}
}

// headlessSession builds a session without autonomous activation, so output
// depends only on the flags.
func headlessSession(cfg *config.Config) (*session.Session, error) {
	opts, err := cfg.SessionOptions(logger)
	if err != nil {
		return nil, err
	}
	opts.Interaction.AutoEnabled = false
	return session.New(opts)
}

// settle runs frames physics steps, activating node first when given, and
// returns the last composed frame.
func settle(sess *session.Session, frames int, node string) (render.Frame, error) {
	if node != "" && !sess.Activate(node) {
		return render.Frame{}, errors.WithHint(errors.Newf("unknown node %q", node),
			"run `identigraph state` to list node ids")
	}
	f, err := sess.Step(0)
	if err != nil {
		return f, err
	}
	for i := 0; i < frames; i++ {
		if f, err = sess.Step(1); err != nil {
			return f, err
		}
	}
	logger.Debug("settled", zap.Int("frames", frames), zap.String("activate", node))
	return f, nil
}
