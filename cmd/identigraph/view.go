package main

import (
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/vanderheijden86/identigraph/pkg/logging"
	"github.com/vanderheijden86/identigraph/pkg/ui"
)

var (
	viewTitle    string
	viewInterval time.Duration
	viewNoWatch  bool
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Interactive terminal view",
	Long: `Show the graph full screen. Move the mouse over nodes to highlight
their neighborhood, click to pin it, tab through nodes from the keyboard.
Press ? for all keys.

When the topology comes from a file, edits are picked up automatically.`,
	RunE: runView,
}

func init() {
	viewCmd.Flags().StringVar(&viewTitle, "title", "Identity Graph", "Header title")
	viewCmd.Flags().DurationVar(&viewInterval, "interval", 0, "Frame interval (default 60fps)")
	viewCmd.Flags().BoolVar(&viewNoWatch, "no-watch", false, "Do not reload when the topology file changes")
}

func runView(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.WithHint(errors.New("view needs a terminal"),
			"use `identigraph render -o graph.png` for headless output")
	}

	// Log lines on stderr would tear through the alt screen.
	if !verbose {
		logger = logging.Discard()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, err := buildSession(cfg)
	if err != nil {
		return err
	}

	var worker *ui.BackgroundWorker
	if cfg.Path() != "" && !viewNoWatch {
		worker, err = ui.NewBackgroundWorker(ui.WorkerConfig{
			Path:   cfg.Path(),
			Build:  buildFromPath,
			Logger: logger,
		})
		if err != nil {
			logger.Warn("file watching disabled", zap.Error(err))
			worker = nil
		}
	}

	m := ui.NewModel(sess, ui.Options{
		Title:    viewTitle,
		Interval: viewInterval,
		Worker:   worker,
		Logger:   logger,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())

	if worker != nil {
		worker.SetProgram(p)
		if err := worker.Start(); err != nil {
			logger.Warn("file watching disabled", zap.Error(err))
		}
		defer worker.Stop()
	}

	final, err := p.Run()
	if fm, ok := final.(ui.Model); ok {
		fm.Session().Teardown()
	} else {
		sess.Teardown()
	}
	if err != nil {
		return errors.Wrap(err, "run viewer")
	}
	return nil
}
