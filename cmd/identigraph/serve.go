package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vanderheijden86/identigraph/pkg/export"
	"github.com/vanderheijden86/identigraph/pkg/watcher"
)

var (
	serveAddr     string
	serveTitle    string
	serveInterval time.Duration
	serveNoWatch  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Live preview in the browser",
	Long: `Serve the animated graph over HTTP. The page shows the current frame as
SVG, forwards hover and clicks to the simulation, and reloads when the
topology file changes.

Endpoints besides the page: /frame.svg, /frame.png, /state.json,
/report.md and /metrics (Prometheus).`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "Listen address")
	serveCmd.Flags().StringVar(&serveTitle, "title", "Identity Graph", "Page title")
	serveCmd.Flags().DurationVar(&serveInterval, "interval", export.DefaultPreviewInterval, "Frame interval")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not reload when the topology file changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, err := buildSession(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	preview := export.NewPreview(sess, export.PreviewOptions{
		Title:    serveTitle,
		Interval: serveInterval,
		Logger:   logger,
	})
	if err := preview.Start(ctx); err != nil {
		preview.Stop()
		return err
	}
	defer preview.Stop()

	if cfg.Path() != "" && !serveNoWatch {
		fw, err := watcher.New(cfg.Path(), watcher.Options{Logger: logger})
		if err == nil {
			err = fw.Start()
		}
		if err != nil {
			logger.Warn("file watching disabled", zap.Error(err))
		} else {
			defer fw.Stop()
			go reloadOnChange(ctx, fw, preview)
		}
	}

	ln, err := net.Listen("tcp", serveAddr)
	if err != nil {
		return errors.WithHint(errors.Wrapf(err, "listen on %s", serveAddr), "pick another port with --addr")
	}
	srv := &http.Server{
		Handler:           preview.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	heading.Fprintf(cmd.OutOrStdout(), "identigraph ")
	fmt.Fprintf(cmd.OutOrStdout(), "serving %s on ", describe(cfg))
	good.Fprintf(cmd.OutOrStdout(), "http://%s\n", ln.Addr())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}
		return nil
	}

	logger.Info("shutting down")
	// SSE streams end when the hub stops, so stop it before draining.
	preview.Hub().Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

// reloadOnChange rebuilds the session whenever fw fires. A broken file
// keeps the current session on screen.
func reloadOnChange(ctx context.Context, fw *watcher.Watcher, preview *export.Preview) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.Changes():
			sess, err := buildFromPath(fw.Path())
			if err != nil {
				logger.Warn("reload failed, keeping current graph", zap.Error(err))
				continue
			}
			preview.Replace(sess)
		}
	}
}
