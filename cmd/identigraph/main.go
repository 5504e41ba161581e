// Command identigraph shows an animated identity relationship graph in the
// terminal, renders it to images and serves a live browser preview.
package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/vanderheijden86/identigraph/pkg/config"
	"github.com/vanderheijden86/identigraph/pkg/logging"
	"github.com/vanderheijden86/identigraph/pkg/session"
)

var (
	configPath string
	verbose    bool
	jsonLogs   bool

	logger *zap.Logger
)

var (
	good    = color.New(color.FgGreen)
	bad     = color.New(color.FgRed, color.Bold)
	subtle  = color.New(color.FgHiBlack)
	heading = color.New(color.FgHiMagenta, color.Bold)
)

var rootCmd = &cobra.Command{
	Use:   "identigraph",
	Short: "Interactive force-directed identity relationship graph",
	Long: `identigraph animates a graph of identities, credentials and resources.

Nodes settle under spring, repulsion and centering forces. Hover and click
to light up a node's neighborhood; declared paths are highlighted on a
timer when nobody is interacting.

The topology comes from --config, or from the first identigraph.{yaml,toml,json}
found walking up from the current directory, or from the built-in example.

Examples:
  identigraph view                      # Interactive terminal view
  identigraph render -o graph.png       # Settle and write an image
  identigraph render -o a.svg -o a.md   # Several outputs at once
  identigraph serve --addr :8080        # Live preview in the browser
  identigraph validate -c team.yaml     # Check a topology file`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Keep stdout clean of color codes when piped
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			color.NoColor = true
		}
		logger = logging.New(logging.Options{Verbose: verbose, JSON: jsonLogs})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Topology file (yaml, toml or json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Log as JSON lines")

	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		bad.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, hint := range errors.GetAllHints(err) {
			subtle.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

// loadConfig resolves the topology file and loads it. With no file it
// returns the built-in example.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "working directory")
		}
		if found, ok := config.Discover(wd); ok {
			path = found
		}
	}
	if path == "" {
		logger.Debug("no topology file found, using built-in example")
		return config.Default(), nil
	}
	logger.Debug("loading topology", zap.String("path", path))
	return config.Load(path)
}

// buildSession creates a session from cfg.
func buildSession(cfg *config.Config) (*session.Session, error) {
	opts, err := cfg.SessionOptions(logger)
	if err != nil {
		return nil, err
	}
	return session.New(opts)
}

// buildFromPath reloads a topology file; used by file watchers.
func buildFromPath(path string) (*session.Session, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return buildSession(cfg)
}

func describe(cfg *config.Config) string {
	source := cfg.Path()
	if source == "" {
		source = "built-in example"
	}
	return fmt.Sprintf("%s (%d nodes, %d edges, %d paths)", source, len(cfg.Nodes), len(cfg.Edges), len(cfg.Paths))
}
