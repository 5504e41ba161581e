package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/identigraph/pkg/config"
	"github.com/vanderheijden86/identigraph/pkg/model"
)

var (
	validateAll   bool
	validateDepth int
)

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Check topology files",
	Long: `Check one or more topology files and list every problem found. With no
arguments, the --config file or the discovered file is checked. With --all,
every topology file below the working directory is checked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := args
		if validateAll {
			wd, err := os.Getwd()
			if err != nil {
				return errors.Wrap(err, "working directory")
			}
			paths = append(paths, config.ScanTopologies(wd, validateDepth)...)
			if len(paths) == 0 {
				return errors.WithHint(errors.Newf("no topology files below %s", wd),
					"topology files are named identigraph.yaml or <name>.identigraph.yaml")
			}
		}
		if len(paths) == 0 {
			path, err := resolvePath()
			if err != nil {
				return err
			}
			paths = []string{path}
		}

		failed := 0
		for _, path := range paths {
			if !reportValidation(cmd.OutOrStdout(), path, loadForValidation(path)) {
				failed++
			}
		}
		if failed > 0 {
			return errors.Newf("%d of %d files invalid", failed, len(paths))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateAll, "all", false, "Check every topology file below the working directory")
	validateCmd.Flags().IntVar(&validateDepth, "depth", 3, "Directory depth for --all")
}

// resolvePath returns --config or the discovered topology file.
func resolvePath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "working directory")
	}
	if found, ok := config.Discover(wd); ok {
		return found, nil
	}
	return "", errors.WithHint(errors.New("no topology file found"),
		"pass a file or create identigraph.yaml")
}

func loadForValidation(path string) error {
	_, err := config.Load(path)
	return err
}

// reportValidation prints a ✓ or ✗ line for path followed by each problem.
// It reports whether the file is valid.
func reportValidation(w io.Writer, path string, err error) bool {
	if err == nil {
		good.Fprint(w, "✓ ")
		fmt.Fprintln(w, path)
		return true
	}

	bad.Fprint(w, "✗ ")
	fmt.Fprintln(w, path)
	var cerr *model.ConfigError
	if errors.As(err, &cerr) {
		for _, p := range cerr.Problems {
			subtle.Fprintf(w, "    - %s\n", p)
		}
		return false
	}
	subtle.Fprintf(w, "    %v\n", err)
	return false
}
