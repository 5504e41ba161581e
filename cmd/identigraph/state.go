package main

import (
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/identigraph/pkg/export"
)

var (
	stateFrames   int
	stateActivate string
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the settled layout as JSON",
	Long: `Run the simulation headless and print node positions, edges, paths and
the highlight state as JSON on stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sess, err := headlessSession(cfg)
		if err != nil {
			return err
		}
		defer sess.Teardown()

		if _, err := settle(sess, stateFrames, stateActivate); err != nil {
			return err
		}
		return export.WriteState(cmd.OutOrStdout(), sess.Snapshot())
	},
}

func init() {
	stateCmd.Flags().IntVar(&stateFrames, "frames", 300, "Physics frames to run first")
	stateCmd.Flags().StringVar(&stateActivate, "activate", "", "Highlight this node's neighborhood")
}
