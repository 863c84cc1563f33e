package main

import (
	"fmt"

	"github.com/aretw0/lmrtfy/internal/presentation/graph"
	"github.com/aretw0/lmrtfy/pkg/playback"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the demo steps as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of the demo steps and their dwell times.
With --at, the step reached after that much playback is highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		loop, _ := cmd.Flags().GetBool("loop")
		at, _ := cmd.Flags().GetDuration("at")

		m := playback.NewMachine(cfg.Playback)
		var overlay *graph.GraphOverlay
		if cmd.Flags().Changed("at") {
			overlay = graph.OverlayAt(m, playback.Config{Prompt: "example", AutoPlay: true, Loop: loop}, at)
		}

		_, err = fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(m.Timing(), loop, overlay))
		return err
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().Bool("loop", false, "Draw the looping variant")
	graphCmd.Flags().Duration("at", 0, "Highlight the step reached after this much playback")
}
