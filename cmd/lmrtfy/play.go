package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/lmrtfy/internal/presentation/tui"
	"github.com/aretw0/lmrtfy/pkg/playback"
	"github.com/aretw0/lmrtfy/pkg/token"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play [token]",
	Short: "Play the demo of a link in the terminal",
	Long: `Plays the typing demo for a link token (the q parameter) or, with
--prompt, for a plain prompt. Without --loop it exits once the demo ends.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		loop, _ := cmd.Flags().GetBool("loop")
		prompt, _ := cmd.Flags().GetString("prompt")

		switch {
		case len(args) == 1 && prompt != "":
			return errors.New("give either a token or --prompt, not both")
		case len(args) == 1:
			prompt = token.Decode(args[0])
		case prompt == "":
			return errors.New("missing token")
		}

		out := cmd.OutOrStdout()
		interactive := isTerminal(out)
		if interactive {
			tui.PrintBanner(out)
			if render, err := tui.NewRenderer(); err == nil {
				if md, err := render(tui.IntroMarkdown(prompt)); err == nil {
					fmt.Fprint(out, md)
				}
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		player := playback.NewPlayer(playback.Config{Prompt: prompt, AutoPlay: true, Loop: loop},
			playback.WithTiming(cfg.Playback),
			playback.WithLogger(logger),
		)
		return play(ctx, player, tui.NewDisplay(out, interactive))
	},
}

// play renders snapshots until the demo stops, ctx ends or the player closes.
func play(ctx context.Context, player *playback.Player, display *tui.Display) error {
	updates, unsubscribe := player.Subscribe()
	defer unsubscribe()
	player.Start(ctx)
	defer player.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			display.Render(snap)
			if !snap.IsPlaying && snap.StepIndex == int(playback.StepReadyToSubmit) {
				return nil
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().Bool("loop", false, "Restart the demo after the last step")
	playCmd.Flags().String("prompt", "", "Play a plain prompt instead of a token")
}
