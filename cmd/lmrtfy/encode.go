package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/lmrtfy/internal/config"
	"github.com/aretw0/lmrtfy/internal/presentation/tui"
	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/aretw0/lmrtfy/pkg/token"
	"github.com/spf13/cobra"
)

var encodeCmd = &cobra.Command{
	Use:   "encode [prompt]",
	Short: "Create a shareable link for a prompt",
	Long: `Encodes a prompt into a link token. The prompt is taken from the
arguments, or read from stdin when no argument is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		tokenOnly, _ := cmd.Flags().GetBool("token")

		raw := strings.Join(args, " ")
		if len(args) == 0 {
			data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), int64(cfg.Links.MaxPromptBytes)+1))
			if err != nil {
				return fmt.Errorf("failed to read prompt: %w", err)
			}
			raw = string(data)
		}

		prompt, err := domain.NormalizePrompt(raw, cfg.Links.MaxPromptBytes)
		if err != nil {
			return err
		}

		codec := token.New(token.WithLevel(cfg.Links.CompressionLevel))
		link := codec.Link(publicURL(cfg), cfg.Links.AssistantURL, prompt)

		out := cmd.OutOrStdout()
		switch {
		case asJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(link)
		case tokenOnly:
			_, err := fmt.Fprintln(out, link.Token)
			return err
		case isTerminal(out):
			render, err := tui.NewRenderer()
			if err != nil {
				return err
			}
			md, err := render(tui.LinkMarkdown(link))
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(out, md)
			return err
		default:
			_, err := fmt.Fprintln(out, link.URL)
			return err
		}
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <token>",
	Short: "Print the prompt carried by a link token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		prompt, strategy := token.New().DecodeStrategy(args[0])
		out := cmd.OutOrStdout()
		if asJSON {
			return json.NewEncoder(out).Encode(map[string]string{
				"prompt":       prompt,
				"strategy":     strategy,
				"assistantUrl": token.AssistantURL(cfg.Links.AssistantURL, prompt),
			})
		}
		_, err = fmt.Fprintln(out, prompt)
		return err
	},
}

// publicURL is where links point when no public URL is configured.
func publicURL(cfg config.Config) string {
	if cfg.Server.PublicURL != "" {
		return strings.TrimRight(cfg.Server.PublicURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)

	encodeCmd.Flags().Bool("json", false, "Print the link as JSON")
	encodeCmd.Flags().Bool("token", false, "Print only the token")
	decodeCmd.Flags().Bool("json", false, "Print prompt, strategy and assistant URL as JSON")
}
