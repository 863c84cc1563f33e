package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var errNoSharedStore = errors.New("analytics are not shared: configure redis.addr or analytics.sqlite_path")

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show link analytics from the shared store",
	Long: `Reads the analytics log the server writes to Redis or SQLite and prints
totals, the most shared prompts and daily counts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Redis.Addr == "" && cfg.Analytics.SQLitePath == "" {
			return errNoSharedStore
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		days, _ := cmd.Flags().GetInt("days")
		if days < 0 {
			return fmt.Errorf("invalid --days %d", days)
		}

		svc, closeStore, err := newAnalytics(cmd.Context(), cfg, logger, nil)
		if err != nil {
			return err
		}
		defer closeStore()

		stats, err := svc.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}

		fmt.Fprintf(out, "Links generated: %d\nLinks visited:   %d\n\n", stats.TotalLinksGenerated, stats.TotalLinksVisited)

		if len(stats.TopPrompts) > 0 {
			rows := make([][]string, 0, len(stats.TopPrompts))
			for _, p := range stats.TopPrompts {
				rows = append(rows, []string{oneLine(p.Prompt), strconv.Itoa(p.Count)})
			}
			fmt.Fprintln(out, renderTable([]string{"Prompt", "Links"}, rows, []columnAlignment{alignLeft, alignRight}))
		}

		daily := stats.DailyStats
		if days < len(daily) {
			daily = daily[len(daily)-days:]
		}
		if len(daily) > 0 {
			rows := make([][]string, 0, len(daily))
			for _, d := range daily {
				rows = append(rows, []string{d.Date, strconv.Itoa(d.Generated), strconv.Itoa(d.Visited)})
			}
			fmt.Fprintln(out, renderTable([]string{"Date", "Generated", "Visited"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
		}
		return nil
	},
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Bool("json", false, "Print the full stats as JSON")
	statsCmd.Flags().Int("days", 7, "Number of days in the daily table")
}
