package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Atharva-Kanherkar/attentive/internal/tui"
)

func init() {
	sessions := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"s"},
		Short:   "List reading sessions, newest first",
		RunE:    runSessions,
	}
	sessions.Flags().IntP("limit", "n", 20, "Number of sessions")
	sessions.Flags().Int("offset", 0, "Sessions to skip")
	sessions.Flags().Bool("json", false, "Print JSON")

	stats := &cobra.Command{
		Use:   "stats <1h|4h|12h|24h|7d>",
		Short: "Productivity statistics for a timeframe",
		Args:  cobra.ExactArgs(1),
		RunE:  runStats,
	}
	stats.Flags().Bool("json", false, "Print JSON")

	RootCmd.AddCommand(
		sessions,
		stats,
		&cobra.Command{
			Use:   "insights <1h|4h|12h|24h|7d>",
			Short: "Productivity patterns and recommendations",
			Args:  cobra.ExactArgs(1),
			RunE:  runInsights,
		},
	)
}

func runSessions(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	asJSON, _ := cmd.Flags().GetBool("json")

	m, err := openManager(cmd.Context())
	if err != nil {
		return err
	}
	defer m.Close()

	sessions, err := m.Sessions(cmd.Context(), limit, offset)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(sessions)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions yet. Run `attentive daemon --track` to start.")
		return nil
	}
	for _, s := range sessions {
		state := s.Duration.Truncate(time.Second).String()
		if s.IsOpen() {
			state = "open"
		}
		fmt.Printf("%s  %-10s  %-8s  %s\n", s.StartTime.Local().Format("2006-01-02 15:04"), s.Source, state, s.Title)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	m, err := openManager(cmd.Context())
	if err != nil {
		return err
	}
	defer m.Close()

	stats, err := m.ProductivityStats(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(stats)
	}

	lines := []string{
		fmt.Sprintf("Analyses: %d (%d scored)", stats.Count, stats.ScoredCount),
		tui.ScoreBar("Average", stats.AverageScore, 20),
		tui.ScoreBar("Lowest ", stats.MinScore, 20),
		tui.ScoreBar("Highest", stats.MaxScore, 20),
	}
	if c := stats.AverageConfidence; c != nil {
		lines = append(lines, fmt.Sprintf("Confidence: %.0f%%", *c*100))
	}
	fmt.Println(tui.Box("Productivity, last "+string(stats.Timeframe), strings.Join(lines, "\n")))
	return nil
}

func runInsights(cmd *cobra.Command, args []string) error {
	m, err := openManager(cmd.Context())
	if err != nil {
		return err
	}
	defer m.Close()

	res, err := m.Insights(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(res)
}
