package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/justchokingaround/playcore/internal/database"
	"github.com/justchokingaround/playcore/internal/history"
	"github.com/justchokingaround/playcore/internal/tui/common"
)

var (
	historyLimit     int
	historyCompleted bool
	historyPending   bool
	historySearch    string
	historySort      string
	historyOlderThan time.Duration
)

func historyService() *history.Service {
	return history.NewService(database.GetDB(),
		history.WithCompletedThreshold(cfg.Progress.CompletedThreshold))
}

// historyCmd lists watch progress
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show watch history",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := history.FilterOptions{
			SearchQuery: historySearch,
			Limit:       historyLimit,
			SortBy:      history.SortOrder(historySort),
		}
		switch {
		case historyCompleted:
			done := true
			filter.Completed = &done
		case historyPending:
			done := false
			filter.Completed = &done
		}

		rows, err := historyService().GetHistory(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("No history yet.")
			return nil
		}

		for _, row := range rows {
			status := fmt.Sprintf("%3.0f%%", row.ProgressPercent)
			if row.Completed {
				status = "done"
			}
			fmt.Printf("%-4s  %s  (%s)\n", status, row.Title, row.MovieID)

			where := common.FormatClock(row.PositionSeconds)
			if row.DurationSeconds > 0 {
				where += " / " + common.FormatClock(row.DurationSeconds)
			}
			src := row.SourceKind
			if row.Platform != "" {
				src += "/" + row.Platform
			}
			if row.Demoted {
				src += " (fallback)"
			}
			fmt.Printf("      %s via %s, %s\n", where, src, humanize.Time(row.WatchedAt))
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear <movie-id>",
	Short: "Forget the watch history of a movie",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := historyService().DeleteByMovieID(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Cleared history for %s\n", args[0])
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise the watch history",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := historyService().GetStats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Sessions: %s\n", humanize.Comma(stats.TotalItems))
		fmt.Printf("Completed: %s\n", humanize.Comma(stats.CompletedCount))
		fmt.Printf("Fell back to embed: %s\n", humanize.Comma(stats.DemotedCount))
		fmt.Printf("Time watched: %s\n", stats.TotalWatchTime.Round(time.Second))
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop unfinished sessions not touched for a while",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := historyService().Cleanup(cmd.Context(), historyOlderThan)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %s unfinished %s\n", humanize.Comma(n), plural(n, "session", "sessions"))
		return nil
	},
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of entries")
	historyCmd.Flags().BoolVar(&historyCompleted, "completed", false, "only finished movies")
	historyCmd.Flags().BoolVar(&historyPending, "in-progress", false, "only unfinished movies")
	historyCmd.Flags().StringVarP(&historySearch, "search", "s", "", "filter by title")
	historyCmd.Flags().StringVar(&historySort, "sort", string(history.SortRecentFirst), "recent_first, oldest_first, title_asc or progress_desc")
	historyCmd.MarkFlagsMutuallyExclusive("completed", "in-progress")
	historyPruneCmd.Flags().DurationVar(&historyOlderThan, "older-than", 90*24*time.Hour, "age of unfinished sessions to drop")

	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyPruneCmd)
}
