package cmd

import (
	"fmt"
	"io"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newPlanCmd(app *app) *cobra.Command {
	var start, end string
	var chunkDays int

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the search chunks and 12-day cycle windows for a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dateRange, err := domain.ParseDateRange(start, end)
			if err != nil {
				return err
			}
			if chunkDays <= 0 {
				chunkDays = app.cfg.Search.ChunkDays
			}
			return writePlan(cmd.OutOrStdout(), dateRange, chunkDays)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "First acquisition date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Last acquisition date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&chunkDays, "chunk-days", 0, "Search chunk size in days (default from config)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func writePlan(w io.Writer, dateRange domain.DateRange, chunkDays int) error {
	chunks := domain.Chunks(dateRange, chunkDays)
	if _, err := fmt.Fprintf(w, "range: %s (%d days)\n", dateRange, dateRange.Days()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "search chunks (%d days): %d\n", chunkDays, len(chunks)); err != nil {
		return err
	}
	for _, chunk := range chunks {
		if _, err := fmt.Fprintf(w, "  %s\n", chunk.Range); err != nil {
			return err
		}
	}

	windows := domain.CycleWindows(dateRange)
	if _, err := fmt.Fprintf(w, "cycle windows: %d\n", len(windows)); err != nil {
		return err
	}
	for _, window := range windows {
		name := domain.Cycle{Range: window}.Name()
		if _, err := fmt.Fprintf(w, "  %s  %s\n", name, window); err != nil {
			return err
		}
	}

	return nil
}
