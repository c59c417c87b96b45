package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/j-veylop/bidmanager-cli/internal/dbm"
	"github.com/j-veylop/bidmanager-cli/internal/ui/components"
)

const (
	defaultHistoryLimit = 20
	historyChartHeight  = 8

	// historyChartMargin leaves room for the y-axis labels.
	historyChartMargin   = 12
	historyChartMinWidth = 20
)

// historyChartWidth fits the chart to the terminal, never below the minimum.
func historyChartWidth(terminalWidth int) int {
	return max(terminalWidth-historyChartMargin, historyChartMinWidth)
}

func newHistoryCommand(rt *Runtime) *cobra.Command {
	var (
		queryID int64
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs and a chart of downloaded report sizes",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return dbm.InvalidArgument("limit must be positive, got %d", limit)
			}
			if queryID < 0 {
				return dbm.InvalidArgument("query id must not be negative, got %d", queryID)
			}

			cfg := rt.LoadConfig()
			if rt.OpenHistory == nil {
				return fmt.Errorf("activity ledger is not available")
			}
			h, err := rt.OpenHistory(cfg.HistoryPath)
			if err != nil {
				return fmt.Errorf("failed to open activity ledger: %w", err)
			}
			defer func() { _ = h.Close() }()

			rows, err := h.RecentActivity(cmd.Context(), limit, queryID)
			if err != nil {
				return err
			}

			out := rt.Stdout
			_, _ = fmt.Fprintln(out, components.RenderHistory(rows))
			if len(rows) == 0 {
				return nil
			}
			_, _ = fmt.Fprintln(out)
			_, _ = fmt.Fprintln(out, components.RenderHistorySummary(rows))
			if len(components.DownloadSizes(rows)) > 0 {
				_, _ = fmt.Fprintln(out)
				_, _ = fmt.Fprintln(out, components.RenderDownloadChart(rows, historyChartWidth(rt.width()), historyChartHeight))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&queryID, "query-id", 0, "Only show activity of this query")
	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "Number of entries to show")
	return cmd
}
