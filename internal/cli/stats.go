package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	service "github.com/okian/mjledger/internal/app"
	"github.com/okian/mjledger/internal/domain/stats"
)

func newStatsCmd(e *env) *cobra.Command {
	var (
		filter filterFlags
		sortBy string
		order  string
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the per-player stats table",
		Long: `Stats prints total, chips, average rank and games for every player
with events in the selected range.

Example:
  ledgerctl stats
  ledgerctl stats --from 2025-08-01 --to today --chips without
  ledgerctl stats --sort avg_rank --order asc --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			col, ok := stats.ParseColumn(sortBy)
			if !ok {
				return fmt.Errorf("%w: unknown sort column %q", ErrUsage, sortBy)
			}
			var desc bool
			switch order {
			case "":
				desc = col != stats.ColumnName
			case "desc":
				desc = true
			case "asc":
			default:
				return fmt.Errorf("%w: order must be asc or desc", ErrUsage)
			}

			svc, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Stop()

			f, err := svc.Filter(filter.from, filter.to, filter.chips)
			if err != nil {
				return err
			}
			rows, err := svc.Stats(cmd.Context(), service.Query{Filter: f, Sort: col, Desc: desc})
			if err != nil {
				return err
			}
			if e.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), rows)
			}
			printStatsTable(cmd.OutOrStdout(), rows)
			return nil
		},
	}
	filter.register(cmd)
	cmd.Flags().StringVar(&sortBy, "sort", "total", "name, total, chip, avg_rank or games")
	cmd.Flags().StringVar(&order, "order", "", "asc or desc (default: desc, asc for name)")
	return cmd
}

func newPlayersCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "players",
		Short: "List every player in the workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Stop()

			names, err := svc.Players(cmd.Context())
			if err != nil {
				return err
			}
			if e.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), names)
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

// printStatsTable prints rows in a human-readable table format.
func printStatsTable(out io.Writer, rows []stats.Row) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No games found.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "PLAYER\tTOTAL\tCHIP\tAVG RANK\tGAMES\t")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%.1f\t%d\t%.2f\t%d\t\n", r.Player, r.Total, r.Chip, r.AvgRank, r.Games)
	}
	_ = w.Flush()
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
