package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newChartCmd(e *env) *cobra.Command {
	var (
		filter filterFlags
		out    string
	)
	cmd := &cobra.Command{
		Use:   "chart NAME",
		Short: "Render a player's cumulative total as PNG",
		Long: `Chart draws the player's running total, one point per day.

Example:
  ledgerctl chart Alice -o alice.png
  ledgerctl chart Alice --from "last month" -o - > alice.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Stop()

			f, err := svc.Filter(filter.from, filter.to, filter.chips)
			if err != nil {
				return err
			}
			png, err := svc.Chart(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(png)
				return err
			}
			if err := os.WriteFile(out, png, 0o644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", out, len(png))
			return nil
		},
	}
	filter.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
