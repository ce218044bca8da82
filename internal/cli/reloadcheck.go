package cli

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
)

func newReloadCheckCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "reload-check",
		Short: "Load the workbook twice and diff the events",
		Long: `Reload-check reads the workbook, reads it again and compares the two
event lists. Any difference means loading is not deterministic for this
document and is printed as a diff.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Stop()

			first, err := svc.Snapshot()
			if err != nil {
				return err
			}
			second, err := svc.Reload(cmd.Context())
			if err != nil {
				return err
			}
			if diff := cmp.Diff(first.Events, second.Events); diff != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "events differ (-first +second):\n%s", diff)
				return ErrNotIdentical
			}
			if e.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"identical": true, "events": len(second.Events)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "identical: %d events\n", len(second.Events))
			return nil
		},
	}
}
