package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const modulePath = "github.com/okian/mjledger"

// Version is set at build time with -ldflags "-X github.com/okian/mjledger/internal/cli.Version=...".
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ledgerctl version",
		Args:  cobra.NoArgs,
		// no config or workbook needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "ledgerctl %s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
