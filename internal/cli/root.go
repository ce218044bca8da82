// Package cli implements the ledgerctl command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	service "github.com/okian/mjledger/internal/app"
	"github.com/okian/mjledger/internal/config"
	"github.com/okian/mjledger/pkg/logger"
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configFile string
	ledgerPath string
	logLevel   string
	jsonMode   bool
}

// env is the state shared by the subcommands of one invocation.
type env struct {
	flags rootFlags
	cfg   *config.Config
	log   logger.Logger
}

// NewRootCmd creates the top-level "ledgerctl" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Inspect and update a mahjong results workbook",
		Long: `ledgerctl reads the session sheets of a mahjong results workbook,
prints per-player statistics and records new rounds.

Configuration is read from the file named by --config or MJLEDGER_CONFIG,
then MJLEDGER_* environment variables, then flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: e.setup,
	}

	root.PersistentFlags().StringVar(&e.flags.configFile, "config", "", "YAML config file (default: $MJLEDGER_CONFIG)")
	root.PersistentFlags().StringVar(&e.flags.ledgerPath, "ledger", "", "results workbook (default: ledger_path from config)")
	root.PersistentFlags().StringVar(&e.flags.logLevel, "log-level", "warn", "log level written to stderr")
	root.PersistentFlags().BoolVar(&e.flags.jsonMode, "json", false, "output in JSON format")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	})

	root.AddCommand(newVersionCmd())
	root.AddCommand(newStatsCmd(e))
	root.AddCommand(newPlayersCmd(e))
	root.AddCommand(newAddCmd(e))
	root.AddCommand(newChartCmd(e))
	root.AddCommand(newReloadCheckCmd(e))
	root.AddCommand(newSimulateCmd(e))

	return root
}

// Execute runs ledgerctl with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}
	if isCobraUsage(err) {
		err = fmt.Errorf("%w: %w", ErrUsage, err)
	}
	fmt.Fprintln(stderr, "ledgerctl:", err)
	return exitCode(err)
}

// isCobraUsage reports argument errors cobra returns as plain errors.
func isCobraUsage(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.Contains(msg, "arg(s)") ||
		strings.HasPrefix(msg, "required flag")
}

// setup loads configuration and points logging at stderr.
func (e *env) setup(cmd *cobra.Command, _ []string) error {
	path := e.flags.configFile
	if path == "" {
		path = os.Getenv(config.EnvFile)
	}
	cfg, err := config.LoadFile(cmd.Context(), path)
	if err != nil {
		return err
	}
	if e.flags.ledgerPath != "" {
		cfg.LedgerPath = e.flags.ledgerPath
	}
	e.cfg = cfg

	if err := logger.InitWithWriter(cmd.ErrOrStderr(), cfg.LogFormat); err != nil {
		return err
	}
	if err := logger.SetLevelString(e.flags.logLevel); err != nil {
		return fmt.Errorf("%w: --log-level: %w", ErrUsage, err)
	}
	e.log = logger.Get().Named("ledgerctl")
	return nil
}

// open starts a service over the configured workbook. The caller must Stop it.
func (e *env) open(ctx context.Context) (*service.Service, error) {
	opts, err := service.OptionsFromConfig(e.cfg)
	if err != nil {
		return nil, err
	}
	svc := service.New(append(opts, service.WithLogger(e.log))...)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// filterFlags are the date and chip filters shared by read commands.
type filterFlags struct {
	from, to, chips string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "first date (2006-01-02, yymmdd, yyyymmdd or e.g. \"last month\")")
	cmd.Flags().StringVar(&f.to, "to", "", "last date, inclusive")
	cmd.Flags().StringVar(&f.chips, "chips", "", "all, with or without chip entries")
}
