package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/mjledger/internal/domain/scoring"
	"github.com/okian/mjledger/internal/simulate"
)

func newSimulateCmd(e *env) *cobra.Command {
	var (
		cfg     simulate.Config
		baseURL string
		timeout time.Duration
		start   string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Record random sessions and verify the resulting stats",
		Long: `Simulate generates seeded random sessions, records every round and checks
that each player's total moved by exactly the derived scores.

Rounds are written to the workbook given by --ledger, or posted to a running
API when --url is set. Use a scratch workbook: simulated rounds are real rows.

Example:
  ledgerctl simulate --ledger /tmp/sim.xlsx --sessions 10 --rounds 6
  ledgerctl simulate --url http://localhost:9080 --seed 42 --replay 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if start != "" {
				t, err := time.Parse(time.DateOnly, start)
				if err != nil {
					return fmt.Errorf("%w: --start: %w", ErrUsage, err)
				}
				cfg.Start = t
			}
			conv := scoring.NewConverter(e.cfg.ScoringOptions()...)

			var target simulate.Ledger
			if baseURL != "" {
				client := simulate.NewHTTPClient(baseURL, timeout)
				if err := client.Health(ctx); err != nil {
					return err
				}
				target = client
			} else {
				svc, err := e.open(ctx)
				if err != nil {
					return err
				}
				defer svc.Stop()
				target = simulate.NewLocal(svc)
			}

			rep, err := simulate.NewRunner(target,
				simulate.WithConverter(conv),
				simulate.WithLogger(e.log.Named("simulate")),
			).Run(ctx, cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if e.flags.jsonMode {
				if err := printJSON(out, rep); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "seed %d: %d submitted, %d created, %d appended, %d replayed, %d rejected, %d failed in %s\n",
					rep.Seed, rep.Submitted, rep.Created, rep.Appended, rep.Replayed, rep.Rejected, rep.Failed,
					rep.Duration.Round(time.Millisecond))
				for _, m := range rep.Mismatches {
					fmt.Fprintln(out, "mismatch:", m)
				}
			}
			if !rep.OK() {
				return ErrSimulation
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&cfg.Sessions, "sessions", simulate.DefaultSessions, "sessions to play")
	f.IntVar(&cfg.Rounds, "rounds", simulate.DefaultRounds, "rounds per session")
	f.IntVar(&cfg.PoolSize, "players", simulate.DefaultPoolSize, "size of the player pool")
	f.IntVar(&cfg.Workers, "workers", simulate.DefaultWorkers, "sessions submitted concurrently")
	f.Int64Var(&cfg.Seed, "seed", 0, "random seed (default: from the clock)")
	f.IntVar(&cfg.ReplayPct, "replay", simulate.DefaultReplayPct, "percent of rounds resubmitted with the same id")
	f.StringVar(&start, "start", "", "date of the first session, 2006-01-02 (default: sessions days ago)")
	f.BoolVar(&cfg.Verbose, "verbose", false, "log every recorded round")
	f.StringVar(&baseURL, "url", "", "post to a running API instead of the workbook")
	f.DurationVar(&timeout, "timeout", simulate.DefaultTimeout, "HTTP request timeout")
	return cmd
}
