package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/mjledger/internal/domain/model"
	"github.com/okian/mjledger/internal/domain/types"
)

func newAddCmd(e *env) *cobra.Command {
	var (
		id   string
		date string
		mode string
	)
	cmd := &cobra.Command{
		Use:   "add NAME=POINTS[/CHIP] x4",
		Short: "Record one round",
		Long: `Add appends a round to the session sheet for the date and roster,
creating the sheet when none matches. Seats are given in table order.

In points mode (default) POINTS are holding points that must sum to the
configured total. In scores mode they are final scores that sum to zero.

Example:
  ledgerctl add A=35000 B=30000 C=20000 D=15000
  ledgerctl add --date yesterday A=40000/2 B=30000/-1 C=20000/-1 D=10000
  ledgerctl add --mode scores A=50 B=10 C=-20 D=-40`,
		Args: cobra.ExactArgs(model.Seats),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := types.RecordRequest{ID: id, Date: date, Mode: mode}
			for _, arg := range args {
				seat, err := parseSeat(arg)
				if err != nil {
					return err
				}
				req.Seats = append(req.Seats, seat)
			}

			svc, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Stop()

			day, err := svc.ParseDate(req.Date)
			if err != nil {
				return err
			}
			sub, err := req.Submission(day)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrUsage, err)
			}
			res, _, err := svc.AddRecord(cmd.Context(), sub)
			if err != nil && !res.Success {
				return err
			}
			if err != nil {
				// written, but the snapshot did not refresh
				e.log.Warn(cmd.Context(), "reload after append failed")
			}
			if e.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), res)
			}
			verb := "appended to"
			if res.Created {
				verb = "created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "round %d %s sheet %s\n", res.Round, verb, res.Sheet)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "submission id (default: generated)")
	cmd.Flags().StringVar(&date, "date", "", "session date (default: today)")
	cmd.Flags().StringVar(&mode, "mode", string(model.ModePoints), "points or scores")
	return cmd
}

// parseSeat reads NAME=POINTS or NAME=POINTS/CHIP. The last '=' separates
// the name, so names may contain '='.
func parseSeat(s string) (types.SeatInput, error) {
	i := strings.LastIndex(s, "=")
	if i <= 0 {
		return types.SeatInput{}, fmt.Errorf("%w: seat %q is not NAME=POINTS", ErrUsage, s)
	}
	seat := types.SeatInput{Name: s[:i]}
	value, chip, hasChip := strings.Cut(s[i+1:], "/")
	var err error
	if seat.Points, err = strconv.Atoi(value); err != nil {
		return types.SeatInput{}, fmt.Errorf("%w: seat %q: points: %w", ErrUsage, s, err)
	}
	if hasChip {
		if seat.Chip, err = strconv.Atoi(chip); err != nil {
			return types.SeatInput{}, fmt.Errorf("%w: seat %q: chip: %w", ErrUsage, s, err)
		}
	}
	return seat, nil
}
