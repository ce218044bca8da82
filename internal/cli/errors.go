package cli

import (
	"errors"

	"github.com/okian/mjledger/internal/adapters/repository"
	service "github.com/okian/mjledger/internal/app"
	"github.com/okian/mjledger/internal/config"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

var (
	// ErrUsage marks bad arguments or flags.
	ErrUsage = errors.New("usage")
	// ErrNotIdentical is returned by reload-check when two loads differ.
	ErrNotIdentical = errors.New("loads are not identical")
	// ErrSimulation is returned when a simulation run does not verify.
	ErrSimulation = errors.New("simulation did not verify")
)

// exitCode maps an error onto the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, ErrUsage),
		errors.Is(err, service.ErrInvalidSubmission),
		errors.Is(err, service.ErrInvalidQuery),
		errors.Is(err, service.ErrPlayerNotFound),
		errors.Is(err, repository.ErrSheetFull),
		errors.Is(err, repository.ErrNoSheetName),
		errors.Is(err, config.ErrInvalidConfig):
		return exitUserError
	default:
		return exitSysError
	}
}
