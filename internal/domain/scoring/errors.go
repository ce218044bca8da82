package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrPointTotal = errors.New("holding points do not sum to the point total")
	ErrScoreSum   = errors.New("scores do not sum to zero")
)
