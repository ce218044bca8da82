package sheet

import "errors"

// Sentinel kinds for sheets that are not part of the ledger. All of them are
// skip conditions for a loader, not load failures.
var (
	ErrNotDataSheet   = errors.New("sheet name is not a session date")
	ErrEmptySheet     = errors.New("sheet has no players")
	ErrMalformedSheet = errors.New("malformed session sheet")
)
