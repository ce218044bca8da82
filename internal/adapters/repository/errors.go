package repository

import "errors"

// Sentinel kinds for ledger document errors.
var (
	ErrSheetFull      = errors.New("session sheet is full")
	ErrNoSheetName    = errors.New("no free sheet name for date")
	ErrMalformedSheet = errors.New("session sheet is malformed")
	ErrOpenDocument   = errors.New("cannot open ledger document")
	ErrSaveDocument   = errors.New("cannot save ledger document")
)
