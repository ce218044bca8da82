// Package repository persists the ledger in a multi-sheet xlsx workbook.
package repository

import (
	"context"

	"github.com/okian/mjledger/internal/domain/model"
)

// Store provides read/write access to the ledger document.
type Store interface {
	// Load parses every session sheet into a flat event list. A missing
	// document yields an empty ledger.
	Load(ctx context.Context) ([]model.Event, error)

	// Append writes one round into the sheet matching the entry's date key
	// and roster, creating the sheet (and the document) when needed.
	Append(ctx context.Context, entry model.Entry) (model.AppendResult, error)
}
