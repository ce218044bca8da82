package repository

import (
	"github.com/okian/mjledger/internal/domain/sheet"
	"github.com/okian/mjledger/pkg/logger"
)

// Defaults for a WorkbookStore.
const (
	DefaultSuffixLimit = 19
)

// DefaultReservedSheets are never parsed as session sheets.
var DefaultReservedSheets = []string{"result", "テンプレ", "template"}

// Option applies a configuration option to the WorkbookStore.
type Option func(*WorkbookStore)

// WithLayout sets the sheet schema shared by load and append.
func WithLayout(layout sheet.Layout) Option {
	return func(s *WorkbookStore) {
		s.layout = layout
	}
}

// WithReservedSheets replaces the set of sheet names excluded from loads.
func WithReservedSheets(names ...string) Option {
	return func(s *WorkbookStore) {
		if names == nil {
			return
		}
		s.reserved = make(map[string]struct{}, len(names))
		for _, n := range names {
			s.reserved[n] = struct{}{}
		}
	}
}

// WithSuffixLimit bounds the "_n" suffix search; n runs from 2 to limit.
func WithSuffixLimit(limit int) Option {
	return func(s *WorkbookStore) {
		if limit >= 1 {
			s.suffixLimit = limit
		}
	}
}

// WithLogger sets the logger used for skip and write diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *WorkbookStore) {
		if l != nil {
			s.log = l
		}
	}
}
