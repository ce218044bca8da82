package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/okian/mjledger/internal/domain/sheet"
	"github.com/okian/mjledger/pkg/logger"
	"github.com/xuri/excelize/v2"
)

// WorkbookStore is a Store backed by a single xlsx document on disk.
//
// Every call opens the document afresh; callers serialize writes (the ledger
// holds its write lock across Append and the following Load).
type WorkbookStore struct {
	path        string
	layout      sheet.Layout
	reserved    map[string]struct{}
	suffixLimit int
	log         logger.Logger
}

// NewWorkbookStore creates a store for the document at path.
func NewWorkbookStore(path string, opts ...Option) *WorkbookStore {
	s := &WorkbookStore{
		path:        path,
		layout:      sheet.NewLayout(),
		suffixLimit: DefaultSuffixLimit,
		log:         logger.Nop(),
	}
	WithReservedSheets(DefaultReservedSheets...)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the document location.
func (s *WorkbookStore) Path() string { return s.path }

// Layout returns the sheet schema in use.
func (s *WorkbookStore) Layout() sheet.Layout { return s.layout }

func (s *WorkbookStore) isReserved(name string) bool {
	_, ok := s.reserved[name]
	return ok
}

// open returns the workbook, or an error wrapping fs.ErrNotExist when the
// document is missing.
func (s *WorkbookStore) open() (*excelize.File, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpenDocument, s.path, err)
	}
	return f, nil
}

// openOrCreate is open, falling back to a fresh workbook for a missing
// document. fresh reports the fallback.
func (s *WorkbookStore) openOrCreate() (f *excelize.File, fresh bool, err error) {
	f, err = s.open()
	switch {
	case err == nil:
		return f, false, nil
	case errors.Is(err, fs.ErrNotExist):
		return excelize.NewFile(), true, nil
	case errors.Is(err, ErrOpenDocument):
		return nil, false, err
	default:
		return nil, false, fmt.Errorf("%w: %s: %v", ErrOpenDocument, s.path, err)
	}
}

// save writes the workbook next to the document and renames it into place,
// so a failed write never leaves a truncated ledger behind.
func (s *WorkbookStore) save(f *excelize.File) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: %v", ErrSaveDocument, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveDocument, err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if err := f.Write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write: %v", ErrSaveDocument, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: sync: %v", ErrSaveDocument, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrSaveDocument, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrSaveDocument, err)
	}
	return nil
}
