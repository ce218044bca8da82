package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/okian/mjledger/internal/domain/model"
	"github.com/okian/mjledger/internal/domain/sheet"
	"github.com/okian/mjledger/pkg/logger"
	"github.com/okian/mjledger/pkg/metrics"
	"github.com/xuri/excelize/v2"
)

// Skip reasons reported in logs and the sheets_skipped_total metric.
const (
	SkipNotDataSheet = "not_data_sheet"
	SkipEmpty        = "empty"
	SkipMalformed    = "malformed"
	SkipUnreadable   = "unreadable"
)

// Load parses every non-reserved sheet of the document into events, in
// workbook sheet order and then row order. Sheets that fail to parse are
// logged, counted and skipped; only an unreadable document is an error.
func (s *WorkbookStore) Load(ctx context.Context) ([]model.Event, error) {
	start := time.Now()

	f, err := s.open()
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info(ctx, "ledger document not found, starting empty", logger.String("path", s.path))
		metrics.RecordLedgerLoad(time.Since(start), 0, 0)
		return []model.Event{}, nil
	}
	if err != nil {
		metrics.RecordLedgerLoadError()
		if !errors.Is(err, ErrOpenDocument) {
			err = fmt.Errorf("%w: %s: %v", ErrOpenDocument, s.path, err)
		}
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.log.Warn(ctx, "closing ledger document", logger.Error(cerr))
		}
	}()

	events := make([]model.Event, 0)
	loaded := 0
	for _, name := range f.GetSheetList() {
		if s.isReserved(name) {
			continue
		}
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			s.skip(ctx, name, SkipUnreadable, err)
			continue
		}
		parsed, err := sheet.Parse(name, rows, s.layout)
		if err != nil {
			s.skip(ctx, name, skipReason(err), err)
			continue
		}
		events = append(events, parsed.Events()...)
		loaded++
	}

	took := time.Since(start)
	metrics.RecordLedgerLoad(took, loaded, len(events))
	s.log.Debug(ctx, "ledger loaded",
		logger.String("path", s.path),
		logger.Int("sheets", loaded),
		logger.Int("events", len(events)),
		logger.Duration("took", took),
	)
	return events, nil
}

func (s *WorkbookStore) skip(ctx context.Context, name, reason string, err error) {
	metrics.RecordSheetSkipped(reason)
	fields := []logger.Field{logger.String("sheet", name), logger.String("reason", reason), logger.Error(err)}
	if reason == SkipNotDataSheet || reason == SkipEmpty {
		s.log.Debug(ctx, "sheet skipped", fields...)
		return
	}
	s.log.Warn(ctx, "sheet skipped", fields...)
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, sheet.ErrNotDataSheet):
		return SkipNotDataSheet
	case errors.Is(err, sheet.ErrEmptySheet):
		return SkipEmpty
	case errors.Is(err, sheet.ErrMalformedSheet):
		return SkipMalformed
	default:
		return SkipUnreadable
	}
}
