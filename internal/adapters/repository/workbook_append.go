package repository

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/okian/mjledger/internal/domain/model"
	"github.com/okian/mjledger/internal/domain/scoring"
	"github.com/okian/mjledger/internal/domain/sheet"
	"github.com/okian/mjledger/pkg/logger"
	"github.com/xuri/excelize/v2"
)

// defaultSheet is the sheet excelize puts in a new workbook.
const defaultSheet = "Sheet1"

// Append writes one round into the document.
//
// The target is the first of key, key_2 .. key_<limit> whose header holds the
// same players as the entry. A matching sheet gets a new row inserted above
// its chip-balance row; otherwise a new sheet is created under the first free
// candidate name. Nothing is written unless every check passes.
func (s *WorkbookStore) Append(ctx context.Context, entry model.Entry) (model.AppendResult, error) {
	f, fresh, err := s.openOrCreate()
	if err != nil {
		return model.AppendResult{Message: err.Error()}, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.log.Warn(ctx, "closing ledger document", logger.Error(cerr))
		}
	}()

	existing := make(map[string]struct{})
	for _, name := range f.GetSheetList() {
		existing[name] = struct{}{}
	}

	candidates := sheet.Candidates(entry.DateKey, s.suffixLimit)
	target, err := s.findSheet(f, existing, candidates, entry.Players())
	if err != nil {
		return model.AppendResult{Message: err.Error()}, err
	}

	var res model.AppendResult
	if target != "" {
		res, err = s.appendRound(f, target, entry)
	} else {
		name := firstFree(existing, candidates)
		if name == "" {
			err = fmt.Errorf("%w: %s (tried %d names)", ErrNoSheetName, entry.DateKey, len(candidates))
		} else {
			res, err = s.createSheet(f, name, entry, fresh)
		}
	}
	if err != nil {
		return model.AppendResult{Message: err.Error()}, err
	}

	if err := s.save(f); err != nil {
		return model.AppendResult{Message: err.Error()}, err
	}

	res.Success = true
	if res.Created {
		res.Message = fmt.Sprintf("created sheet %s with round %d", res.Sheet, res.Round)
	} else {
		res.Message = fmt.Sprintf("recorded round %d in sheet %s", res.Round, res.Sheet)
	}
	s.log.Info(ctx, "record appended",
		logger.String("sheet", res.Sheet),
		logger.Int("round", res.Round),
		logger.Bool("created", res.Created),
	)
	return res, nil
}

// findSheet returns the first candidate sheet whose header players equal
// players as a multiset, or "".
func (s *WorkbookStore) findSheet(f *excelize.File, existing map[string]struct{}, candidates, players []string) (string, error) {
	want := sortedCopy(players)
	for _, name := range candidates {
		if _, ok := existing[name]; !ok {
			continue
		}
		header := make([]string, 0, model.Seats)
		for _, col := range s.layout.PlayerCols {
			v, err := f.GetCellValue(name, s.layout.Cell(col, s.layout.HeaderRow))
			if err != nil {
				return "", fmt.Errorf("%w: %s: %v", ErrOpenDocument, name, err)
			}
			// names compare trimmed, as the loader reads them
			header = append(header, strings.TrimSpace(v))
		}
		if slices.Equal(sortedCopy(header), want) {
			return name, nil
		}
	}
	return "", nil
}

// appendRound inserts a round above the chip-balance row of an existing sheet
// and adds the round into the chip-balance and total rows.
func (s *WorkbookStore) appendRound(f *excelize.File, name string, entry model.Entry) (model.AppendResult, error) {
	l := s.layout
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return model.AppendResult{}, fmt.Errorf("%w: %s: %v", ErrOpenDocument, name, err)
	}
	m := l.Locate(rows)
	if m.Chip == 0 {
		return model.AppendResult{}, fmt.Errorf("%w: %s: no chip-balance row", ErrMalformedSheet, name)
	}
	if m.Chip-l.FirstRoundRow >= l.MaxRounds {
		return model.AppendResult{}, fmt.Errorf("%w: %s holds %d rounds", ErrSheetFull, name, l.MaxRounds)
	}

	// columns follow the sheet header, which may list the roster in another order
	var header [model.Seats]string
	for i, col := range l.PlayerCols {
		header[i] = strings.TrimSpace(cellValue(rows, col, l.HeaderRow))
	}
	lines, err := alignLines(header, entry.Lines)
	if err != nil {
		return model.AppendResult{}, fmt.Errorf("%w: %s: %v", ErrMalformedSheet, name, err)
	}

	// totals are computed before any mutation
	newRow := m.Chip
	chipRow := m.Chip + 1
	totalRow := chipRow + 1
	if m.Total > m.Chip {
		totalRow = m.Total + 1
	}
	var chips, totals [model.Seats]float64
	for i, col := range l.PlayerCols {
		prevChip, err := numberAt(rows, col, m.Chip)
		if err == nil && prevChip != math.Trunc(prevChip) {
			err = fmt.Errorf("%v is not a whole chip count", prevChip)
		}
		if err != nil {
			return model.AppendResult{}, fmt.Errorf("%w: %s: chip balance: %v", ErrMalformedSheet, name, err)
		}
		prevTotal := 0.0
		if m.Total > m.Chip {
			if prevTotal, err = numberAt(rows, col, m.Total); err != nil {
				return model.AppendResult{}, fmt.Errorf("%w: %s: total: %v", ErrMalformedSheet, name, err)
			}
		}
		chips[i] = prevChip + float64(lines[i].Chip)
		totals[i] = prevTotal + lines[i].Score
	}

	if err := f.InsertRows(name, newRow, 1); err != nil {
		return model.AppendResult{}, fmt.Errorf("%w: %s: insert row: %v", ErrMalformedSheet, name, err)
	}
	round := newRow - l.FirstRoundRow + 1
	if err := s.writeRound(f, name, newRow, round, lines); err != nil {
		return model.AppendResult{}, err
	}
	if m.Total <= m.Chip {
		if err := f.SetCellValue(name, l.Cell(l.LabelCol, totalRow), l.TotalLabel); err != nil {
			return model.AppendResult{}, err
		}
	}
	for i, col := range l.PlayerCols {
		if err := f.SetCellValue(name, l.Cell(col, chipRow), number(chips[i])); err != nil {
			return model.AppendResult{}, err
		}
		if err := f.SetCellValue(name, l.Cell(col, totalRow), number(totals[i])); err != nil {
			return model.AppendResult{}, err
		}
	}
	return model.AppendResult{Sheet: name, Round: round}, nil
}

// createSheet adds a session sheet holding the entry as its first round.
func (s *WorkbookStore) createSheet(f *excelize.File, name string, entry model.Entry, fresh bool) (model.AppendResult, error) {
	l := s.layout
	if _, err := f.NewSheet(name); err != nil {
		return model.AppendResult{}, fmt.Errorf("%w: new sheet %s: %v", ErrSaveDocument, name, err)
	}
	if fresh && name != defaultSheet {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return model.AppendResult{}, fmt.Errorf("%w: %v", ErrSaveDocument, err)
		}
	}
	if idx, err := f.GetSheetIndex(name); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	for i, col := range l.PlayerCols {
		if err := f.SetCellValue(name, l.Cell(col, l.HeaderRow), entry.Lines[i].Player); err != nil {
			return model.AppendResult{}, err
		}
	}
	row := l.FirstRoundRow
	if err := s.writeRound(f, name, row, 1, entry.Lines); err != nil {
		return model.AppendResult{}, err
	}
	chipRow, totalRow := row+1, row+2
	if err := f.SetCellValue(name, l.Cell(l.LabelCol, chipRow), l.ChipLabel); err != nil {
		return model.AppendResult{}, err
	}
	if err := f.SetCellValue(name, l.Cell(l.LabelCol, totalRow), l.TotalLabel); err != nil {
		return model.AppendResult{}, err
	}
	for i, col := range l.PlayerCols {
		if err := f.SetCellValue(name, l.Cell(col, chipRow), entry.Lines[i].Chip); err != nil {
			return model.AppendResult{}, err
		}
		if err := f.SetCellValue(name, l.Cell(col, totalRow), number(entry.Lines[i].Score)); err != nil {
			return model.AppendResult{}, err
		}
	}
	return model.AppendResult{Sheet: name, Round: 1, Created: true}, nil
}

// writeRound fills one round row: index label, scores and ranks.
func (s *WorkbookStore) writeRound(f *excelize.File, name string, row, round int, lines [model.Seats]model.Line) error {
	l := s.layout
	scores := make([]float64, model.Seats)
	for i, line := range lines {
		scores[i] = line.Score
	}
	ranks := scoring.Ranks(scores)

	if err := f.SetCellValue(name, l.Cell(l.LabelCol, row), round); err != nil {
		return err
	}
	for i := range lines {
		if err := f.SetCellValue(name, l.Cell(l.PlayerCols[i], row), number(scores[i])); err != nil {
			return err
		}
		if err := f.SetCellValue(name, l.Cell(l.RankCols[i], row), ranks[i]); err != nil {
			return err
		}
	}
	return nil
}

// alignLines reorders lines to follow header.
func alignLines(header [model.Seats]string, lines [model.Seats]model.Line) ([model.Seats]model.Line, error) {
	var out [model.Seats]model.Line
	used := [model.Seats]bool{}
	for i, name := range header {
		found := false
		for j, line := range lines {
			if !used[j] && line.Player == name {
				out[i] = line
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return out, fmt.Errorf("player %q not in header", name)
		}
	}
	return out, nil
}

// number keeps whole values as integers so cells read back without a
// trailing fraction.
func number(v float64) interface{} {
	if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		return int64(v)
	}
	return v
}

func numberAt(rows [][]string, col, row int) (float64, error) {
	v := strings.TrimSpace(cellValue(rows, col, row))
	if v == "" {
		return 0, nil
	}
	f, ok := sheet.ParseNumber(v)
	if !ok {
		return 0, fmt.Errorf("not a number: %q", v)
	}
	return f, nil
}

func cellValue(rows [][]string, col, row int) string {
	if row < 1 || row > len(rows) || col < 1 || col > len(rows[row-1]) {
		return ""
	}
	return rows[row-1][col-1]
}

func firstFree(existing map[string]struct{}, candidates []string) string {
	for _, name := range candidates {
		if _, ok := existing[name]; !ok {
			return name
		}
	}
	return ""
}

func sortedCopy(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	return out
}
