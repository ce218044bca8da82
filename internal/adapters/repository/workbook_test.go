package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"

	"github.com/okian/mjledger/internal/adapters/repository"
	"github.com/okian/mjledger/internal/domain/model"
	"github.com/okian/mjledger/internal/domain/sheet"
)

type fixtureSheet struct {
	name string
	rows [][]interface{}
}

// buildWorkbook writes an xlsx document holding the given sheets, in order.
func buildWorkbook(t *testing.T, path string, sheets ...fixtureSheet) {
	t.Helper()
	f := excelize.NewFile()
	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		for r, row := range sh.rows {
			axis, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			cells := append([]interface{}(nil), row...)
			if err := f.SetSheetRow(sh.name, axis, &cells); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save fixture: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close fixture: %v", err)
	}
}

func sessionSheet() fixtureSheet {
	return fixtureSheet{name: "250803", rows: [][]interface{}{
		{nil, "A", "B", "C", "D"},
		{1, 55, 10, -20, -45, nil, nil, 1, 2, 3, 4},
		{2, -5, 60, -5, -50, nil, nil, 2, 1, 2, 4},
		{"チップ収支", 3, 0, -1, -2},
		{"合計", 50, 70, -25, -95},
	}}
}

func entry(key string, lines ...model.Line) model.Entry {
	e := model.Entry{DateKey: key}
	copy(e.Lines[:], lines)
	return e
}

func roster(a, b, c, d string) model.Entry {
	return entry("250803",
		model.Line{Player: a, Score: 55, Chip: 3},
		model.Line{Player: b, Score: 10},
		model.Line{Player: c, Score: -20, Chip: -1},
		model.Line{Player: d, Score: -45, Chip: -2},
	)
}

func cell(t *testing.T, path, sheetName, axis string) string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	v, err := f.GetCellValue(sheetName, axis)
	if err != nil {
		t.Fatalf("get %s!%s: %v", sheetName, axis, err)
	}
	return v
}

func TestWorkbookStoreLoad(t *testing.T) {
	ctx := context.Background()

	Convey("Given a workbook store", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "ledger.xlsx")
		store := repository.NewWorkbookStore(path)

		Convey("When the document does not exist", func() {
			events, err := store.Load(ctx)

			Convey("Then the ledger should be empty", func() {
				So(err, ShouldBeNil)
				So(events, ShouldNotBeNil)
				So(events, ShouldBeEmpty)
			})
		})

		Convey("When the document is not a workbook", func() {
			So(os.WriteFile(path, []byte("not a zip"), 0o600), ShouldBeNil)
			_, err := store.Load(ctx)

			Convey("Then the load should fail", func() {
				So(errors.Is(err, repository.ErrOpenDocument), ShouldBeTrue)
			})
		})

		Convey("When the document mixes session and other sheets", func() {
			buildWorkbook(t, path,
				fixtureSheet{name: "result", rows: [][]interface{}{{nil, "A", "B", "C", "D"}, {1, 1, 2, 3, 4}}},
				sessionSheet(),
				fixtureSheet{name: "memo", rows: [][]interface{}{{"notes"}}},
				fixtureSheet{name: "250804", rows: [][]interface{}{{nil, nil, "B"}, {1, 1, 2, 3, 4}}},
				fixtureSheet{name: "250805", rows: [][]interface{}{
					{nil, "A", "B", "C", "D"},
					{1, 10, 0, 0, -10},
					{"chip", "x", 0, 0, 0},
				}},
				fixtureSheet{name: "20250810_2", rows: [][]interface{}{
					{nil, "E", "F", "G", "H"},
					{1, 40, 10, -20, -30},
					{"チップ収支", 0, 0, 0, 0},
				}},
			)
			events, err := store.Load(ctx)

			Convey("Then only parsable session sheets should contribute", func() {
				So(err, ShouldBeNil)
				// 8 round events + 3 chip events from 250803, 4 from 20250810_2
				So(events, ShouldHaveLength, 15)
				So(events[0].Sheet, ShouldEqual, "250803")
				So(events[0].Date, ShouldEqual, time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC))
				So(events[14].Sheet, ShouldEqual, "20250810_2")
				So(events[14].Category, ShouldEqual, model.WithoutChips)
				for _, e := range events[:11] {
					So(e.Category, ShouldEqual, model.WithChips)
				}
			})

			Convey("Then loading twice should give identical events", func() {
				again, err := store.Load(ctx)
				So(err, ShouldBeNil)
				So(cmp.Diff(events, again), ShouldBeEmpty)
			})
		})

		Convey("When a custom reserved set is configured", func() {
			buildWorkbook(t, path, sessionSheet())
			store := repository.NewWorkbookStore(path, repository.WithReservedSheets("250803"))
			events, err := store.Load(ctx)

			Convey("Then those sheets should be ignored", func() {
				So(err, ShouldBeNil)
				So(events, ShouldBeEmpty)
			})
		})
	})
}

func TestWorkbookStoreAppend(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store over a missing document", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "sub", "ledger.xlsx")
		store := repository.NewWorkbookStore(path)

		Convey("When the first record is appended", func() {
			res, err := store.Append(ctx, roster("A", "B", "C", "D"))

			Convey("Then a document with one session sheet should be created", func() {
				So(err, ShouldBeNil)
				So(res.Success, ShouldBeTrue)
				So(res.Created, ShouldBeTrue)
				So(res.Sheet, ShouldEqual, "250803")
				So(res.Round, ShouldEqual, 1)

				f, err := excelize.OpenFile(path)
				So(err, ShouldBeNil)
				So(f.GetSheetList(), ShouldResemble, []string{"250803"})
				So(f.Close(), ShouldBeNil)

				So(cell(t, path, "250803", "A3"), ShouldEqual, sheet.DefaultChipLabel)
				So(cell(t, path, "250803", "A4"), ShouldEqual, sheet.DefaultTotalLabel)
				So(cell(t, path, "250803", "I2"), ShouldEqual, "1")
				So(cell(t, path, "250803", "L2"), ShouldEqual, "4")
			})

			Convey("Then a reload should surface the round and chips", func() {
				events, err := store.Load(ctx)
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 7)
				So(events[0], ShouldResemble, model.Event{
					Date: time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC), Sheet: "250803",
					Round: 1, Player: "A", Score: 55, Rank: 1, Category: model.WithChips,
				})
				So(events[4].Player, ShouldEqual, "A")
				So(events[4].Chip, ShouldEqual, 3)
				So(events[4].IsChipOnly(), ShouldBeTrue)
			})

			Convey("And a second round arrives with the roster reordered", func() {
				second := entry("250803",
					model.Line{Player: "C", Score: -5, Chip: 1},
					model.Line{Player: "A", Score: 60},
					model.Line{Player: "D", Score: -50},
					model.Line{Player: "B", Score: -5, Chip: -1},
				)
				res, err := store.Append(ctx, second)

				Convey("Then it should land in the same sheet under the header order", func() {
					So(err, ShouldBeNil)
					So(res.Created, ShouldBeFalse)
					So(res.Sheet, ShouldEqual, "250803")
					So(res.Round, ShouldEqual, 2)

					So(cell(t, path, "250803", "A3"), ShouldEqual, "2")
					So(cell(t, path, "250803", "B3"), ShouldEqual, "60")
					So(cell(t, path, "250803", "C3"), ShouldEqual, "-5")
					So(cell(t, path, "250803", "J3"), ShouldEqual, "2")
					So(cell(t, path, "250803", "K3"), ShouldEqual, "2")
					// chip row now 4, total row 5
					So(cell(t, path, "250803", "B4"), ShouldEqual, "3")
					So(cell(t, path, "250803", "C4"), ShouldEqual, "-1")
					So(cell(t, path, "250803", "D4"), ShouldEqual, "0")
					So(cell(t, path, "250803", "B5"), ShouldEqual, "115")
					So(cell(t, path, "250803", "E5"), ShouldEqual, "-95")
				})

				Convey("Then the reload should rank the round with ties", func() {
					events, err := store.Load(ctx)
					So(err, ShouldBeNil)
					So(events, ShouldHaveLength, 11)
					var ranks []int
					for _, e := range events[4:8] {
						ranks = append(ranks, e.Rank)
					}
					So(ranks, ShouldResemble, []int{1, 2, 2, 4})
				})
			})

			Convey("And a different roster plays the same day", func() {
				res, err := store.Append(ctx, roster("A", "B", "C", "E"))

				Convey("Then a suffixed sheet should be created", func() {
					So(err, ShouldBeNil)
					So(res.Created, ShouldBeTrue)
					So(res.Sheet, ShouldEqual, "250803_2")
				})
			})
		})

		Convey("When fractional scores are appended", func() {
			_, err := store.Append(ctx, entry("250901",
				model.Line{Player: "A", Score: 35.5},
				model.Line{Player: "B", Score: 35.5},
				model.Line{Player: "C", Score: -21},
				model.Line{Player: "D", Score: -50},
			))

			Convey("Then they should read back exactly", func() {
				So(err, ShouldBeNil)
				events, err := store.Load(ctx)
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 4)
				So(events[0].Score, ShouldEqual, 35.5)
				So(events[1].Rank, ShouldEqual, 1)
				So(events[0].Category, ShouldEqual, model.WithoutChips)
			})
		})
	})
}

func TestWorkbookStoreAppendRejections(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with a full sheet", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "ledger.xlsx")
		store := repository.NewWorkbookStore(path)
		for i := 0; i < sheet.DefaultMaxRounds; i++ {
			res, err := store.Append(ctx, roster("A", "B", "C", "D"))
			So(err, ShouldBeNil)
			So(res.Round, ShouldEqual, i+1)
		}
		before, err := os.ReadFile(path)
		So(err, ShouldBeNil)

		Convey("When one more round is appended", func() {
			res, err := store.Append(ctx, roster("D", "C", "B", "A"))

			Convey("Then it should be rejected without touching the file", func() {
				So(errors.Is(err, repository.ErrSheetFull), ShouldBeTrue)
				So(res.Success, ShouldBeFalse)
				So(res.Message, ShouldNotBeEmpty)
				after, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(after, ShouldResemble, before)
			})
		})
	})

	Convey("Given a store whose suffix search is exhausted", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "ledger.xlsx")
		store := repository.NewWorkbookStore(path, repository.WithSuffixLimit(2))
		_, err := store.Append(ctx, roster("A", "B", "C", "D"))
		So(err, ShouldBeNil)
		_, err = store.Append(ctx, roster("A", "B", "C", "E"))
		So(err, ShouldBeNil)

		Convey("When a third roster plays that day", func() {
			_, err := store.Append(ctx, roster("A", "B", "C", "F"))

			Convey("Then no sheet name should be available", func() {
				So(errors.Is(err, repository.ErrNoSheetName), ShouldBeTrue)
			})
		})
	})

	Convey("Given a matching sheet without a chip-balance row", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "ledger.xlsx")
		buildWorkbook(t, path, fixtureSheet{name: "250803", rows: [][]interface{}{
			{nil, "A", "B", "C", "D"},
			{1, 55, 10, -20, -45},
		}})
		store := repository.NewWorkbookStore(path)

		Convey("When a record is appended", func() {
			_, err := store.Append(ctx, roster("A", "B", "C", "D"))

			Convey("Then the sheet should be reported as malformed", func() {
				So(errors.Is(err, repository.ErrMalformedSheet), ShouldBeTrue)
			})
		})
	})

	Convey("Given a hand-edited sheet whose header names carry stray spaces", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "ledger.xlsx")
		buildWorkbook(t, path, fixtureSheet{name: "250803", rows: [][]interface{}{
			{nil, "A ", " B", "C", "D"},
			{1, 55, 10, -20, -45, nil, nil, 1, 2, 3, 4},
			{"チップ収支", 0, 0, 0, 0},
			{"合計", 55, 10, -20, -45},
		}})
		store := repository.NewWorkbookStore(path)

		Convey("When the same roster records a round", func() {
			res, err := store.Append(ctx, roster("A", "B", "C", "D"))

			Convey("Then it should join that sheet instead of opening a suffixed one", func() {
				So(err, ShouldBeNil)
				So(res.Created, ShouldBeFalse)
				So(res.Sheet, ShouldEqual, "250803")
				So(res.Round, ShouldEqual, 2)
				So(cell(t, path, "250803", "B3"), ShouldEqual, "55")
				So(cell(t, path, "250803", "C3"), ShouldEqual, "10")
			})

			Convey("Then the players should load as one identity each", func() {
				events, err := store.Load(ctx)
				So(err, ShouldBeNil)
				names := map[string]int{}
				for _, e := range events {
					if e.Round > 0 {
						names[e.Player]++
					}
				}
				So(names, ShouldResemble, map[string]int{"A": 2, "B": 2, "C": 2, "D": 2})
			})
		})
	})

	Convey("Given a matching sheet whose chip balance is fractional", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "ledger.xlsx")
		buildWorkbook(t, path, fixtureSheet{name: "250803", rows: [][]interface{}{
			{nil, "A", "B", "C", "D"},
			{1, 55, 10, -20, -45, nil, nil, 1, 2, 3, 4},
			{"チップ収支", 2.5, -2.5, 0, 0},
			{"合計", 55, 10, -20, -45},
		}})
		store := repository.NewWorkbookStore(path)

		Convey("When a record is appended", func() {
			_, err := store.Append(ctx, roster("A", "B", "C", "D"))

			Convey("Then the sheet should be reported as malformed", func() {
				So(errors.Is(err, repository.ErrMalformedSheet), ShouldBeTrue)
			})
		})
	})

	Convey("Given a smaller round capacity", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "ledger.xlsx")
		store := repository.NewWorkbookStore(path,
			repository.WithLayout(sheet.NewLayout(sheet.WithMaxRounds(2))))
		_, err := store.Append(ctx, roster("A", "B", "C", "D"))
		So(err, ShouldBeNil)
		_, err = store.Append(ctx, roster("A", "B", "C", "D"))
		So(err, ShouldBeNil)

		Convey("When a third round is appended", func() {
			_, err := store.Append(ctx, roster("A", "B", "C", "D"))

			Convey("Then the sheet should be full", func() {
				So(errors.Is(err, repository.ErrSheetFull), ShouldBeTrue)
			})
		})
	})
}
