package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/mjledger/internal/adapters/http/api"
	repository "github.com/okian/mjledger/internal/adapters/repository"
	service "github.com/okian/mjledger/internal/app"
	"github.com/okian/mjledger/internal/domain/ledger"
	"github.com/okian/mjledger/internal/domain/model"
	"github.com/okian/mjledger/internal/domain/stats"
	"github.com/okian/mjledger/internal/domain/types"
	"github.com/okian/mjledger/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var day = time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC)

// Mock implementations for testing
type mockDeps struct {
	rows      []stats.Row
	standings []stats.Standing
	players   []string

	lastQuery service.Query
	lastLimit int
	lastSub   model.Submission

	addRes    model.AppendResult
	addReplay bool
	addErr    error
	reloadErr error
}

func (m *mockDeps) Filter(from, to, chips string) (stats.Filter, error) {
	cf, ok := model.ParseChipFilter(chips)
	if !ok {
		return stats.Filter{}, fmt.Errorf("%w: chips %q", service.ErrInvalidQuery, chips)
	}
	if from == "bad" {
		return stats.Filter{}, fmt.Errorf("%w: from", service.ErrInvalidQuery)
	}
	return stats.Filter{Chips: cf}, nil
}

func (m *mockDeps) Stats(_ context.Context, q service.Query) ([]stats.Row, error) {
	m.lastQuery = q
	return m.rows, nil
}

func (m *mockDeps) Leaderboard(_ context.Context, _ stats.Filter, limit int) ([]stats.Standing, error) {
	m.lastLimit = limit
	return m.standings, nil
}

func (m *mockDeps) Players(context.Context) ([]string, error) {
	return m.players, nil
}

func (m *mockDeps) Player(_ context.Context, name string, _ stats.Filter) (stats.Row, error) {
	for _, p := range m.players {
		if p == name {
			return stats.Row{Player: name, Total: 12}, nil
		}
	}
	return stats.Row{}, fmt.Errorf("%w: %q", service.ErrPlayerNotFound, name)
}

func (m *mockDeps) Chart(ctx context.Context, name string, f stats.Filter) ([]byte, error) {
	if _, err := m.Player(ctx, name, f); err != nil {
		return nil, err
	}
	return []byte("\x89PNG\r\n\x1a\n"), nil
}

func (m *mockDeps) ParseDate(v string) (time.Time, error) {
	if v == "bad" {
		return time.Time{}, fmt.Errorf("%w: date %q", service.ErrInvalidSubmission, v)
	}
	return day, nil
}

func (m *mockDeps) AddRecord(_ context.Context, sub model.Submission) (model.AppendResult, bool, error) {
	m.lastSub = sub
	return m.addRes, m.addReplay, m.addErr
}

func (m *mockDeps) Reload(context.Context) (ledger.Snapshot, error) {
	if m.reloadErr != nil {
		return ledger.Snapshot{}, m.reloadErr
	}
	return ledger.Snapshot{Events: make([]model.Event, 3), LoadedAt: day}, nil
}

type mockStatusProvider struct{}

func (mockStatusProvider) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "events": 3}
}

func newMux(deps *mockDeps, opts ...api.ServerOption) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, mockStatusProvider{}, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) types.ErrorResponse {
	var e types.ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	return e
}

const validRecord = `{"id":"r-1","date":"2025-08-03","seats":[
	{"name":"A","points":35000,"chip":1},{"name":"B","points":30000},
	{"name":"C","points":20000},{"name":"D","points":15000,"chip":-1}]}`

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := &mockDeps{players: []string{"A", "B"}}
		mux := newMux(deps)

		Convey("Then the status endpoint should report the service state", func() {
			w := do(mux, http.MethodGet, "/status", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("And the health endpoint should serve metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("And the players endpoint should list players", func() {
			w := do(mux, http.MethodGet, "/players", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var resp types.PlayersResponse
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Players, ShouldResemble, []string{"A", "B"})
		})

		Convey("And routes should be bound to their methods", func() {
			So(do(mux, http.MethodPost, "/stats", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(do(mux, http.MethodGet, "/records", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestStatsHandler(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		deps := &mockDeps{rows: []stats.Row{{Player: "A", Total: 10}}}
		mux := newMux(deps)

		Convey("When no sort is given", func() {
			w := do(mux, http.MethodGet, "/stats", "")

			Convey("Then rows should be ordered by total, highest first", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastQuery.Sort, ShouldEqual, stats.ColumnTotal)
				So(deps.lastQuery.Desc, ShouldBeTrue)
				var rows []stats.Row
				So(json.Unmarshal(w.Body.Bytes(), &rows), ShouldBeNil)
				So(rows, ShouldResemble, deps.rows)
			})
		})

		Convey("When sorting by name with chips", func() {
			w := do(mux, http.MethodGet, "/stats?sort=name&chips=with", "")

			Convey("Then names should ascend and the chip filter apply", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastQuery.Sort, ShouldEqual, stats.ColumnName)
				So(deps.lastQuery.Desc, ShouldBeFalse)
				So(deps.lastQuery.Filter.Chips, ShouldEqual, model.ChipsWith)
			})
		})

		Convey("When an explicit order is given", func() {
			w := do(mux, http.MethodGet, "/stats?sort=games&order=asc", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastQuery.Sort, ShouldEqual, stats.ColumnGames)
			So(deps.lastQuery.Desc, ShouldBeFalse)
		})

		Convey("When parameters are invalid", func() {
			for _, target := range []string{"/stats?sort=luck", "/stats?order=up", "/stats?chips=some", "/stats?from=bad"} {
				w := do(mux, http.MethodGet, target, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "bad_request")
			}
		})
	})
}

func TestLeaderboardHandler(t *testing.T) {
	Convey("Given a leaderboard handler capped at 50", t, func() {
		deps := &mockDeps{standings: []stats.Standing{{Position: 1, Row: stats.Row{Player: "A"}}}}
		mux := newMux(deps, api.WithMaxLeaderboardLimit(50))

		Convey("When no limit is given", func() {
			w := do(mux, http.MethodGet, "/leaderboard", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastLimit, ShouldEqual, 50)
		})

		Convey("When a limit is given", func() {
			w := do(mux, http.MethodGet, "/leaderboard?limit=3", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastLimit, ShouldEqual, 3)
			So(w.Body.String(), ShouldContainSubstring, `"position":1`)
		})

		Convey("When the limit is invalid", func() {
			So(do(mux, http.MethodGet, "/leaderboard?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/leaderboard?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			w := do(mux, http.MethodGet, "/leaderboard?limit=51", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Code, ShouldEqual, "limit_exceeded")
		})
	})
}

func TestPlayersHandler(t *testing.T) {
	Convey("Given a players handler", t, func() {
		deps := &mockDeps{players: []string{"A", "太郎"}}
		mux := newMux(deps)

		Convey("When a known player is requested", func() {
			w := do(mux, http.MethodGet, "/players/A", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"player":"A"`)
		})

		Convey("When the name is percent-encoded", func() {
			w := do(mux, http.MethodGet, "/players/%E5%A4%AA%E9%83%8E", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "太郎")
		})

		Convey("When an unknown player is requested", func() {
			w := do(mux, http.MethodGet, "/players/Z", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w).Code, ShouldEqual, "not_found")
			So(do(mux, http.MethodGet, "/players/Z/chart.png", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When a chart is requested", func() {
			w := do(mux, http.MethodGet, "/players/A/chart.png", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "image/png")
			So(w.Body.Len(), ShouldBeGreaterThan, 0)
		})
	})
}

func TestRecordsHandler(t *testing.T) {
	Convey("Given a records handler", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		Convey("When a valid round is posted", func() {
			deps.addRes = model.AppendResult{ID: "r-1", Success: true, Sheet: "250803", Round: 1, Created: true}
			w := do(mux, http.MethodPost, "/records", validRecord)

			Convey("Then it should be created", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				var res model.AppendResult
				So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
				So(res, ShouldResemble, deps.addRes)
			})

			Convey("And the submission should carry the request", func() {
				So(deps.lastSub.ID, ShouldEqual, "r-1")
				So(deps.lastSub.Mode, ShouldEqual, model.ModePoints)
				So(deps.lastSub.Date, ShouldEqual, day)
				So(deps.lastSub.Seats[0], ShouldResemble, model.Seat{Name: "A", Points: 35000, Chip: 1})
			})
		})

		Convey("When the round was already accepted", func() {
			deps.addRes = model.AppendResult{ID: "r-1", Success: true, Sheet: "250803", Round: 1}
			deps.addReplay = true
			w := do(mux, http.MethodPost, "/records", validRecord)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When the body is malformed", func() {
			So(do(mux, http.MethodPost, "/records", "{").Code, ShouldEqual, http.StatusBadRequest)
			w := do(mux, http.MethodPost, "/records", `{"seats":[{"name":"A","points":1}]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Code, ShouldEqual, "bad_request")
		})

		Convey("When the date cannot be read", func() {
			w := do(mux, http.MethodPost, "/records", strings.Replace(validRecord, "2025-08-03", "bad", 1))
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			var res model.AppendResult
			So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
			So(res.Success, ShouldBeFalse)
			So(res.Message, ShouldContainSubstring, "bad")
		})

		Convey("When the service rejects the round", func() {
			deps.addErr = fmt.Errorf("%w: duplicate player", service.ErrInvalidSubmission)
			deps.addRes = model.AppendResult{ID: "r-1", Message: deps.addErr.Error()}
			w := do(mux, http.MethodPost, "/records", validRecord)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(w.Body.String(), ShouldContainSubstring, "duplicate player")
		})

		Convey("When the sheet is full", func() {
			deps.addErr = fmt.Errorf("%w: 250803", repository.ErrSheetFull)
			deps.addRes = model.AppendResult{ID: "r-1", Message: deps.addErr.Error()}
			w := do(mux, http.MethodPost, "/records", validRecord)
			So(w.Code, ShouldEqual, http.StatusConflict)
		})

		Convey("When writing fails", func() {
			deps.addErr = repository.ErrSaveDocument
			w := do(mux, http.MethodPost, "/records", validRecord)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})

	Convey("Given a records handler with a tight rate limit", t, func() {
		deps := &mockDeps{addRes: model.AppendResult{Success: true, Created: true}}
		mux := newMux(deps, api.WithRecordRateLimit(0.001, 1))

		Convey("When the same client posts twice", func() {
			first := do(mux, http.MethodPost, "/records", validRecord)
			second := do(mux, http.MethodPost, "/records", validRecord)

			Convey("Then the second request should be refused", func() {
				So(first.Code, ShouldEqual, http.StatusCreated)
				So(second.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decodeError(second).Code, ShouldEqual, "rate_limited")
			})
		})
	})
}

func TestReloadHandler(t *testing.T) {
	Convey("Given a reload handler", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		Convey("When the reload succeeds", func() {
			w := do(mux, http.MethodPost, "/reload", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var resp types.ReloadResponse
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Events, ShouldEqual, 3)
		})

		Convey("When the document cannot be read", func() {
			deps.reloadErr = repository.ErrOpenDocument
			So(do(mux, http.MethodPost, "/reload", "").Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestRequestID(t *testing.T) {
	Convey("Given the request id middleware", t, func() {
		h := api.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(r.Header.Get(api.RequestIDHeader)))
		}))

		Convey("When the caller sends an id", func() {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "abc")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc")
		})

		Convey("When the caller sends none", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
			So(w.Body.String(), ShouldEqual, w.Header().Get(api.RequestIDHeader))
		})
	})
}

func TestIPRateLimiter(t *testing.T) {
	Convey("Given an IP rate limiter", t, func() {
		l := api.NewIPRateLimiter(1, 1)

		Convey("Then each IP should get its own bucket", func() {
			So(l.GetLimiter("10.0.0.1").Allow(), ShouldBeTrue)
			So(l.GetLimiter("10.0.0.1").Allow(), ShouldBeFalse)
			So(l.GetLimiter("10.0.0.2").Allow(), ShouldBeTrue)
			So(l.Len(), ShouldEqual, 2)
		})
	})
}

func TestServerWithLedger(t *testing.T) {
	Convey("Given the API over a real ledger", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithLedgerPath(filepath.Join(t.TempDir(), "ledger.xlsx")),
			service.WithClock(func() time.Time { return day.Add(12 * time.Hour) }),
			service.WithLocation(time.UTC),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)

		Convey("When a round is posted and the stats are read back", func() {
			w := do(mux, http.MethodPost, "/records", validRecord)
			So(w.Code, ShouldEqual, http.StatusCreated)
			replay := do(mux, http.MethodPost, "/records", validRecord)
			So(replay.Code, ShouldEqual, http.StatusOK)

			sw := do(mux, http.MethodGet, "/stats?from=2025-08-01&to=today", "")
			So(sw.Code, ShouldEqual, http.StatusOK)
			var rows []stats.Row
			So(json.Unmarshal(sw.Body.Bytes(), &rows), ShouldBeNil)

			Convey("Then the derived scores should show once", func() {
				So(len(rows), ShouldEqual, 4)
				So(rows[0], ShouldResemble, stats.Row{Player: "A", Total: 56, Chip: 1, AvgRank: 1, Games: 1})
				So(rows[3], ShouldResemble, stats.Row{Player: "D", Total: -46, Chip: -1, AvgRank: 4, Games: 1})
			})
		})

		Convey("When a round with a wrong total is posted", func() {
			w := do(mux, http.MethodPost, "/records", strings.Replace(validRecord, "15000", "14000", 1))

			Convey("Then it should be rejected as invalid", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(w.Body.String(), ShouldContainSubstring, `"success":false`)
			})
		})
	})
}
