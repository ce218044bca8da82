package types_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/mjledger/internal/domain/model"
	types "github.com/okian/mjledger/internal/domain/types"
)

func TestRecordRequest(t *testing.T) {
	Convey("Given a record request body", t, func() {
		body := `{"id":"r-1","date":"2025-08-03","seats":[
			{"name":"A","points":35000,"chip":2},
			{"name":"B","points":30000},
			{"name":"C","points":20000},
			{"name":"D","points":15000,"chip":-2}]}`
		var req types.RecordRequest
		So(json.Unmarshal([]byte(body), &req), ShouldBeNil)
		day := time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC)

		Convey("When converting it to a submission", func() {
			sub, err := req.Submission(day)

			Convey("Then the seats should keep their order and mode should default to points", func() {
				So(err, ShouldBeNil)
				So(sub.ID, ShouldEqual, "r-1")
				So(sub.Mode, ShouldEqual, model.ModePoints)
				So(sub.Date, ShouldEqual, day)
				So(sub.Names(), ShouldResemble, []string{"A", "B", "C", "D"})
				So(sub.Seats[0].Chip, ShouldEqual, 2)
				So(sub.Seats[3].Points, ShouldEqual, 15000)
			})
		})

		Convey("When the mode is given", func() {
			req.Mode = "scores"
			sub, err := req.Submission(day)

			Convey("Then it should be carried over", func() {
				So(err, ShouldBeNil)
				So(sub.Mode, ShouldEqual, model.ModeScores)
			})
		})

		Convey("When a seat is missing", func() {
			req.Seats = req.Seats[:3]
			_, err := req.Submission(day)

			Convey("Then the conversion should fail", func() {
				So(errors.Is(err, types.ErrSeatCount), ShouldBeTrue)
			})
		})
	})
}
