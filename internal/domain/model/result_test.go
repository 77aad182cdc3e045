package model_test

import (
	"encoding/json"
	"testing"
	"time"

	model "github.com/okian/cragboard/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestAttemptUnmarshal(t *testing.T) {
	convey.Convey("Given attempt JSON from different front ends", t, func() {
		convey.Convey("When the milestone is sent as bonus", func() {
			var a model.Attempt
			err := json.Unmarshal([]byte(`{"number":2,"bonus":true,"top":false}`), &a)

			convey.Convey("Then it maps to Milestone", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(a, convey.ShouldResemble, model.Attempt{Number: 2, Milestone: true})
			})
		})

		convey.Convey("When the milestone is sent as zone or milestone", func() {
			var z, m model.Attempt
			convey.So(json.Unmarshal([]byte(`{"number":1,"zone":true,"top":true}`), &z), convey.ShouldBeNil)
			convey.So(json.Unmarshal([]byte(`{"number":1,"milestone":true}`), &m), convey.ShouldBeNil)

			convey.So(z.Milestone, convey.ShouldBeTrue)
			convey.So(z.Top, convey.ShouldBeTrue)
			convey.So(m.Milestone, convey.ShouldBeTrue)
		})

		convey.Convey("When the number is missing", func() {
			var a model.Attempt
			convey.So(json.Unmarshal([]byte(`{"top":true}`), &a), convey.ShouldBeNil)
			convey.So(a.Number, convey.ShouldEqual, 0)
		})

		convey.Convey("When the number is fractional", func() {
			var a model.Attempt
			err := json.Unmarshal([]byte(`{"number":1.5}`), &a)

			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the payload is not an object", func() {
			var a model.Attempt
			convey.So(json.Unmarshal([]byte(`"top"`), &a), convey.ShouldNotBeNil)
		})
	})
}

func TestAttemptIndex(t *testing.T) {
	convey.Convey("Given attempt indices", t, func() {
		convey.Convey("Unset renders empty in text and JSON", func() {
			convey.So(model.NoAttempt.IsSet(), convey.ShouldBeFalse)
			convey.So(model.NoAttempt.String(), convey.ShouldEqual, "")
			b, err := json.Marshal(model.NoAttempt)
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(b), convey.ShouldEqual, `""`)
		})

		convey.Convey("Set renders the number", func() {
			i := model.AttemptIndex(3)
			convey.So(i.String(), convey.ShouldEqual, "3")
			b, err := json.Marshal(i)
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(b), convey.ShouldEqual, `3`)
		})

		convey.Convey("Parsing reverses String", func() {
			for _, s := range []string{"", "1", "12"} {
				i, err := model.ParseAttemptIndex(s)
				convey.So(err, convey.ShouldBeNil)
				convey.So(i.String(), convey.ShouldEqual, s)
			}
			_, err := model.ParseAttemptIndex("x")
			convey.So(err, convey.ShouldNotBeNil)
			_, err = model.ParseAttemptIndex("-1")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestNewResult(t *testing.T) {
	convey.Convey("Given a timestamp in a non-UTC zone", t, func() {
		loc := time.FixedZone("CET", 3600)
		at := time.Date(2024, 5, 4, 13, 2, 3, 45_000_000, loc)

		r := model.NewResult(at, "Alex", "Route 1", model.ResultFields{TotalAttempts: 2})

		convey.Convey("Then the timestamp is an ISO-8601 UTC string with milliseconds", func() {
			convey.So(r.Timestamp, convey.ShouldEqual, "2024-05-04T12:02:03.045Z")
			convey.So(r.Key(), convey.ShouldResemble, model.Key{Climber: "Alex", Route: "Route 1"})
			convey.So(r.TotalAttempts, convey.ShouldEqual, 2)
		})
	})

	convey.Convey("Keys of different pairs never collide", t, func() {
		a := model.Key{Climber: "A B", Route: "C"}
		b := model.Key{Climber: "A", Route: "B C"}
		convey.So(a.String(), convey.ShouldNotEqual, b.String())
	})
}

func TestTerminology(t *testing.T) {
	convey.Convey("Given the two common labels", t, func() {
		bonus := model.NewTerminology("bonus")
		zone := model.NewTerminology(" ZONE ")

		convey.Convey("Then names derive from the label", func() {
			convey.So(bonus.Label(), convey.ShouldEqual, "Bonus")
			convey.So(bonus.Key(), convey.ShouldEqual, "bonus")
			convey.So(bonus.AchievedColumn(), convey.ShouldEqual, "BonusAchieved")
			convey.So(bonus.FirstAttemptColumn(), convey.ShouldEqual, "FirstBonusAttempt")
			convey.So(bonus.AchievedKey(), convey.ShouldEqual, "bonusAchieved")
			convey.So(bonus.FirstAttemptKey(), convey.ShouldEqual, "firstBonusAttempt")

			convey.So(zone.Label(), convey.ShouldEqual, "Zone")
			convey.So(zone.Columns(), convey.ShouldResemble, []string{
				"Timestamp", "Climber", "Route", "TotalAttempts",
				"ZoneAchieved", "TopAchieved", "FirstZoneAttempt", "FirstTopAttempt",
			})
		})

		convey.Convey("And an empty label falls back to Bonus", func() {
			convey.So(model.NewTerminology("").Label(), convey.ShouldEqual, "Bonus")
		})
	})
}
