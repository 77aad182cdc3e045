package api

import (
	"errors"
	"testing"

	"github.com/okian/cragboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOpError(t *testing.T) {
	Convey("Given operation errors", t, func() {
		cause := errors.New("boom")

		Convey("Wrap keeps the cause", func() {
			err := Wrap("api.submit", cause)
			So(err.Error(), ShouldEqual, "api.submit: boom")
			So(errors.Is(err, cause), ShouldBeTrue)
			So(Wrap("api.submit", nil), ShouldBeNil)
		})

		Convey("WrapKind matches both kind and cause", func() {
			err := WrapKind("api.submit", ErrBadRequest, cause)
			So(err.Error(), ShouldEqual, "api.submit: bad request: boom")
			So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
		})

		Convey("NewKind carries only the kind", func() {
			err := NewKind("api.upload_climbers", ErrMissingUpload)
			So(err.Error(), ShouldEqual, "api.upload_climbers: missing upload")
			So(errors.Is(err, ErrMissingUpload), ShouldBeTrue)
			var op *OpError
			So(errors.As(err, &op), ShouldBeTrue)
			So(op.Op, ShouldEqual, "api.upload_climbers")
		})
	})
}

func TestSubmitRequest_Validate(t *testing.T) {
	Convey("Given a submit request", t, func() {
		empty := []model.Attempt{}

		Convey("A complete request passes", func() {
			So(submitRequest{Climber: "Alex", Route: "Route 1", Attempts: &empty}.validate(), ShouldBeNil)
		})

		Convey("Blank names fail", func() {
			So(submitRequest{Climber: " ", Route: "Route 1", Attempts: &empty}.validate(), ShouldNotBeNil)
			So(submitRequest{Climber: "Alex", Route: "", Attempts: &empty}.validate(), ShouldNotBeNil)
		})

		Convey("Absent attempts fail", func() {
			So(submitRequest{Climber: "Alex", Route: "Route 1"}.validate(), ShouldNotBeNil)
		})
	})
}
