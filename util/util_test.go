package util

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestClamp(t *testing.T) {
	Convey("Clamp", t, func() {
		So(Clamp(5, 0, 10), ShouldEqual, 5)
		So(Clamp(-3, 0, 10), ShouldEqual, 0)
		So(Clamp(42, 0, 10), ShouldEqual, 10)
		So(Clamp(2.5, 0.0, 1.0), ShouldEqual, 1.0)
	})
}

func TestFormatTime(t *testing.T) {
	Convey("FormatTime", t, func() {
		Convey("Should use M:SS under an hour", func() {
			So(FormatTime(0), ShouldEqual, "0:00")
			So(FormatTime(65), ShouldEqual, "1:05")
			So(FormatTime(599), ShouldEqual, "9:59")
		})

		Convey("Should use H:MM:SS past an hour", func() {
			So(FormatTime(3600), ShouldEqual, "1:00:00")
			So(FormatTime(3725), ShouldEqual, "1:02:05")
		})

		Convey("Should floor negatives to zero", func() {
			So(FormatTime(-10), ShouldEqual, "0:00")
		})
	})
}

func TestQuantify(t *testing.T) {
	Convey("Quantify", t, func() {
		So(Quantify(1, "track", "tracks"), ShouldEqual, "1 track")
		So(Quantify(2, "track", "tracks"), ShouldEqual, "2 tracks")
	})
}

func TestCapitalize(t *testing.T) {
	Convey("Capitalize", t, func() {
		So(Capitalize("hello"), ShouldEqual, "Hello")
		So(Capitalize(""), ShouldEqual, "")
	})
}
