package progress

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/nuvio-play/nuvioplay/filesystem"
)

func TestSaveAndLookup(t *testing.T) {
	filesystem.SetMemMapFs()

	Convey("Save and Lookup", t, func() {
		Convey("Should round-trip a record", func() {
			err := Save(&Record{ContentID: "tt100", EpisodeID: "s1e1", CurrentTime: 40, Duration: 118, Confirmed: true})
			So(err, ShouldBeNil)

			record, err := Lookup("tt100", "s1e1")
			So(err, ShouldBeNil)
			So(record, ShouldNotBeNil)
			So(record.CurrentTime, ShouldEqual, 40)
		})

		Convey("Should keep the maximum position within a duration epoch", func() {
			So(Save(&Record{ContentID: "tt101", EpisodeID: "e1", CurrentTime: 90, Duration: 120, Confirmed: true}), ShouldBeNil)
			So(Save(&Record{ContentID: "tt101", EpisodeID: "e1", CurrentTime: 60, Duration: 120, Confirmed: true}), ShouldBeNil)

			record, err := Lookup("tt101", "e1")
			So(err, ShouldBeNil)
			So(record.CurrentTime, ShouldEqual, 90)
		})

		Convey("A confirmed duration supersedes an estimate and its position", func() {
			So(Save(&Record{ContentID: "tt102", EpisodeID: "e1", CurrentTime: 500, Duration: 5400}), ShouldBeNil)
			So(Save(&Record{ContentID: "tt102", EpisodeID: "e1", CurrentTime: 30, Duration: 5112, Confirmed: true}), ShouldBeNil)

			record, err := Lookup("tt102", "e1")
			So(err, ShouldBeNil)
			So(record.Duration, ShouldEqual, 5112)
			So(record.Confirmed, ShouldBeTrue)
			So(record.CurrentTime, ShouldEqual, 30)
		})

		Convey("An estimate never overwrites a confirmed duration", func() {
			So(Save(&Record{ContentID: "tt103", EpisodeID: "e1", CurrentTime: 30, Duration: 5112, Confirmed: true}), ShouldBeNil)
			So(Save(&Record{ContentID: "tt103", EpisodeID: "e1", CurrentTime: 45, Duration: 5400}), ShouldBeNil)

			record, err := Lookup("tt103", "e1")
			So(err, ShouldBeNil)
			So(record.Duration, ShouldEqual, 5112)
			So(record.Confirmed, ShouldBeTrue)
		})

		Convey("Should delete records", func() {
			So(Save(&Record{ContentID: "tt104", EpisodeID: "e1", CurrentTime: 10, Duration: 100}), ShouldBeNil)
			So(Remove("tt104", "e1"), ShouldBeNil)

			record, err := Lookup("tt104", "e1")
			So(err, ShouldBeNil)
			So(record, ShouldBeNil)
		})
	})
}

func TestResumeTarget(t *testing.T) {
	filesystem.SetMemMapFs()

	Convey("ResumeTarget", t, func() {
		Convey("Should offer resume below the finished threshold", func() {
			So(Save(&Record{ContentID: "m1", EpisodeID: "e1", CurrentTime: 40, Duration: 118, Confirmed: true}), ShouldBeNil)

			target, ok := ResumeTarget("m1", "e1")
			So(ok, ShouldBeTrue)
			So(target, ShouldEqual, 40)
		})

		Convey("Should not offer resume at or past the threshold", func() {
			So(Save(&Record{ContentID: "m2", EpisodeID: "e1", CurrentTime: 110, Duration: 118, Confirmed: true}), ShouldBeNil)

			_, ok := ResumeTarget("m2", "e1")
			So(ok, ShouldBeFalse)
		})

		Convey("Should not offer resume for unknown content", func() {
			_, ok := ResumeTarget("m3", "e1")
			So(ok, ShouldBeFalse)
		})

		Convey("Should not offer resume at position zero", func() {
			So(Save(&Record{ContentID: "m4", EpisodeID: "e1", CurrentTime: 0, Duration: 118}), ShouldBeNil)

			_, ok := ResumeTarget("m4", "e1")
			So(ok, ShouldBeFalse)
		})
	})
}
