package subtitle

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:03,500
Hello there.

2
00:00:04,000 --> 00:00:06,000
<i>General Kenobi.</i>
You are a bold one.
`

func TestParseSRT(t *testing.T) {
	Convey("ParseSRT", t, func() {
		Convey("Should parse a well-formed file", func() {
			cues, err := ParseSRT([]byte(sampleSRT))
			So(err, ShouldBeNil)
			So(cues, ShouldHaveLength, 2)
			So(cues[0].Start, ShouldEqual, 1.0)
			So(cues[0].End, ShouldEqual, 3.5)
			So(cues[0].Text, ShouldEqual, "Hello there.")
		})

		Convey("Should tolerate CRLF line endings", func() {
			crlf := "1\r\n00:00:01,000 --> 00:00:02,000\r\nLine\r\n\r\n"
			cues, err := ParseSRT([]byte(crlf))
			So(err, ShouldBeNil)
			So(cues, ShouldHaveLength, 1)
		})

		Convey("Should tolerate a BOM", func() {
			bom := "\uFEFF1\n00:00:01,000 --> 00:00:02,000\nLine\n"
			cues, err := ParseSRT([]byte(bom))
			So(err, ShouldBeNil)
			So(cues, ShouldHaveLength, 1)
		})

		Convey("Should tolerate missing index lines", func() {
			noIndex := "00:00:01,000 --> 00:00:02,000\nLine\n\n00:00:03,000 --> 00:00:04,000\nOther\n"
			cues, err := ParseSRT([]byte(noIndex))
			So(err, ShouldBeNil)
			So(cues, ShouldHaveLength, 2)
		})

		Convey("Should tolerate dot milliseconds", func() {
			dotted := "1\n00:00:01.250 --> 00:00:02.750\nLine\n"
			cues, err := ParseSRT([]byte(dotted))
			So(err, ShouldBeNil)
			So(cues[0].Start, ShouldEqual, 1.25)
			So(cues[0].End, ShouldEqual, 2.75)
		})

		Convey("Should skip malformed blocks and keep the rest", func() {
			mixed := "garbage block\nno timing here\n\n1\n00:00:01,000 --> 00:00:02,000\nKept\n"
			cues, err := ParseSRT([]byte(mixed))
			So(err, ShouldBeNil)
			So(cues, ShouldHaveLength, 1)
			So(cues[0].Text, ShouldEqual, "Kept")
		})

		Convey("Should sort cues by start time", func() {
			unsorted := "1\n00:00:10,000 --> 00:00:11,000\nSecond\n\n2\n00:00:01,000 --> 00:00:02,000\nFirst\n"
			cues, err := ParseSRT([]byte(unsorted))
			So(err, ShouldBeNil)
			So(cues[0].Text, ShouldEqual, "First")
			So(cues[1].Text, ShouldEqual, "Second")
		})

		Convey("Should fail when nothing parses", func() {
			_, err := ParseSRT([]byte("not a subtitle file"))
			So(err, ShouldNotBeNil)
		})

		Convey("Should extract styled segments", func() {
			cues, err := ParseSRT([]byte(sampleSRT))
			So(err, ShouldBeNil)
			So(cues[1].Segments, ShouldHaveLength, 2)
			So(cues[1].Segments[0].Italic, ShouldBeTrue)
			So(cues[1].Segments[0].Text, ShouldEqual, "General Kenobi.")
			So(cues[1].Segments[1].Italic, ShouldBeFalse)
		})

		Convey("Should parse hour-scale timestamps", func() {
			long := "1\n01:02:03,004 --> 01:02:04,000\nLine\n"
			cues, err := ParseSRT([]byte(long))
			So(err, ShouldBeNil)
			So(cues[0].Start, ShouldAlmostEqual, 3723.004, 0.0001)
		})
	})
}
