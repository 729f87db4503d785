package subtitle

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/nuvio-play/nuvioplay/adapter"
)

func testCues() []Cue {
	return []Cue{
		{Start: 1, End: 3, Text: "first"},
		{Start: 5, End: 7, Text: "second"},
		{Start: 10, End: 12, Text: "third"},
	}
}

func TestActiveAt(t *testing.T) {
	Convey("ActiveAt", t, func() {
		e := NewEngine()
		e.SetCues(testCues())
		e.ActivateExternal()

		Convey("Should find the cue containing the position", func() {
			cue, ok := e.ActiveAt(6)
			So(ok, ShouldBeTrue)
			So(cue.Text, ShouldEqual, "second")
		})

		Convey("Should find nothing between cues", func() {
			_, ok := e.ActiveAt(4)
			So(ok, ShouldBeFalse)
		})

		Convey("Should find nothing before the first cue", func() {
			_, ok := e.ActiveAt(0.5)
			So(ok, ShouldBeFalse)
		})

		Convey("Should include cue boundaries", func() {
			cue, ok := e.ActiveAt(1)
			So(ok, ShouldBeTrue)
			So(cue.Text, ShouldEqual, "first")

			cue, ok = e.ActiveAt(3)
			So(ok, ShouldBeTrue)
			So(cue.Text, ShouldEqual, "first")
		})

		Convey("Should apply the live offset", func() {
			e.SetOffset(4)
			cue, ok := e.ActiveAt(2)
			So(ok, ShouldBeTrue)
			So(cue.Text, ShouldEqual, "second")

			e.SetOffset(-4)
			cue, ok = e.ActiveAt(6)
			So(ok, ShouldBeTrue)
			So(cue.Text, ShouldEqual, "first")
		})

		Convey("Should find nothing when external cues are inactive", func() {
			e.DeactivateExternal()
			_, ok := e.ActiveAt(6)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestExternalInternalArbitration(t *testing.T) {
	Convey("External and embedded track arbitration", t, func() {
		e := NewEngine()
		e.SetCues(testCues())

		Convey("Activating external disables the embedded track", func() {
			e.SelectInternal(3)
			id := e.ActivateExternal()
			So(id, ShouldEqual, adapter.TextTrackDisabled)
			So(e.ExternalActive(), ShouldBeTrue)
			So(e.InternalSelected(), ShouldEqual, adapter.TextTrackDisabled)
		})

		Convey("Deactivating restores the remembered embedded track, not index 0", func() {
			e.SelectInternal(3)
			e.ActivateExternal()
			id := e.DeactivateExternal()
			So(id, ShouldEqual, 3)
			So(e.ExternalActive(), ShouldBeFalse)
		})

		Convey("Double activation does not clobber the remembered track", func() {
			e.SelectInternal(3)
			e.ActivateExternal()
			e.ActivateExternal()
			So(e.DeactivateExternal(), ShouldEqual, 3)
		})

		Convey("Deactivation without a prior embedded selection restores the sentinel", func() {
			e.ActivateExternal()
			So(e.DeactivateExternal(), ShouldEqual, adapter.TextTrackDisabled)
		})

		Convey("Explicit embedded selection wins over external", func() {
			e.ActivateExternal()
			id := e.SelectInternal(2)
			So(id, ShouldEqual, 2)
			So(e.ExternalActive(), ShouldBeFalse)
		})

		Convey("Offset starts at zero for a fresh engine", func() {
			So(NewEngine().Offset(), ShouldEqual, 0)
		})
	})
}
