package track

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/nuvio-play/nuvioplay/adapter"
)

func audioList() []Descriptor {
	return []Descriptor{
		{ID: 1, DisplayName: "English (TRUEHD)", LanguageCode: "en", Kind: KindAudio, MultiChannel: true},
		{ID: 2, DisplayName: "English (AAC)", LanguageCode: "en", Kind: KindAudio},
		{ID: 3, DisplayName: "Français (AC3)", LanguageCode: "fr", Kind: KindAudio, MultiChannel: true},
	}
}

func TestSelectAudio(t *testing.T) {
	Convey("SelectAudio", t, func() {
		Convey("Should match exact language code", func() {
			d, ok := SelectAudio(audioList(), "fr")
			So(ok, ShouldBeTrue)
			So(d.ID, ShouldEqual, 3)
		})
		Convey("Should match language prefix", func() {
			list := []Descriptor{
				{ID: 1, DisplayName: "Deutsch", LanguageCode: "de-at"},
				{ID: 2, DisplayName: "English", LanguageCode: "en-us"},
			}
			d, ok := SelectAudio(list, "en")
			So(ok, ShouldBeTrue)
			So(d.ID, ShouldEqual, 2)
		})
		Convey("Should fall back to fuzzy display name", func() {
			list := []Descriptor{
				{ID: 1, DisplayName: "Commentary"},
				{ID: 2, DisplayName: "Japanese 5.1"},
			}
			d, ok := SelectAudio(list, "japanese")
			So(ok, ShouldBeTrue)
			So(d.ID, ShouldEqual, 2)
		})
		Convey("Should fall back to the first track", func() {
			d, ok := SelectAudio(audioList(), "ko")
			So(ok, ShouldBeTrue)
			So(d.ID, ShouldEqual, 1)
		})
		Convey("Should fail on an empty list", func() {
			_, ok := SelectAudio(nil, "en")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestNextAudioFallback(t *testing.T) {
	Convey("NextAudioFallback", t, func() {
		Convey("Should skip heavy codecs and the failed track", func() {
			d, ok := NextAudioFallback(audioList(), 1)
			So(ok, ShouldBeTrue)
			So(d.ID, ShouldEqual, 2)
		})
		Convey("Should prefer stereo over multichannel", func() {
			list := []Descriptor{
				{ID: 1, DisplayName: "English (AC3)", MultiChannel: true},
				{ID: 2, DisplayName: "English (AAC)"},
			}
			d, ok := NextAudioFallback(list, 3)
			So(ok, ShouldBeTrue)
			So(d.ID, ShouldEqual, 2)
		})
		Convey("Should fail when only heavy codecs remain", func() {
			list := []Descriptor{
				{ID: 1, DisplayName: "English (TRUEHD)"},
				{ID: 2, DisplayName: "English (DTS-HD MA)"},
			}
			_, ok := NextAudioFallback(list, 1)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestSelectText(t *testing.T) {
	internal := []Descriptor{
		{ID: 1, DisplayName: "English", LanguageCode: "en", Kind: KindText},
		{ID: 2, DisplayName: "Español", LanguageCode: "es", Kind: KindText},
	}

	Convey("SelectText", t, func() {
		Convey("Mode any prefers an embedded language match", func() {
			choice, d := SelectText(internal, true, TextModeAny, "es")
			So(choice, ShouldEqual, TextInternal)
			So(d.ID, ShouldEqual, 2)
		})
		Convey("Mode any falls back to external when no embedded tracks exist", func() {
			choice, _ := SelectText(nil, true, TextModeAny, "en")
			So(choice, ShouldEqual, TextExternal)
		})
		Convey("Mode internal never picks external", func() {
			choice, _ := SelectText(nil, true, TextModeInternal, "en")
			So(choice, ShouldEqual, TextNone)
		})
		Convey("Mode external ignores embedded tracks", func() {
			choice, _ := SelectText(internal, true, TextModeExternal, "en")
			So(choice, ShouldEqual, TextExternal)
		})
		Convey("Mode external without a file yields none", func() {
			choice, _ := SelectText(internal, false, TextModeExternal, "en")
			So(choice, ShouldEqual, TextNone)
		})
	})
}

func TestReresolve(t *testing.T) {
	Convey("Reresolve", t, func() {
		prev := Descriptor{ID: 7, DisplayName: "English (AAC)", LanguageCode: "en"}

		Convey("Should survive id renumbering", func() {
			fresh := []Descriptor{
				{ID: 12, DisplayName: "Français (AC3)", LanguageCode: "fr"},
				{ID: 13, DisplayName: "English (AAC)", LanguageCode: "en"},
			}
			d, ok := Reresolve(prev, fresh)
			So(ok, ShouldBeTrue)
			So(d.ID, ShouldEqual, 13)
		})
		Convey("Should pick the closest name among same-language tracks", func() {
			fresh := []Descriptor{
				{ID: 1, DisplayName: "English Commentary (AAC)", LanguageCode: "en"},
				{ID: 2, DisplayName: "English (AAC 2.0)", LanguageCode: "en"},
			}
			d, ok := Reresolve(prev, fresh)
			So(ok, ShouldBeTrue)
			So(d.ID, ShouldEqual, 2)
		})
		Convey("Should fall back across languages when none match", func() {
			fresh := []Descriptor{
				{ID: 1, DisplayName: "English (AAC)", LanguageCode: "fr"},
			}
			d, ok := Reresolve(prev, fresh)
			So(ok, ShouldBeTrue)
			So(d.ID, ShouldEqual, 1)
		})
		Convey("Should fail on an empty list", func() {
			_, ok := Reresolve(prev, nil)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestFromAdapter(t *testing.T) {
	Convey("FromAdapter", t, func() {
		Convey("Should compose a display name from metadata", func() {
			d := FromAdapter(adapter.Track{ID: 2, Title: "English", Lang: "EN", Codec: "aac", Channels: 6}, KindAudio)
			So(d.DisplayName, ShouldEqual, "English (AAC)")
			So(d.LanguageCode, ShouldEqual, "en")
			So(d.MultiChannel, ShouldBeTrue)
		})
		Convey("Should synthesize a name for bare tracks", func() {
			d := FromAdapter(adapter.Track{ID: 4}, KindText)
			So(d.DisplayName, ShouldEqual, "Track 4")
		})
	})
}
