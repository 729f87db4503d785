package adapter

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSanitizeMediaTarget(t *testing.T) {
	Convey("sanitizeMediaTarget", t, func() {
		Convey("Should accept http and https URLs", func() {
			got, err := sanitizeMediaTarget("https://cdn.example.com/stream.m3u8")
			So(err, ShouldBeNil)
			So(got, ShouldEqual, "https://cdn.example.com/stream.m3u8")

			got, err = sanitizeMediaTarget("http://cdn.example.com/stream.mp4")
			So(err, ShouldBeNil)
			So(got, ShouldEqual, "http://cdn.example.com/stream.mp4")
		})

		Convey("Should reject empty input", func() {
			_, err := sanitizeMediaTarget("   ")
			So(err, ShouldNotBeNil)
		})

		Convey("Should reject control characters", func() {
			_, err := sanitizeMediaTarget("https://example.com/a\nb")
			So(err, ShouldNotBeNil)
		})

		Convey("Should reject flag-looking input", func() {
			_, err := sanitizeMediaTarget("--script=evil.lua")
			So(err, ShouldNotBeNil)
		})

		Convey("Should reject non-http schemes", func() {
			_, err := sanitizeMediaTarget("ftp://example.com/file")
			So(err, ShouldNotBeNil)
		})

		Convey("Should clean local paths", func() {
			got, err := sanitizeMediaTarget("videos/../movie.mkv")
			So(err, ShouldBeNil)
			So(got, ShouldEqual, "movie.mkv")
		})
	})
}

func TestParseMPVTrackList(t *testing.T) {
	Convey("parseMPVTrackList", t, func() {
		Convey("Should split tracks by type", func() {
			data := []interface{}{
				map[string]interface{}{
					"id": float64(1), "type": "audio", "title": "Surround",
					"lang": "en", "codec": "truehd", "demux-channel-count": float64(8),
					"selected": true,
				},
				map[string]interface{}{
					"id": float64(2), "type": "audio", "lang": "en", "codec": "aac",
					"demux-channel-count": float64(2),
				},
				map[string]interface{}{
					"id": float64(1), "type": "sub", "lang": "en", "codec": "subrip",
				},
				map[string]interface{}{
					"id": float64(1), "type": "video", "codec": "h264",
				},
			}

			audio, text := parseMPVTrackList(data)
			So(audio, ShouldHaveLength, 2)
			So(text, ShouldHaveLength, 1)

			So(audio[0].ID, ShouldEqual, 1)
			So(audio[0].Title, ShouldEqual, "Surround")
			So(audio[0].Codec, ShouldEqual, "truehd")
			So(audio[0].Channels, ShouldEqual, 8)
			So(audio[0].Selected, ShouldBeTrue)

			So(audio[1].Selected, ShouldBeFalse)
			So(text[0].Codec, ShouldEqual, "subrip")
		})

		Convey("Should tolerate malformed payloads", func() {
			audio, text := parseMPVTrackList("not a list")
			So(audio, ShouldBeNil)
			So(text, ShouldBeNil)

			audio, text = parseMPVTrackList([]interface{}{"garbage", 42})
			So(audio, ShouldBeNil)
			So(text, ShouldBeNil)
		})
	})
}

func TestParseVLCStreams(t *testing.T) {
	Convey("parseVLCStreams", t, func() {
		information := map[string]interface{}{
			"category": map[string]interface{}{
				"meta": map[string]interface{}{"title": "Movie"},
				"Stream 2": map[string]interface{}{
					"Type": "Audio", "Language": "ja", "Codec": "AAC", "Channels": "stereo",
				},
				"Stream 0": map[string]interface{}{
					"Type": "Audio", "Language": "en", "Codec": "A52", "Channels": "5.1",
					"Description": "Commentary",
				},
				"Stream 1": map[string]interface{}{
					"Type": "Subtitle", "Language": "en", "Codec": "subrip",
				},
			},
		}

		Convey("Should return tracks ordered by stream id", func() {
			audio, text := parseVLCStreams(information)
			So(audio, ShouldHaveLength, 2)
			So(text, ShouldHaveLength, 1)

			So(audio[0].ID, ShouldEqual, 0)
			So(audio[0].Lang, ShouldEqual, "en")
			So(audio[0].Channels, ShouldEqual, 6)
			So(audio[0].Title, ShouldEqual, "Commentary")

			So(audio[1].ID, ShouldEqual, 2)
			So(audio[1].Channels, ShouldEqual, 2)

			So(text[0].ID, ShouldEqual, 1)
		})

		Convey("countVLCStreams should ignore non-stream categories", func() {
			So(countVLCStreams(information), ShouldEqual, 3)
			So(countVLCStreams(map[string]interface{}{}), ShouldEqual, 0)
		})

		Convey("Should tolerate a missing category block", func() {
			audio, text := parseVLCStreams(map[string]interface{}{})
			So(audio, ShouldBeNil)
			So(text, ShouldBeNil)
		})
	})
}

func TestMPVShutdownBeforeReload(t *testing.T) {
	Convey("shutdownDecoder", t, func() {
		Convey("Should clear a previous spawn's socket and listener state", func() {
			m := NewMPV()

			sock := filepath.Join(t.TempDir(), "stale.sock")
			So(os.WriteFile(sock, nil, 0644), ShouldBeNil)
			m.socketPath = sock
			m.listener = newMPVListener(sock, m.translate)

			m.shutdownDecoder()

			So(m.socketPath, ShouldBeEmpty)
			So(m.listener, ShouldBeNil)
			So(m.cmd, ShouldBeNil)
			_, err := os.Stat(sock)
			So(os.IsNotExist(err), ShouldBeTrue)
		})

		Convey("Should be a no-op on a never-loaded adapter", func() {
			m := NewMPV()
			m.shutdownDecoder()
			So(m.socketPath, ShouldBeEmpty)
		})
	})
}

func TestVLCChannelCount(t *testing.T) {
	Convey("vlcChannelCount", t, func() {
		So(vlcChannelCount("Mono"), ShouldEqual, 1)
		So(vlcChannelCount("Stereo"), ShouldEqual, 2)
		So(vlcChannelCount("5.1"), ShouldEqual, 6)
		So(vlcChannelCount("7.1"), ShouldEqual, 8)
		So(vlcChannelCount("6"), ShouldEqual, 6)
		So(vlcChannelCount("unknown"), ShouldEqual, 0)
	})
}
