package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/nuvio-play/nuvioplay/adapter"
	"github.com/nuvio-play/nuvioplay/filesystem"
	"github.com/nuvio-play/nuvioplay/key"
	"github.com/nuvio-play/nuvioplay/progress"
)

// fakeAdapter is a scriptable decoder for driving the controller in tests.
type fakeAdapter struct {
	mu sync.Mutex

	events chan adapter.Event

	loads     int
	seeks     []float64
	audioSets []int
	textSets  []int
	rates     []float64
	plays     int
	pauses    int
	closed    bool
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{events: make(chan adapter.Event, 64)}
}

func (f *fakeAdapter) Kind() adapter.Kind { return adapter.KindMPV }

func (f *fakeAdapter) Load(uri string, headers map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return nil
}

func (f *fakeAdapter) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	return nil
}

func (f *fakeAdapter) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return nil
}

func (f *fakeAdapter) Seek(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, seconds)
	return nil
}

func (f *fakeAdapter) SetAudioTrack(id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audioSets = append(f.audioSets, id)
	return nil
}

func (f *fakeAdapter) SetTextTrack(id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textSets = append(f.textSets, id)
	return nil
}

func (f *fakeAdapter) SetRate(rate float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates = append(f.rates, rate)
	return nil
}

func (f *fakeAdapter) Tracks() ([]adapter.Track, []adapter.Track, error) {
	return nil, nil, nil
}

func (f *fakeAdapter) Events() <-chan adapter.Event { return f.events }

func (f *fakeAdapter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeAdapter) push(ev adapter.Event) { f.events <- ev }

func (f *fakeAdapter) seekCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seeks)
}

func (f *fakeAdapter) lastSeek() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.seeks) == 0 {
		return -1
	}
	return f.seeks[len(f.seeks)-1]
}

func (f *fakeAdapter) lastAudio() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.audioSets) == 0 {
		return -999
	}
	return f.audioSets[len(f.audioSets)-1]
}

// waitFor consumes snapshots until one satisfies cond or the timeout hits.
func waitFor(snaps <-chan Snapshot, cond func(Snapshot) bool) (Snapshot, bool) {
	return waitForWithin(snaps, 3*time.Second, cond)
}

func waitForWithin(snaps <-chan Snapshot, timeout time.Duration, cond func(Snapshot) bool) (Snapshot, bool) {
	deadline := time.After(timeout)
	for {
		select {
		case s, ok := <-snaps:
			if !ok {
				return Snapshot{}, false
			}
			if cond(s) {
				return s, true
			}
		case <-deadline:
			return Snapshot{}, false
		}
	}
}

// startLoading spins up a controller over a fake decoder and waits until the
// initial load has been processed, so pushed decoder events cannot race it.
func startLoading(opts Options, fake *fakeAdapter) (*Controller, <-chan Snapshot) {
	c := newController(opts, fake)
	snaps := c.Subscribe()
	c.Start()
	waitFor(snaps, func(s Snapshot) bool { return s.State == StateLoading })
	return c, snaps
}

// startSession drives a fresh session to the playing state with the given
// duration.
func startSession(opts Options, duration float64) (*Controller, *fakeAdapter, <-chan Snapshot) {
	fake := newFakeAdapter()
	c, snaps := startLoading(opts, fake)
	fake.push(adapter.Loaded{Duration: duration})
	return c, fake, snaps
}

func TestSeekCoordination(t *testing.T) {
	filesystem.SetMemMapFs()

	Convey("Seek coordination", t, func() {
		Convey("Targets past the end clamp to just before the duration", func() {
			c, fake, snaps := startSession(Options{SourceURI: "http://x/stream"}, 150)
			defer c.Close()

			_, ok := waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying })
			So(ok, ShouldBeTrue)

			c.SeekTo(200)
			_, ok = waitFor(snaps, func(s Snapshot) bool { return s.State == StateSeeking })
			So(ok, ShouldBeTrue)
			So(fake.lastSeek(), ShouldAlmostEqual, 149.7, 0.0001)
		})

		Convey("Negative targets clamp to zero", func() {
			c, fake, snaps := startSession(Options{SourceURI: "http://x/stream"}, 150)
			defer c.Close()

			waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying })
			c.SeekTo(-20)
			_, ok := waitFor(snaps, func(s Snapshot) bool { return s.State == StateSeeking })
			So(ok, ShouldBeTrue)
			So(fake.lastSeek(), ShouldEqual, 0)
		})

		Convey("Requests while one is in flight are dropped", func() {
			c, fake, snaps := startSession(Options{SourceURI: "http://x/stream"}, 150)
			defer c.Close()

			waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying })
			c.SeekTo(50)
			c.SeekTo(60)
			c.SeekTo(70)

			// A command published after the dropped seeks proves they were
			// processed before the seek settles.
			c.SetSubtitleOffset(1.0)
			_, ok := waitFor(snaps, func(s Snapshot) bool { return s.SubtitleOffset == 1.0 })
			So(ok, ShouldBeTrue)
			So(fake.seekCount(), ShouldEqual, 1)

			fake.push(adapter.Progress{Time: 50.2})
			_, ok = waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying && s.Time > 49 })
			So(ok, ShouldBeTrue)
			So(fake.seekCount(), ShouldEqual, 1)
		})

		Convey("Progress far from the target does not settle the seek", func() {
			c, fake, snaps := startSession(Options{SourceURI: "http://x/stream"}, 150)
			defer c.Close()

			waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying })
			c.SeekTo(100)
			waitFor(snaps, func(s Snapshot) bool { return s.State == StateSeeking })

			// Stale pre-seek report: discarded, time stays frozen.
			fake.push(adapter.Progress{Time: 10})
			fake.push(adapter.Progress{Time: 99.4})

			snap, ok := waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying })
			So(ok, ShouldBeTrue)
			So(snap.Time, ShouldAlmostEqual, 99.4, 0.0001)
		})
	})
}

func TestResume(t *testing.T) {
	filesystem.SetMemMapFs()

	Convey("Resume", t, func() {
		Convey("A partially watched session resumes with one deferred seek", func() {
			err := progress.Save(&progress.Record{
				ContentID: "resume-a", EpisodeID: "e1",
				CurrentTime: 40, Duration: 118, Confirmed: true,
			})
			So(err, ShouldBeNil)

			c, fake, snaps := startSession(Options{SourceURI: "http://x/s", ContentID: "resume-a", EpisodeID: "e1"}, 118)
			defer c.Close()

			snap, ok := waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying })
			So(ok, ShouldBeTrue)
			So(snap.ResumeOffered, ShouldBeTrue)
			So(snap.ResumeFrom, ShouldEqual, 40)

			_, ok = waitFor(snaps, func(s Snapshot) bool { return s.State == StateSeeking })
			So(ok, ShouldBeTrue)
			So(fake.lastSeek(), ShouldEqual, 40)
		})

		Convey("Nearly finished content starts from the beginning", func() {
			err := progress.Save(&progress.Record{
				ContentID: "resume-b", EpisodeID: "e1",
				CurrentTime: 110, Duration: 118, Confirmed: true,
			})
			So(err, ShouldBeNil)

			c, fake, snaps := startSession(Options{SourceURI: "http://x/s", ContentID: "resume-b", EpisodeID: "e1"}, 118)
			defer c.Close()

			snap, ok := waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying })
			So(ok, ShouldBeTrue)
			So(snap.ResumeOffered, ShouldBeFalse)

			time.Sleep(800 * time.Millisecond)
			So(fake.seekCount(), ShouldEqual, 0)
		})

		Convey("A user seek before the deferred resume supersedes it", func() {
			err := progress.Save(&progress.Record{
				ContentID: "resume-c", EpisodeID: "e1",
				CurrentTime: 40, Duration: 118, Confirmed: true,
			})
			So(err, ShouldBeNil)

			c, fake, snaps := startSession(Options{SourceURI: "http://x/s", ContentID: "resume-c", EpisodeID: "e1"}, 118)
			defer c.Close()

			waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying })
			c.SeekTo(90)
			_, ok := waitFor(snaps, func(s Snapshot) bool { return s.State == StateSeeking })
			So(ok, ShouldBeTrue)

			fake.push(adapter.Progress{Time: 90.2})
			waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying && s.Time > 89 })

			// Past the resume delay the stored position must not be re-seeked.
			time.Sleep(700 * time.Millisecond)
			So(fake.seekCount(), ShouldEqual, 1)
			So(fake.lastSeek(), ShouldEqual, 90)
		})
	})
}

func TestResumeSubtitleArbitration(t *testing.T) {
	filesystem.SetMemMapFs()
	viper.Set(key.SubtitleMode, "any")
	viper.Set(key.SubtitleLanguage, "en")

	Convey("Subtitle arbitration on a resumed session", t, func() {
		err := progress.Save(&progress.Record{
			ContentID: "resume-subs", EpisodeID: "e1",
			CurrentTime: 40, Duration: 118, Confirmed: true,
		})
		So(err, ShouldBeNil)

		fake := newFakeAdapter()
		c, snaps := startLoading(Options{SourceURI: "http://x/s", ContentID: "resume-subs", EpisodeID: "e1"}, fake)
		defer c.Close()

		fake.push(adapter.Loaded{
			Duration: 118,
			Text:     []adapter.Track{{ID: 1, Lang: "en", Codec: "subrip"}},
		})

		// The deferred resume seek fires and settles first.
		_, ok := waitFor(snaps, func(s Snapshot) bool { return s.State == StateSeeking })
		So(ok, ShouldBeTrue)
		fake.push(adapter.Progress{Time: 40.1})
		waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying && s.Time > 39 })

		// The stabilization window still elapses and selects the embedded track.
		snap, ok := waitFor(snaps, func(s Snapshot) bool { return s.SelectedTextID == 1 })
		So(ok, ShouldBeTrue)
		So(snap.ExternalSubtitles, ShouldBeFalse)
	})
}

func TestNonSeekableClassification(t *testing.T) {
	filesystem.SetMemMapFs()

	Convey("Non-seekable classification", t, func() {
		c, fake, snaps := startSession(Options{SourceURI: "http://x/live"}, 150)
		defer c.Close()

		waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying })
		fake.push(adapter.Progress{Time: 5})
		waitFor(snaps, func(s Snapshot) bool { return s.Time == 5 })

		c.SeekTo(100)
		_, ok := waitFor(snaps, func(s Snapshot) bool { return s.State == StateSeeking })
		So(ok, ShouldBeTrue)

		// The decoder never moves; position reports stay near the old spot.
		fake.push(adapter.Progress{Time: 6})

		snap, ok := waitForWithin(snaps, 5*time.Second, func(s Snapshot) bool { return s.NonSeekable })
		So(ok, ShouldBeTrue)
		So(snap.State, ShouldEqual, StatePlaying)
		So(snap.Time, ShouldAlmostEqual, 6, 0.0001)
		So(fake.seekCount(), ShouldEqual, 1)

		Convey("Later seek requests are ignored outright", func() {
			c.SeekTo(50)
			c.SetSubtitleOffset(1.0)
			_, ok := waitFor(snaps, func(s Snapshot) bool { return s.SubtitleOffset == 1.0 })
			So(ok, ShouldBeTrue)
			So(fake.seekCount(), ShouldEqual, 1)
		})
	})
}

func TestAudioFallback(t *testing.T) {
	filesystem.SetMemMapFs()
	viper.Set(key.PlayerAudioLanguage, "en")

	Convey("Audio codec fallback", t, func() {
		fake := newFakeAdapter()
		c, snaps := startLoading(Options{SourceURI: "http://x/s"}, fake)
		defer c.Close()

		fake.push(adapter.Loaded{
			Duration: 120,
			Audio: []adapter.Track{
				{ID: 1, Title: "English", Lang: "en", Codec: "truehd", Channels: 8},
				{ID: 2, Title: "English", Lang: "en", Codec: "aac", Channels: 2},
			},
		})

		_, ok := waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying })
		So(ok, ShouldBeTrue)
		So(fake.lastAudio(), ShouldEqual, 1)

		Convey("A heavy track failure silently switches to a lighter one", func() {
			fake.push(adapter.Failed{Code: "audio decoder init failed"})

			snap, ok := waitFor(snaps, func(s Snapshot) bool { return s.SelectedAudioID == 2 })
			So(ok, ShouldBeTrue)
			So(snap.Err, ShouldBeNil)
			So(snap.State, ShouldNotEqual, StateError)
			So(fake.lastAudio(), ShouldEqual, 2)
		})
	})
}

func TestFailureHandling(t *testing.T) {
	filesystem.SetMemMapFs()

	Convey("Failure handling", t, func() {
		Convey("A startup timeout before ready retries silently", func() {
			fake := newFakeAdapter()
			c, snaps := startLoading(Options{SourceURI: "http://x/s"}, fake)
			defer c.Close()

			fake.push(adapter.Failed{Code: "source timeout", Message: "source not ready"})

			// The failure must not surface: no error snapshot appears while
			// the supervisor waits out its backoff.
			surfaced := false
			window := time.After(400 * time.Millisecond)
		drain:
			for {
				select {
				case s := <-snaps:
					if s.Err != nil || s.State == StateError {
						surfaced = true
					}
				case <-window:
					break drain
				}
			}
			So(surfaced, ShouldBeFalse)
		})

		Convey("A generic failure surfaces", func() {
			c, fake, snaps := startSession(Options{SourceURI: "http://x/s"}, 120)
			defer c.Close()

			waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying })
			fake.push(adapter.Failed{Code: "demux_error", Message: "corrupt container"})

			snap, ok := waitFor(snaps, func(s Snapshot) bool { return s.State == StateError })
			So(ok, ShouldBeTrue)
			So(snap.Err, ShouldNotBeNil)
			So(snap.Err.Kind, ShouldEqual, ErrGenericPlayback)
		})

		Convey("Dismiss clears the error and is idempotent", func() {
			c, fake, snaps := startSession(Options{SourceURI: "http://x/s"}, 120)
			defer c.Close()

			waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying })
			fake.push(adapter.Failed{Code: "demux_error", Message: "corrupt container"})
			waitFor(snaps, func(s Snapshot) bool { return s.Err != nil })

			c.Dismiss()
			snap, ok := waitFor(snaps, func(s Snapshot) bool { return s.Err == nil })
			So(ok, ShouldBeTrue)
			So(snap.Err, ShouldBeNil)

			c.Dismiss()
		})
	})
}

func TestLifecycle(t *testing.T) {
	filesystem.SetMemMapFs()

	Convey("Lifecycle", t, func() {
		Convey("Natural end pins the position to the duration", func() {
			c, fake, snaps := startSession(Options{SourceURI: "http://x/s", ContentID: "end-a", EpisodeID: "e1"}, 118)
			defer c.Close()

			waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying })
			fake.push(adapter.Progress{Time: 117})
			fake.push(adapter.Ended{})

			snap, ok := waitFor(snaps, func(s Snapshot) bool { return s.State == StateEnded })
			So(ok, ShouldBeTrue)
			So(snap.Time, ShouldEqual, 118)

			record, err := progress.Lookup("end-a", "e1")
			So(err, ShouldBeNil)
			So(record, ShouldNotBeNil)
			So(record.CurrentTime, ShouldEqual, 118)
		})

		Convey("Toggling pauses and resumes the decoder", func() {
			c, fake, snaps := startSession(Options{SourceURI: "http://x/s"}, 120)
			defer c.Close()

			waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying })

			c.TogglePlayback()
			snap, ok := waitFor(snaps, func(s Snapshot) bool { return s.State == StatePaused })
			So(ok, ShouldBeTrue)
			So(snap.Paused, ShouldBeTrue)

			c.TogglePlayback()
			_, ok = waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying })
			So(ok, ShouldBeTrue)

			fake.mu.Lock()
			So(fake.pauses, ShouldBeGreaterThanOrEqualTo, 1)
			fake.mu.Unlock()
		})

		Convey("Close shuts the decoder down and is safe to repeat", func() {
			c, fake, snaps := startSession(Options{SourceURI: "http://x/s"}, 120)

			waitFor(snaps, func(s Snapshot) bool { return s.State == StatePlaying })
			c.Close()
			c.Close()

			fake.mu.Lock()
			So(fake.closed, ShouldBeTrue)
			fake.mu.Unlock()
		})
	})
}

func TestRetrySchedule(t *testing.T) {
	Convey("Retry supervisor", t, func() {
		Convey("Should consume exactly three attempts with increasing backoff", func() {
			r := retrySupervisor{}

			So(r.eligible(ErrStartupTimeout), ShouldBeTrue)
			So(r.delay(), ShouldEqual, 4*time.Second)
			So(r.eligible(ErrStartupTimeout), ShouldBeTrue)
			So(r.delay(), ShouldEqual, 8*time.Second)
			So(r.eligible(ErrStartupTimeout), ShouldBeTrue)
			So(r.delay(), ShouldEqual, 12*time.Second)

			So(r.eligible(ErrStartupTimeout), ShouldBeFalse)
		})

		Convey("Should never retry non-startup errors", func() {
			r := retrySupervisor{}
			So(r.eligible(ErrGenericPlayback), ShouldBeFalse)
			So(r.eligible(ErrCodecUnsupportedAudio), ShouldBeFalse)
		})

		Convey("Reset clears consumed attempts", func() {
			r := retrySupervisor{}
			r.eligible(ErrStartupTimeout)
			r.reset()
			So(r.eligible(ErrStartupTimeout), ShouldBeTrue)
			So(r.delay(), ShouldEqual, 4*time.Second)
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Failure classification", t, func() {
		So(classify("", "connection timed out"), ShouldEqual, ErrStartupTimeout)
		So(classify("22001", "source error"), ShouldEqual, ErrStartupTimeout)
		So(classify("4001", "decoder init"), ShouldEqual, ErrCodecUnsupportedAudio)
		So(classify("", "audio codec not supported"), ShouldEqual, ErrCodecUnsupportedAudio)
		So(classify("demux_error", "corrupt container"), ShouldEqual, ErrGenericPlayback)
	})
}
