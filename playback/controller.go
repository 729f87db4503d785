package playback

import (
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/nuvio-play/nuvioplay/adapter"
	"github.com/nuvio-play/nuvioplay/key"
	"github.com/nuvio-play/nuvioplay/log"
	"github.com/nuvio-play/nuvioplay/progress"
	"github.com/nuvio-play/nuvioplay/speed"
	"github.com/nuvio-play/nuvioplay/subtitle"
	"github.com/nuvio-play/nuvioplay/track"
)

const (
	deferredResumeDelay   = 500 * time.Millisecond
	subtitleStabilizeWait = 600 * time.Millisecond
	seekFallbackTimeout   = 3 * time.Second
	errorAutoDismissDelay = 5 * time.Second
	boostFlashDuration    = 1500 * time.Millisecond
	maxAudioFallbacks     = 3
)

// Session describes the media a controller is playing and its live position.
type Session struct {
	SourceURI string
	Headers   map[string]string
	Backend   adapter.Kind

	ContentID string
	EpisodeID string

	CurrentTime  float64
	Duration     float64
	BufferedTime float64
	Paused       bool
	Rate         float64
	ResizeMode   string
}

// Options parameterizes a new playback session.
type Options struct {
	SourceURI string
	Headers   map[string]string
	Backend   adapter.Kind

	ContentID string
	EpisodeID string

	// EstimatedDuration is the catalogue's guess, superseded once the
	// decoder confirms the real length.
	EstimatedDuration float64

	StartPaused bool
}

// Controller owns one playback session end to end. All mutable state lives
// on the dispatch goroutine; public methods post closures onto it and
// return immediately.
type Controller struct {
	opts Options
	dec  adapter.Adapter

	cmds      chan func()
	done      chan struct{}
	closeOnce sync.Once

	// epoch invalidates timer callbacks armed before a load or teardown.
	// Timers capture it at arm time and compare at fire time.
	epoch int

	// seekGen invalidates only the per-seek fallback timer, so an issued
	// seek does not discard unrelated timers like subtitle stabilization.
	seekGen int

	state   State
	session Session

	audio          []track.Descriptor
	text           []track.Descriptor
	selectedAudio  int
	selAudioDesc   track.Descriptor
	haveAudioSel   bool
	audioFallbacks int

	subtitles      *subtitle.Engine
	subSource      *subtitle.Source
	externalRefs   []subtitle.Ref
	refsRequested  bool
	subsArbitrated bool

	speed      *speed.Controller
	boostFlash bool

	progress          *progress.Manager
	durationConfirmed bool

	retry        retrySupervisor
	reachedReady bool
	pausedIntent bool

	seek        seekCoordinator
	lastRawTime float64

	resumeFrom   float64
	resumeOffer  bool
	resumeIssued bool

	scrubbing bool
	buffering bool
	cueText   string

	err *Error

	subs subscribers
}

// New creates a controller with the configured decoder backend.
// The session does not start until Start is called.
func New(opts Options) (*Controller, error) {
	dec, err := adapter.New(opts.Backend)
	if err != nil {
		return nil, err
	}
	return newController(opts, dec), nil
}

func newController(opts Options, dec adapter.Adapter) *Controller {
	c := &Controller{
		opts:          opts,
		dec:           dec,
		cmds:          make(chan func(), 32),
		done:          make(chan struct{}),
		state:         StateIdle,
		selectedAudio: adapter.TextTrackDisabled,
		subtitles:     subtitle.NewEngine(),
		subSource:     subtitle.NewSource(),
		speed:         speed.NewController(),
		progress:      progress.NewManager(opts.ContentID, opts.EpisodeID),
		pausedIntent:  opts.StartPaused,
		session: Session{
			SourceURI:  opts.SourceURI,
			Headers:    opts.Headers,
			Backend:    dec.Kind(),
			ContentID:  opts.ContentID,
			EpisodeID:  opts.EpisodeID,
			Duration:   opts.EstimatedDuration,
			Paused:     opts.StartPaused,
			Rate:       1.0,
			ResizeMode: viper.GetString(key.PlayerResizeMode),
		},
	}
	return c
}

// Start launches the dispatch goroutine and issues the initial load.
func (c *Controller) Start() {
	go c.run()
	c.post(c.load)
}

// Subscribe registers a snapshot consumer. The channel closes on teardown.
func (c *Controller) Subscribe() <-chan Snapshot {
	return c.subs.add()
}

// Close tears the session down: final progress flush, remote session end,
// decoder shutdown. Safe to call more than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		ack := make(chan struct{})
		c.post(func() {
			c.teardown(progress.EndReasonUserClose)
			close(ack)
		})
		select {
		case <-ack:
		case <-c.done:
		}
	})
}

// TogglePlayback flips between playing and paused. A user pause forces an
// immediate progress flush.
func (c *Controller) TogglePlayback() {
	c.post(func() {
		switch c.state {
		case StatePlaying:
			c.pausedIntent = true
			c.session.Paused = true
			c.state = StatePaused
			_ = c.dec.Pause()
			c.progress.Flush(c.session.CurrentTime, c.session.Duration, c.durationConfirmed)
		case StatePaused, StateReady:
			c.pausedIntent = false
			c.session.Paused = false
			c.state = StatePlaying
			_ = c.dec.Play()
		default:
			return
		}
		c.publish()
	})
}

// SeekTo requests an absolute seek. Requests while one is in flight are
// dropped.
func (c *Controller) SeekTo(target float64) {
	c.post(func() { c.seekTo(target) })
}

// Skip seeks relative to the current position.
func (c *Controller) Skip(delta float64) {
	c.post(func() { c.seekTo(c.session.CurrentTime + delta) })
}

// BeginScrub freezes UI-visible time updates while the user drags.
func (c *Controller) BeginScrub() {
	c.post(func() {
		c.scrubbing = true
	})
}

// EndScrub releases the scrub freeze and seeks to the drop position.
func (c *Controller) EndScrub(target float64) {
	c.post(func() {
		c.scrubbing = false
		c.seekTo(target)
	})
}

// SelectAudioTrack switches the active audio stream by descriptor id.
func (c *Controller) SelectAudioTrack(id int) {
	c.post(func() {
		c.applyAudio(id)
		c.haveAudioSel = true
		c.publish()
	})
}

// SelectTextTrack switches the embedded subtitle stream, disabling external
// cues. adapter.TextTrackDisabled turns subtitles off entirely.
func (c *Controller) SelectTextTrack(id int) {
	c.post(func() {
		decoderID := c.subtitles.SelectInternal(id)
		_ = c.dec.SetTextTrack(decoderID)
		c.savePreference()
		c.updateCue()
		c.publish()
	})
}

// LoadExternalSubtitle downloads and activates an external cue file.
// Fetch and parse failures leave the current subtitle state untouched.
func (c *Controller) LoadExternalSubtitle(ref subtitle.Ref) {
	c.post(func() {
		if c.subSource == nil {
			return
		}

		epoch := c.epoch
		go func() {
			data, err := c.subSource.FetchCueFile(ref)
			if err != nil {
				log.Warnf("external subtitle fetch failed: %v", err)
				return
			}

			cues, err := subtitle.ParseSRT(data)
			if err != nil {
				log.Warnf("external subtitle parse failed: %v", err)
				return
			}

			c.post(func() {
				if epoch != c.epoch {
					return
				}
				c.subtitles.SetCues(cues)
				decoderID := c.subtitles.ActivateExternal()
				_ = c.dec.SetTextTrack(decoderID)
				c.savePreference()
				c.updateCue()
				c.publish()
			})
		}()
	})
}

// DisableExternalSubtitle switches back to the embedded track that was
// active before external cues took over.
func (c *Controller) DisableExternalSubtitle() {
	c.post(func() {
		decoderID := c.subtitles.DeactivateExternal()
		_ = c.dec.SetTextTrack(decoderID)
		c.savePreference()
		c.updateCue()
		c.publish()
	})
}

// SetSubtitleOffset adjusts the live cue offset in seconds.
func (c *Controller) SetSubtitleOffset(offset float64) {
	c.post(func() {
		c.subtitles.SetOffset(offset)
		c.updateCue()
		c.publish()
	})
}

// SetSpeed applies an explicit playback rate.
func (c *Controller) SetSpeed(rate float64) {
	c.post(func() {
		c.applyRate(c.speed.Set(rate))
	})
}

// CycleSpeed advances to the next rate preset.
func (c *Controller) CycleSpeed() {
	c.post(func() {
		c.applyRate(c.speed.Cycle())
	})
}

// ActivateBoost applies the hold-to-boost rate with a transient
// confirmation flag.
func (c *Controller) ActivateBoost() {
	c.post(func() {
		c.applyRate(c.speed.ActivateBoost())
		c.boostFlash = true
		c.after(boostFlashDuration, func() {
			c.boostFlash = false
			c.publish()
		})
		c.publish()
	})
}

// DeactivateBoost restores the rate remembered at activation, exactly once.
func (c *Controller) DeactivateBoost() {
	c.post(func() {
		rate, restored := c.speed.DeactivateBoost()
		if !restored {
			return
		}
		c.boostFlash = false
		c.applyRate(rate)
	})
}

// Dismiss clears a surfaced error. Manual dismissal and the automatic timer
// are idempotent with each other.
func (c *Controller) Dismiss() {
	c.post(c.dismiss)
}

// post runs fn on the dispatch goroutine unless the session is torn down.
func (c *Controller) post(fn func()) {
	select {
	case c.cmds <- fn:
	case <-c.done:
	}
}

// after arms an epoch-tagged timer. The callback is discarded when the
// epoch advanced between arm and fire.
func (c *Controller) after(d time.Duration, fn func()) {
	epoch := c.epoch
	time.AfterFunc(d, func() {
		c.post(func() {
			if epoch != c.epoch {
				return
			}
			fn()
		})
	})
}

// run is the dispatch loop. It owns all session state.
func (c *Controller) run() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	events := c.dec.Events()
	saveEvery := c.progress.SaveInterval()
	lastSave := time.Now()

	for {
		select {
		case <-c.done:
			return
		case fn := <-c.cmds:
			fn()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.handleEvent(ev)
		case <-ticker.C:
			if c.state == StatePlaying && time.Since(lastSave) >= saveEvery {
				lastSave = time.Now()
				c.progress.Update(c.session.CurrentTime, c.session.Duration, c.durationConfirmed)
			}
		}
	}
}

// load issues (or reissues) the decoder load. Each load starts a new epoch.
func (c *Controller) load() {
	c.epoch++
	c.state = StateLoading
	c.subsArbitrated = false

	c.fetchExternalRefs()

	if err := c.dec.Load(c.session.SourceURI, c.session.Headers); err != nil {
		c.handleFailure("load_error", err.Error())
		return
	}

	c.publish()
}

// fetchExternalRefs requests the external subtitle catalogue once per
// session, off the dispatch goroutine.
func (c *Controller) fetchExternalRefs() {
	if c.subSource == nil || c.refsRequested || c.opts.ContentID == "" {
		return
	}
	c.refsRequested = true

	go func() {
		refs, _ := c.subSource.Fetch(c.opts.ContentID, viper.GetString(key.SubtitleLanguage))
		if len(refs) == 0 {
			return
		}
		c.post(func() {
			c.externalRefs = refs
		})
	}()
}

// handleEvent translates decoder events into state transitions.
func (c *Controller) handleEvent(ev adapter.Event) {
	switch e := ev.(type) {
	case adapter.Loaded:
		c.onLoaded(e)
	case adapter.Progress:
		c.onProgress(e)
	case adapter.Buffering:
		c.buffering = e.Active
		c.publish()
	case adapter.TracksChanged:
		c.onTracksChanged(e)
	case adapter.Ended:
		c.onEnded()
	case adapter.Failed:
		c.handleFailure(e.Code, e.Message)
	}
}

// onLoaded moves the session from Loading to Ready and kicks off the
// deferred pieces: audio auto-select, subtitle arbitration, resume seek.
func (c *Controller) onLoaded(ev adapter.Loaded) {
	if c.state != StateLoading {
		return
	}

	if ev.Duration > 0 {
		// Decoder-confirmed duration supersedes the catalogue estimate.
		c.session.Duration = ev.Duration
		c.durationConfirmed = true
	}

	c.reachedReady = true
	c.retry.reset()
	c.state = StateReady
	c.rebuildTracks(ev.Audio, ev.Text)

	if c.haveAudioSel {
		c.reresolveAudio()
	} else if d, ok := track.SelectAudio(c.audio, viper.GetString(key.PlayerAudioLanguage)); ok {
		c.applyAudio(d.ID)
	}

	c.armSubtitleStabilization()

	if !c.resumeIssued {
		if target, ok := c.progress.ResumeTarget(); ok {
			c.resumeFrom = target
			c.resumeOffer = true
			c.after(deferredResumeDelay, func() {
				if c.resumeIssued || c.seek.nonSeekable {
					return
				}
				c.resumeIssued = true
				c.seekTo(c.resumeFrom)
			})
		}
	}

	_ = c.dec.SetRate(c.speed.Current())

	if c.pausedIntent {
		c.session.Paused = true
		c.state = StatePaused
		_ = c.dec.Pause()
	} else {
		c.session.Paused = false
		c.state = StatePlaying
		_ = c.dec.Play()
	}

	c.publish()
}

// onProgress handles position reports. Reports during an in-flight seek are
// discarded unless they settle it; scrubbing freezes UI-visible time.
func (c *Controller) onProgress(ev adapter.Progress) {
	c.lastRawTime = ev.Time
	c.session.BufferedTime = ev.Buffered

	if c.seek.pending {
		if c.seek.settled(ev.Time) {
			c.state = c.activeState()
			c.session.CurrentTime = ev.Time
			c.updateCue()
			c.publish()
		}
		return
	}

	if c.scrubbing {
		return
	}

	c.session.CurrentTime = ev.Time
	c.updateCue()
	c.publish()
}

// onTracksChanged rebuilds descriptors and re-resolves the audio selection.
// Fresh ids bear no relation to previous ones.
func (c *Controller) onTracksChanged(ev adapter.TracksChanged) {
	c.rebuildTracks(ev.Audio, ev.Text)
	c.reresolveAudio()

	if !c.subsArbitrated {
		c.armSubtitleStabilization()
	}

	c.publish()
}

// onEnded finalizes a naturally finished session.
func (c *Controller) onEnded() {
	if c.state == StateEnded || c.state == StateError {
		return
	}

	if c.session.Duration > 0 {
		c.session.CurrentTime = c.session.Duration
	}
	c.state = StateEnded

	c.progress.Flush(c.session.CurrentTime, c.session.Duration, c.durationConfirmed)
	c.progress.End(progress.EndReasonEnded)

	c.publish()
}

// handleFailure routes a decoder failure through the silent recovery paths
// before surfacing it.
func (c *Controller) handleFailure(code, message string) {
	kind := classify(code, message)

	if kind == ErrCodecUnsupportedAudio && c.tryAudioFallback() {
		return
	}

	if kind == ErrStartupTimeout && !c.reachedReady && c.retry.eligible(kind) {
		delay := c.retry.delay()
		log.Infof("startup not ready (%s), retrying in %s", code, delay)
		c.state = StateLoading
		c.after(delay, c.load)
		c.publish()
		return
	}

	c.surfaceError(kind, code, message)
}

// tryAudioFallback switches to a lighter audio track after a codec failure.
// Capped per session; past the cap the error propagates.
func (c *Controller) tryAudioFallback() bool {
	if c.audioFallbacks >= maxAudioFallbacks {
		return false
	}

	next, ok := track.NextAudioFallback(c.audio, c.selectedAudio)
	if !ok {
		return false
	}

	c.audioFallbacks++
	log.Warnf("audio track %d failed to decode, falling back to %q", c.selectedAudio, next.DisplayName)

	// Brief pause around the switch so the decoder can flush its pipeline.
	_ = c.dec.Pause()
	c.applyAudio(next.ID)
	if !c.session.Paused {
		_ = c.dec.Play()
	}

	c.publish()
	return true
}

// surfaceError escalates a failure to the user. The final progress flush
// and the remote session end happen before anything is shown.
func (c *Controller) surfaceError(kind ErrorKind, code, message string) {
	c.progress.Flush(c.session.CurrentTime, c.session.Duration, c.durationConfirmed)
	c.progress.End(progress.EndReasonUnmount)

	c.err = &Error{Kind: kind, Code: code, Message: message}
	c.state = StateError

	c.after(errorAutoDismissDelay, c.dismiss)

	log.Errorf("playback failed: %s", c.err)
	c.publish()
}

// dismiss clears the surfaced error. Safe to run from both the manual
// command and the auto-dismiss timer; whichever runs second is a no-op.
func (c *Controller) dismiss() {
	if c.err == nil {
		return
	}
	c.err = nil
	c.publish()
}

// seekTo coordinates an absolute seek with clamping, the reentrancy guard
// and the settle-or-expire protocol.
func (c *Controller) seekTo(target float64) {
	if !c.state.active() && c.state != StateReady {
		return
	}

	target = clampTarget(target, c.session.Duration)

	if !c.seek.begin(target) {
		return
	}

	c.seekGen++
	// Any seek supersedes a not-yet-issued resume intent.
	c.resumeIssued = true
	c.state = StateSeeking

	if err := c.dec.Seek(target); err != nil {
		log.Warnf("seek command failed: %v", err)
	}

	gen := c.seekGen
	c.after(seekFallbackTimeout, func() {
		if gen != c.seekGen {
			return
		}
		if c.seek.expire(c.lastRawTime) {
			c.markNonSeekable()
		}
		if c.state == StateSeeking {
			c.state = c.activeState()
			c.session.CurrentTime = c.lastRawTime
			c.updateCue()
		}
		c.publish()
	})

	c.publish()
}

// markNonSeekable records that the source ignores seeks. Classified at most
// once per session and never surfaced; any pending resume intent is dropped.
func (c *Controller) markNonSeekable() {
	log.Warnf("source ignores seek commands, continuing from current position")
	c.resumeOffer = false
	c.resumeIssued = true
}

// activeState returns the state to settle into after a seek completes.
func (c *Controller) activeState() State {
	if c.session.Paused {
		return StatePaused
	}
	return StatePlaying
}

// rebuildTracks replaces the descriptor lists from raw decoder tracks.
func (c *Controller) rebuildTracks(audio, text []adapter.Track) {
	c.audio = track.Descriptors(audio, track.KindAudio)
	c.text = track.Descriptors(text, track.KindText)
}

// applyAudio pushes an audio selection to the decoder and remembers its
// descriptor for later re-resolution.
func (c *Controller) applyAudio(id int) {
	c.selectedAudio = id
	if d, ok := lo.Find(c.audio, func(d track.Descriptor) bool { return d.ID == id }); ok {
		c.selAudioDesc = d
	}
	_ = c.dec.SetAudioTrack(id)
}

// reresolveAudio re-finds the selected audio track in a renumbered list.
func (c *Controller) reresolveAudio() {
	if c.selAudioDesc.DisplayName == "" {
		return
	}

	if d, ok := track.Reresolve(c.selAudioDesc, c.audio); ok && d.ID != c.selectedAudio {
		c.selectedAudio = d.ID
		c.selAudioDesc = d
		_ = c.dec.SetAudioTrack(d.ID)
	}
}

// armSubtitleStabilization defers subtitle arbitration until the embedded
// track list stops churning: two consecutive identical lists across the
// debounce window.
func (c *Controller) armSubtitleStabilization() {
	fingerprint := textFingerprint(c.text)
	c.after(subtitleStabilizeWait, func() {
		if c.subsArbitrated {
			return
		}
		if textFingerprint(c.text) != fingerprint {
			c.armSubtitleStabilization()
			return
		}
		c.arbitrateSubtitles()
	})
}

// arbitrateSubtitles picks the initial subtitle source once per load.
func (c *Controller) arbitrateSubtitles() {
	if c.subsArbitrated {
		return
	}
	c.subsArbitrated = true

	mode := track.TextMode(viper.GetString(key.SubtitleMode))
	lang := viper.GetString(key.SubtitleLanguage)

	if pref, err := subtitle.GetPreference(c.opts.ContentID); err == nil && pref != nil {
		if pref.Disabled {
			_ = c.dec.SetTextTrack(c.subtitles.SelectInternal(adapter.TextTrackDisabled))
			c.publish()
			return
		}
		if pref.Language != "" {
			lang = pref.Language
		}
		if pref.External {
			mode = track.TextModeExternal
		}
	}

	choice, d := track.SelectText(c.text, len(c.externalRefs) > 0, mode, lang)
	switch choice {
	case track.TextInternal:
		_ = c.dec.SetTextTrack(c.subtitles.SelectInternal(d.ID))
	case track.TextExternal:
		c.LoadExternalSubtitle(c.pickExternalRef(lang))
	case track.TextNone:
		_ = c.dec.SetTextTrack(c.subtitles.SelectInternal(adapter.TextTrackDisabled))
	}

	c.publish()
}

// pickExternalRef chooses a catalogue entry by language hint, falling back
// to the first entry.
func (c *Controller) pickExternalRef(lang string) subtitle.Ref {
	if ref, ok := lo.Find(c.externalRefs, func(r subtitle.Ref) bool {
		return r.Language == lang
	}); ok {
		return ref
	}
	return c.externalRefs[0]
}

// savePreference persists the current subtitle choice for this content.
func (c *Controller) savePreference() {
	if c.opts.ContentID == "" {
		return
	}

	pref := &subtitle.Preference{
		Language: viper.GetString(key.SubtitleLanguage),
		External: c.subtitles.ExternalActive(),
		Disabled: !c.subtitles.ExternalActive() && c.subtitles.InternalSelected() == adapter.TextTrackDisabled,
	}

	if err := subtitle.SavePreference(c.opts.ContentID, pref); err != nil {
		log.Warnf("subtitle preference save failed: %v", err)
	}
}

// applyRate pushes a playback rate to the decoder and the session.
func (c *Controller) applyRate(rate float64) {
	c.session.Rate = rate
	_ = c.dec.SetRate(rate)
	c.publish()
}

// updateCue refreshes the active external cue line for the current position.
func (c *Controller) updateCue() {
	if cue, ok := c.subtitles.ActiveAt(c.session.CurrentTime); ok {
		c.cueText = cue.Text
	} else {
		c.cueText = ""
	}
}

// teardown finalizes the session: all timers are invalidated, the last
// position is flushed, the remote service is told why, and the decoder dies.
func (c *Controller) teardown(reason progress.EndReason) {
	c.epoch++

	if c.reachedReady {
		c.progress.Flush(c.session.CurrentTime, c.session.Duration, c.durationConfirmed)
	}
	c.progress.End(reason)

	_ = c.dec.Close()

	close(c.done)
	c.subs.closeAll()
}

// publish broadcasts the current state to all subscribers.
func (c *Controller) publish() {
	c.subs.broadcast(Snapshot{
		State:             c.state,
		Time:              c.session.CurrentTime,
		Duration:          c.session.Duration,
		Buffered:          c.session.BufferedTime,
		Paused:            c.session.Paused,
		Buffering:         c.buffering,
		NonSeekable:       c.seek.nonSeekable,
		Audio:             c.audio,
		Text:              c.text,
		SelectedAudioID:   c.selectedAudio,
		SelectedTextID:    c.subtitles.InternalSelected(),
		ExternalSubtitles: c.subtitles.ExternalActive(),
		SubtitleOffset:    c.subtitles.Offset(),
		CueText:           c.cueText,
		Speed:             c.speed.Current(),
		Boosted:           c.speed.Boosted(),
		BoostFlash:        c.boostFlash,
		ResumeFrom:        c.resumeFrom,
		ResumeOffered:     c.resumeOffer,
		Err:               c.err,
	})
}

// textFingerprint summarizes an embedded subtitle list for stability checks.
func textFingerprint(list []track.Descriptor) string {
	fp := ""
	for _, d := range list {
		fp += d.DisplayName + "|"
		fp += d.LanguageCode + ";"
	}
	return fp
}
