package adapter

import (
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/nuvio-play/nuvioplay/log"
)

// FFplay runs ffplay as a one-shot process with no control channel.
// Commands that would require one (seek, pause, track switching, rate)
// silently no-op; the position never moves in response to a seek, which is
// exactly how the controller discovers the session is non-seekable.
// Progress is estimated from wall clock and Ended fires when the process exits.
type FFplay struct {
	cmd    *exec.Cmd
	exited chan struct{}

	events chan Event
	emitMu sync.Mutex
	closed bool
	stopCh chan struct{}

	startedAt time.Time
}

// NewFFplay creates a new ffplay adapter (does not start the decoder).
func NewFFplay() *FFplay {
	return &FFplay{
		exited: make(chan struct{}),
		events: make(chan Event, eventBufferSize),
		stopCh: make(chan struct{}),
	}
}

func (f *FFplay) Kind() Kind { return KindFFplay }

// Load spawns ffplay on the given URI. Duration is unknown up front, so the
// Loaded event carries 0 and the consumer keeps its own estimate.
func (f *FFplay) Load(uri string, headers map[string]string) error {
	safeURI, err := sanitizeMediaTarget(uri)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	args := []string{
		"-autoexit",
		"-loglevel", "quiet",
	}

	if len(headers) > 0 {
		var headerLines string
		for k, v := range headers {
			headerLines += fmt.Sprintf("%s: %s\r\n", k, v)
		}
		args = append(args, "-headers", headerLines)
	}

	args = append(args, safeURI)

	f.cmd = exec.Command("ffplay", args...)
	f.cmd.SysProcAttr = sysProcAttr()
	f.cmd.Stdout = nil
	f.cmd.Stderr = nil
	f.cmd.Stdin = nil

	if err := f.cmd.Start(); err != nil {
		return fmt.Errorf("start ffplay: %w", err)
	}

	f.exited = make(chan struct{})
	go func() {
		_ = f.cmd.Wait()
		close(f.exited)
	}()

	f.startedAt = time.Now()
	f.emit(Loaded{Duration: 0})

	go f.clockLoop()

	return nil
}

func (f *FFplay) Play() error {
	// No control channel. The window's own keybindings are the only way in.
	return nil
}

func (f *FFplay) Pause() error {
	return nil
}

// Seek is accepted and discarded; the reported position will not move.
func (f *FFplay) Seek(seconds float64) error {
	log.Debugf("ffplay backend ignoring seek to %.1f", seconds)
	return nil
}

func (f *FFplay) SetAudioTrack(id int) error {
	return nil
}

func (f *FFplay) SetTextTrack(id int) error {
	return nil
}

func (f *FFplay) SetRate(rate float64) error {
	return nil
}

// Tracks reports nothing: ffplay exposes no enumeration interface.
func (f *FFplay) Tracks() ([]Track, []Track, error) {
	return nil, nil, nil
}

// Events returns the decoder event stream.
func (f *FFplay) Events() <-chan Event {
	return f.events
}

// Close terminates the ffplay process.
func (f *FFplay) Close() error {
	f.emitMu.Lock()
	if !f.closed {
		f.closed = true
		close(f.stopCh)
		close(f.events)
	}
	f.emitMu.Unlock()

	if f.cmd == nil {
		return nil
	}

	select {
	case <-f.exited:
	default:
		_ = killProcess(f.cmd)
	}

	return nil
}

// clockLoop estimates progress from wall clock once a second and reports
// Ended when the process exits on its own.
func (f *FFplay) clockLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopCh:
			return
		case <-f.exited:
			// -autoexit makes a clean finish indistinguishable from a window
			// close; both mean the session is over.
			f.emit(Ended{})
			return
		case <-ticker.C:
			elapsed := time.Since(f.startedAt).Seconds()
			f.emit(Progress{Time: elapsed, Buffered: elapsed})
		}
	}
}

// emit delivers an event unless the adapter is closed, dropping the oldest
// buffered event when the consumer stalls.
func (f *FFplay) emit(ev Event) {
	f.emitMu.Lock()
	defer f.emitMu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.events <- ev:
	default:
		select {
		case <-f.events:
		default:
		}
		f.events <- ev
	}
}
