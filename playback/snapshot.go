package playback

import (
	"sync"

	"github.com/nuvio-play/nuvioplay/track"
)

// Snapshot is the immutable view of session state broadcast to subscribers
// on every change. UI layers render from snapshots only and send commands
// back through the controller's methods.
type Snapshot struct {
	State State

	Time     float64
	Duration float64
	Buffered float64
	Paused   bool

	Buffering   bool
	NonSeekable bool

	Audio           []track.Descriptor
	Text            []track.Descriptor
	SelectedAudioID int
	SelectedTextID  int

	ExternalSubtitles bool
	SubtitleOffset    float64
	CueText           string

	Speed      float64
	Boosted    bool
	BoostFlash bool

	ResumeFrom    float64
	ResumeOffered bool

	Err *Error
}

// subscribers fan a snapshot stream out to any number of consumers.
// Slow consumers lose intermediate snapshots, never the latest one.
type subscribers struct {
	mu    sync.Mutex
	chans []chan Snapshot
}

// add registers a new subscriber channel.
func (s *subscribers) add() <-chan Snapshot {
	ch := make(chan Snapshot, 16)
	s.mu.Lock()
	s.chans = append(s.chans, ch)
	s.mu.Unlock()
	return ch
}

// broadcast delivers a snapshot to every subscriber, dropping the oldest
// buffered snapshot for consumers that fell behind.
func (s *subscribers) broadcast(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.chans {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// closeAll closes every subscriber channel on teardown.
func (s *subscribers) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.chans {
		close(ch)
	}
	s.chans = nil
}
