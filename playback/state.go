// Package playback composes the decoder adapter, track selection, subtitles,
// watch progress and speed control into a single session controller. All
// session state is owned by one dispatch goroutine; commands and decoder
// events are serialized through it, and every timer posts an epoch-tagged
// closure so stale callbacks from a superseded load or seek are discarded.
package playback

// State is the lifecycle phase of a playback session.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StatePlaying
	StatePaused
	StateSeeking
	StateEnded
	StateError
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateSeeking:
		return "seeking"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// active reports whether the session is in a phase where the decoder is
// producing frames and progress should be tracked.
func (s State) active() bool {
	return s == StatePlaying || s == StatePaused || s == StateSeeking
}
