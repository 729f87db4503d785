// Package adapter defines a uniform command/event interface over native media decoders.
// Each backend wraps a structurally different decoder: mpv exposes a JSON-IPC socket
// with push events, vlc is driven through its HTTP interface with a polling loop, and
// ffplay is a one-shot process with no control channel at all. The playback controller
// treats all three as black boxes behind this interface.
package adapter

import (
	"fmt"
)

// Kind identifies a decoder backend implementation.
type Kind string

const (
	KindMPV    Kind = "mpv"
	KindVLC    Kind = "vlc"
	KindFFplay Kind = "ffplay"
)

// TextTrackDisabled is the sentinel track id that turns embedded subtitle rendering off.
// Restoring embedded rendering requires the previously selected id, never index 0.
const TextTrackDisabled = -1

// Track is the raw per-backend description of a selectable elementary stream.
// IDs are backend-local and unstable: they renumber across reloads and differ
// between backends for the same media. Never persist them.
type Track struct {
	ID       int
	Title    string
	Lang     string
	Codec    string
	Channels int
	Selected bool
}

// Adapter encapsulates the required capabilities for a media decoder backend.
// Commands are asynchronous: completion and state changes are reported on the
// event stream, never as return values.
type Adapter interface {
	// Kind returns the backend identifier.
	Kind() Kind

	// Load starts the decoder on the given URI with the specified HTTP headers.
	Load(uri string, headers map[string]string) error

	// Play resumes decoding.
	Play() error

	// Pause suspends decoding.
	Pause() error

	// Seek transitions the playback position to an absolute timestamp in seconds.
	// Backends without a control channel silently ignore seeks; the caller must
	// detect the unmoved position itself.
	Seek(seconds float64) error

	// SetAudioTrack switches the active audio elementary stream.
	SetAudioTrack(id int) error

	// SetTextTrack switches the active embedded subtitle stream.
	// TextTrackDisabled turns embedded rendering off.
	SetTextTrack(id int) error

	// SetRate adjusts the playback speed multiplier.
	SetRate(rate float64) error

	// Tracks retrieves the current audio and text track lists.
	Tracks() (audio []Track, text []Track, err error)

	// Events returns the decoder event stream. The channel is closed on teardown.
	Events() <-chan Event

	// Close terminates the decoder and releases all associated system resources.
	Close() error
}

// New creates a decoder adapter by backend kind.
func New(kind Kind) (Adapter, error) {
	switch kind {
	case KindMPV:
		return NewMPV(), nil
	case KindVLC:
		return NewVLC(), nil
	case KindFFplay:
		return NewFFplay(), nil
	default:
		return nil, fmt.Errorf("unknown decoder backend %q", kind)
	}
}
