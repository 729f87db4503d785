package playback

import "strings"

// ErrorKind classifies decoder failures by how the controller reacts to them.
type ErrorKind string

const (
	// ErrStartupTimeout is the source-not-ready signature eligible for
	// silent retry while the session never reached Ready.
	ErrStartupTimeout ErrorKind = "startup_timeout"
	// ErrCodecUnsupportedAudio triggers the silent audio track fallback.
	ErrCodecUnsupportedAudio ErrorKind = "codec_unsupported_audio"
	// ErrGenericPlayback surfaces to the user.
	ErrGenericPlayback ErrorKind = "generic_playback"
)

// Error is a classified decoder failure as shown in the session snapshot.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// startupTimeoutMarkers are code/message fragments emitted by decoders when
// a stream source is reachable but not yet serving data.
var startupTimeoutMarkers = []string{
	"timeout",
	"timed out",
	"source not ready",
	"22001",
	"behindlivewindow",
}

// audioCodecMarkers are fragments emitted when the audio elementary stream
// cannot be decoded on this device.
var audioCodecMarkers = []string{
	"audio decoder",
	"audio codec",
	"audiosink",
	"audio_sink",
	"decoder_init_failed",
	"4001",
}

// classify maps a raw decoder failure onto the controller's taxonomy.
func classify(code, message string) ErrorKind {
	haystack := strings.ToLower(code + " " + message)

	for _, marker := range audioCodecMarkers {
		if strings.Contains(haystack, marker) {
			return ErrCodecUnsupportedAudio
		}
	}

	for _, marker := range startupTimeoutMarkers {
		if strings.Contains(haystack, marker) {
			return ErrStartupTimeout
		}
	}

	return ErrGenericPlayback
}
