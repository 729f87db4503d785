package adapter

// Event is a notification pushed by a decoder backend.
// Delivery is asynchronous and may lag behind the commands that caused it;
// consumers must tolerate stale events (e.g. a progress report emitted before
// a just-issued seek).
type Event interface {
	event()
}

// Loaded reports that the decoder opened the source and determined its shape.
// Duration may be 0 when the backend cannot determine it (live or one-shot sources).
type Loaded struct {
	Duration float64
	Width    int
	Height   int
	Audio    []Track
	Text     []Track
}

// Progress reports the decoder's current position and buffered horizon in seconds.
type Progress struct {
	Time     float64
	Buffered float64
}

// Buffering reports stall state transitions.
type Buffering struct {
	Active bool
}

// Failed reports a decoder error. Code carries the backend-specific signature
// used for retry classification; Message is human-readable.
type Failed struct {
	Code    string
	Message string
}

// Ended reports natural end of stream.
type Ended struct{}

// TracksChanged reports that the decoder renegotiated its elementary streams.
// Track ids in the new lists bear no relation to ids from earlier lists.
type TracksChanged struct {
	Audio []Track
	Text  []Track
}

func (Loaded) event()        {}
func (Progress) event()      {}
func (Buffering) event()     {}
func (Failed) event()        {}
func (Ended) event()         {}
func (TracksChanged) event() {}
