package subtitle

import (
	"sort"

	"github.com/nuvio-play/nuvioplay/adapter"
)

// Engine holds the external cue list and the arbitration state between
// external cues and the decoder's embedded subtitle tracks. It is not safe
// for concurrent use; the playback controller confines it to the dispatch
// goroutine.
type Engine struct {
	cues   []Cue
	offset float64

	externalActive bool
	// previously selected embedded track id, restored when external cues
	// are deactivated. Never index 0.
	rememberedInternal int
	internalSelected   int
}

// NewEngine creates an engine with no cues and embedded rendering disabled.
// Offset always starts at zero for a fresh session.
func NewEngine() *Engine {
	return &Engine{
		rememberedInternal: adapter.TextTrackDisabled,
		internalSelected:   adapter.TextTrackDisabled,
	}
}

// SetCues replaces the external cue list wholesale.
func (e *Engine) SetCues(cues []Cue) {
	sorted := make([]Cue, len(cues))
	copy(sorted, cues)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	e.cues = sorted
}

// HasCues reports whether an external cue list is loaded.
func (e *Engine) HasCues() bool {
	return len(e.cues) > 0
}

// SetOffset adjusts the live subtitle offset in seconds.
// Positive values show cues earlier relative to the media clock.
func (e *Engine) SetOffset(offset float64) {
	e.offset = offset
}

// Offset returns the current live offset.
func (e *Engine) Offset() float64 {
	return e.offset
}

// ActiveAt returns the cue containing the adjusted position, if any.
// Lookup is a binary search over the sorted cue list.
func (e *Engine) ActiveAt(t float64) (Cue, bool) {
	if !e.externalActive || len(e.cues) == 0 {
		return Cue{}, false
	}

	adjusted := t + e.offset

	// First cue starting after the adjusted position; the candidate is the
	// one before it.
	i := sort.Search(len(e.cues), func(i int) bool {
		return e.cues[i].Start > adjusted
	})
	if i == 0 {
		return Cue{}, false
	}

	cue := e.cues[i-1]
	if adjusted >= cue.Start && adjusted <= cue.End {
		return cue, true
	}
	return Cue{}, false
}

// ExternalActive reports whether external cues are the live subtitle source.
func (e *Engine) ExternalActive() bool {
	return e.externalActive
}

// InternalSelected returns the embedded track id the decoder should render,
// or the disabled sentinel.
func (e *Engine) InternalSelected() int {
	return e.internalSelected
}

// ActivateExternal switches rendering to the external cue list.
// The currently selected embedded track is remembered and the returned id
// (the disabled sentinel) must be pushed to the decoder.
func (e *Engine) ActivateExternal() (decoderTrack int) {
	if !e.externalActive {
		e.rememberedInternal = e.internalSelected
		e.externalActive = true
	}
	e.internalSelected = adapter.TextTrackDisabled
	return adapter.TextTrackDisabled
}

// DeactivateExternal switches rendering back to the embedded track that was
// active before external cues took over, never to track index 0.
func (e *Engine) DeactivateExternal() (decoderTrack int) {
	if e.externalActive {
		e.externalActive = false
		e.internalSelected = e.rememberedInternal
	}
	return e.internalSelected
}

// SelectInternal records an explicit embedded track selection, disabling
// external cues.
func (e *Engine) SelectInternal(id int) (decoderTrack int) {
	e.externalActive = false
	e.internalSelected = id
	e.rememberedInternal = id
	return id
}
