package playback

import "github.com/nuvio-play/nuvioplay/util"

const (
	// seekEndMargin keeps seek targets off the very end of the stream,
	// where some decoders stall instead of finishing.
	seekEndMargin = 0.3
	// seekSettleTolerance is how close a progress report must land to the
	// target to count as seek completion.
	seekSettleTolerance = 1.5
)

// seekCoordinator tracks the single in-flight seek and the session's
// seekability classification. Requests while one is pending are dropped,
// not queued.
type seekCoordinator struct {
	pending bool
	target  float64

	nonSeekable bool
}

// clampTarget bounds a seek target to the playable range.
func clampTarget(target, duration float64) float64 {
	if duration <= 0 {
		if target < 0 {
			return 0
		}
		return target
	}

	max := duration - seekEndMargin
	if max < 0 {
		max = 0
	}
	return util.Clamp(target, 0, max)
}

// begin registers a new in-flight seek. Returns false when one is already
// pending or the source is known to be non-seekable.
func (s *seekCoordinator) begin(target float64) bool {
	if s.pending || s.nonSeekable {
		return false
	}
	s.pending = true
	s.target = target
	return true
}

// settled reports whether a progress report at the given position completes
// the in-flight seek, clearing it if so.
func (s *seekCoordinator) settled(position float64) bool {
	if !s.pending {
		return false
	}

	diff := position - s.target
	if diff < 0 {
		diff = -diff
	}
	if diff > seekSettleTolerance {
		return false
	}

	s.pending = false
	return true
}

// expire force-clears the in-flight seek after the fallback timeout.
// Returns true when the decoder never moved near the target, which
// classifies the source as non-seekable.
func (s *seekCoordinator) expire(position float64) (unmoved bool) {
	if !s.pending {
		return false
	}
	s.pending = false

	diff := position - s.target
	if diff < 0 {
		diff = -diff
	}
	if diff > seekSettleTolerance {
		s.nonSeekable = true
		return true
	}
	return false
}
