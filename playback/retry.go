package playback

import "time"

// retryBackoff is the delay schedule for silent startup retries. The fourth
// matching failure surfaces normally.
var retryBackoff = []time.Duration{
	4 * time.Second,
	8 * time.Second,
	12 * time.Second,
}

// retrySupervisor tracks silent startup retries. It only exists while the
// session has never reached Ready; the first successful load resets it.
type retrySupervisor struct {
	attempts int
}

// eligible reports whether a failure of the given kind should be retried
// silently instead of surfacing, and consumes one attempt if so.
func (r *retrySupervisor) eligible(kind ErrorKind) bool {
	if kind != ErrStartupTimeout {
		return false
	}
	if r.attempts >= len(retryBackoff) {
		return false
	}
	r.attempts++
	return true
}

// delay returns the backoff before the retry consumed by the last eligible
// call.
func (r *retrySupervisor) delay() time.Duration {
	i := r.attempts - 1
	if i < 0 {
		i = 0
	}
	if i >= len(retryBackoff) {
		i = len(retryBackoff) - 1
	}
	return retryBackoff[i]
}

// reset clears the attempt counter once a load reaches Ready.
func (r *retrySupervisor) reset() {
	r.attempts = 0
}
