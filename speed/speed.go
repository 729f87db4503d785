// Package speed implements playback rate presets and the hold-to-boost
// gesture with its exactly-once restore semantics.
package speed

import (
	"github.com/spf13/viper"

	"github.com/nuvio-play/nuvioplay/key"
)

// Presets is the rate cycle offered to the user, in cycling order.
var Presets = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0}

// Controller tracks the session's playback rate and the transient boost
// state. It is not safe for concurrent use; the playback controller confines
// it to the dispatch goroutine.
type Controller struct {
	current float64

	boosted  bool
	original float64
}

// NewController creates a controller at normal speed.
func NewController() *Controller {
	return &Controller{current: 1.0}
}

// Current returns the rate the decoder should be running at.
func (c *Controller) Current() float64 {
	return c.current
}

// Boosted reports whether hold-to-boost is active.
func (c *Controller) Boosted() bool {
	return c.boosted
}

// Set applies an explicit rate. Setting a rate while boosted cancels the
// boost; the explicit choice becomes the new base.
func (c *Controller) Set(rate float64) float64 {
	c.boosted = false
	c.current = rate
	return c.current
}

// Cycle advances to the next preset. A rate between presets moves to the
// first preset above it, wrapping to the slowest. Cycling during a boost
// cancels the boost and advances from the remembered base rate, not the
// transient boost rate.
func (c *Controller) Cycle() float64 {
	base := c.current
	if c.boosted {
		base = c.original
	}
	c.boosted = false

	for _, preset := range Presets {
		if preset > base+1e-9 {
			c.current = preset
			return c.current
		}
	}

	c.current = Presets[0]
	return c.current
}

// ActivateBoost remembers the current rate and applies the configured boost.
// Activating while already boosted changes nothing.
func (c *Controller) ActivateBoost() float64 {
	if c.boosted {
		return c.current
	}

	boost := viper.GetFloat64(key.SpeedBoost)
	if boost <= 0 {
		boost = 2.0
	}

	c.original = c.current
	c.current = boost
	c.boosted = true
	return c.current
}

// DeactivateBoost restores the rate remembered at activation.
// The restore happens exactly once: a second deactivation, or one without an
// active boost, is a no-op.
func (c *Controller) DeactivateBoost() (float64, bool) {
	if !c.boosted {
		return c.current, false
	}

	c.boosted = false
	c.current = c.original
	return c.current, true
}
