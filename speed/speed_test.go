package speed

import (
	"testing"

	"github.com/spf13/viper"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/nuvio-play/nuvioplay/key"
)

func TestCycle(t *testing.T) {
	Convey("Cycle", t, func() {
		c := NewController()

		Convey("Should advance through the presets in order", func() {
			So(c.Cycle(), ShouldEqual, 1.25)
			So(c.Cycle(), ShouldEqual, 1.5)
			So(c.Cycle(), ShouldEqual, 1.75)
			So(c.Cycle(), ShouldEqual, 2.0)
		})

		Convey("Should wrap from the fastest to the slowest preset", func() {
			c.Set(2.0)
			So(c.Cycle(), ShouldEqual, 0.5)
		})

		Convey("Should snap an off-preset rate to the next preset above", func() {
			c.Set(1.1)
			So(c.Cycle(), ShouldEqual, 1.25)
		})
	})
}

func TestBoost(t *testing.T) {
	viper.Set(key.SpeedBoost, 2.0)

	Convey("Hold-to-boost", t, func() {
		c := NewController()

		Convey("Should apply the boost and restore the remembered rate", func() {
			c.Set(1.25)
			So(c.ActivateBoost(), ShouldEqual, 2.0)
			So(c.Boosted(), ShouldBeTrue)

			rate, restored := c.DeactivateBoost()
			So(restored, ShouldBeTrue)
			So(rate, ShouldEqual, 1.25)
		})

		Convey("Should restore exactly once", func() {
			c.Set(1.5)
			c.ActivateBoost()

			_, restored := c.DeactivateBoost()
			So(restored, ShouldBeTrue)

			rate, restored := c.DeactivateBoost()
			So(restored, ShouldBeFalse)
			So(rate, ShouldEqual, 1.5)
		})

		Convey("Activating twice should not clobber the remembered rate", func() {
			c.Set(1.25)
			c.ActivateBoost()
			c.ActivateBoost()

			rate, restored := c.DeactivateBoost()
			So(restored, ShouldBeTrue)
			So(rate, ShouldEqual, 1.25)
		})

		Convey("Cycling during a boost advances from the remembered base", func() {
			c.Set(1.25)
			c.ActivateBoost()

			So(c.Cycle(), ShouldEqual, 1.5)
			So(c.Boosted(), ShouldBeFalse)

			_, restored := c.DeactivateBoost()
			So(restored, ShouldBeFalse)
		})

		Convey("An explicit rate change cancels the boost", func() {
			c.ActivateBoost()
			So(c.Set(1.0), ShouldEqual, 1.0)

			_, restored := c.DeactivateBoost()
			So(restored, ShouldBeFalse)
		})

		Convey("Deactivation without activation is a no-op", func() {
			rate, restored := c.DeactivateBoost()
			So(restored, ShouldBeFalse)
			So(rate, ShouldEqual, 1.0)
		})
	})
}
