package motion

import (
	"math"
	"time"
)

// PD is a proportional-derivative controller.  The derivative is taken per
// call, not per second, so it must be stepped at a fixed rate.
type PD struct {
	KP, KD float64

	prevError float64
	primed    bool
}

func NewPD(s ControllerSettings) *PD {
	return &PD{KP: s.KP, KD: s.KD}
}

func (c *PD) Update(err float64) float64 {
	var d float64
	if c.primed {
		d = err - c.prevError
	}
	c.prevError = err
	c.primed = true
	return c.KP*err + c.KD*d
}

func (c *PD) Reset() {
	c.prevError = 0
	c.primed = false
}

// Slew moves current towards target by at most maxChange.  A maxChange of
// zero or less means no limit.
func Slew(target, current, maxChange float64) float64 {
	if maxChange <= 0 {
		return target
	}
	change := target - current
	if change > maxChange {
		change = maxChange
	} else if change < -maxChange {
		change = -maxChange
	}
	return current + change
}

func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}

// ExitCondition reports done once the error has stayed within Range for
// Timeout.  Leaving the range restarts the clock.
type ExitCondition struct {
	Range   float64
	Timeout time.Duration

	inRangeSince time.Time
	done         bool
}

func (e *ExitCondition) Update(err float64, now time.Time) bool {
	if e.Range <= 0 {
		return false
	}
	if math.Abs(err) > e.Range {
		e.inRangeSince = time.Time{}
		return e.done
	}
	if e.inRangeSince.IsZero() {
		e.inRangeSince = now
	}
	if now.Sub(e.inRangeSince) >= e.Timeout {
		e.done = true
	}
	return e.done
}

func (e *ExitCondition) Done() bool {
	return e.done
}

func (e *ExitCondition) Reset() {
	e.inRangeSince = time.Time{}
	e.done = false
}

// Settler combines the small and large exit bands of one axis: the axis is
// settled as soon as either band is satisfied.
type Settler struct {
	Small, Large ExitCondition
}

func NewSettler(s ControllerSettings) *Settler {
	return &Settler{
		Small: ExitCondition{Range: s.SmallErrorRange, Timeout: s.SmallErrorTimeout},
		Large: ExitCondition{Range: s.LargeErrorRange, Timeout: s.LargeErrorTimeout},
	}
}

func (s *Settler) Update(err float64, now time.Time) bool {
	small := s.Small.Update(err, now)
	large := s.Large.Update(err, now)
	return small || large
}
