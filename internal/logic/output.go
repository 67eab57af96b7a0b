package logic

import "time"

// DefaultBlinkPeriod is the on/off duration used by the free-running blinker.
const DefaultBlinkPeriod = 500 * time.Millisecond

// OutputCoupler holds the logical level of an output line. It is driven
// either by Toggle (free-running blink) or by input events (LED mirrors
// button). Like SampledInput it has a single owner and no locking.
type OutputCoupler struct {
	level  LedState
	period time.Duration
}

// NewOutputCoupler creates an OFF coupler. The period is clamped into
// BlinkBounds; the coupler never sleeps on it, the caller does.
func NewOutputCoupler(period time.Duration) *OutputCoupler {
	return &OutputCoupler{
		level:  LedOff,
		period: BlinkBounds.Clamp(period),
	}
}

// Toggle flips ON and OFF and returns the new level.
func (o *OutputCoupler) Toggle() LedState {
	if o.level == LedOn {
		o.level = LedOff
	} else {
		o.level = LedOn
	}
	return o.level
}

// SetFromEvent maps PRESS to ON and RELEASE to OFF. Any other event leaves
// the level unchanged.
func (o *OutputCoupler) SetFromEvent(e Event) LedState {
	switch e {
	case EventPress:
		o.level = LedOn
	case EventRelease:
		o.level = LedOff
	}
	return o.level
}

// HandleEvent lets the coupler be attached as an EventSink.
func (o *OutputCoupler) HandleEvent(e Event) {
	o.SetFromEvent(e)
}

// Set assigns the level directly.
func (o *OutputCoupler) Set(s LedState) {
	if s == LedOn {
		o.level = LedOn
		return
	}
	o.level = LedOff
}

func (o *OutputCoupler) Level() LedState {
	return o.level
}

func (o *OutputCoupler) IsOn() bool {
	return o.level == LedOn
}

func (o *OutputCoupler) IsOff() bool {
	return o.level == LedOff
}

// Period returns the blink period.
func (o *OutputCoupler) Period() time.Duration {
	return o.period
}

// SetPeriod stores d clamped into BlinkBounds.
func (o *OutputCoupler) SetPeriod(d time.Duration) {
	o.period = BlinkBounds.Clamp(d)
}
