// Package logic contains the pure button and LED state machines.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Sampling cadence is owned by the caller; time is injected where needed.
package logic

import (
	"fmt"
	"strings"
	"time"
)

// ButtonState is the debounced logical state of an input line.
type ButtonState string

const (
	ButtonPressed  ButtonState = "PRESSED"
	ButtonReleased ButtonState = "RELEASED"
)

// LedState is the logical state of an output line.
// It is deliberately a separate type from ButtonState.
type LedState string

const (
	LedOn  LedState = "ON"
	LedOff LedState = "OFF"
)

// Event is the edge reported by a single SampledInput update.
type Event string

const (
	EventPress   Event = "PRESS"
	EventRelease Event = "RELEASE"
	EventNone    Event = "NONE"
)

// Polarity maps a physical line level to a logical button state.
type Polarity string

const (
	// ActiveLow means the switch pulls the line to ground when pressed.
	ActiveLow Polarity = "active-low"
	// ActiveHigh means the switch drives the line high when pressed.
	ActiveHigh Polarity = "active-high"
)

// ParsePolarity parses "active-low" or "active-high" (case-insensitive).
func ParsePolarity(s string) (Polarity, error) {
	switch Polarity(strings.ToLower(strings.TrimSpace(s))) {
	case ActiveLow:
		return ActiveLow, nil
	case ActiveHigh:
		return ActiveHigh, nil
	}
	return "", fmt.Errorf("unknown polarity %q (want %q or %q)", s, ActiveLow, ActiveHigh)
}

// ToButtonState converts a raw line level into a button state.
// Unknown polarities are treated as active-low.
func ToButtonState(level bool, p Polarity) ButtonState {
	pressed := !level
	if p == ActiveHigh {
		pressed = level
	}
	if pressed {
		return ButtonPressed
	}
	return ButtonReleased
}

// ToPhysicalLevel converts an LED state into the level to drive: ON is high.
func ToPhysicalLevel(s LedState) bool {
	return s == LedOn
}

// Bounds is an inclusive range of valid durations.
type Bounds struct {
	Min time.Duration
	Max time.Duration
}

// Debounce and blink delay profiles.
var (
	DebounceBounds = Bounds{Min: 1 * time.Millisecond, Max: 100 * time.Millisecond}
	BlinkBounds    = Bounds{Min: 10 * time.Millisecond, Max: 10 * time.Second}
)

// Clamp returns d coerced into [b.Min, b.Max].
func (b Bounds) Clamp(d time.Duration) time.Duration {
	if d < b.Min {
		return b.Min
	}
	if d > b.Max {
		return b.Max
	}
	return d
}

// Contains reports whether d is already within bounds.
func (b Bounds) Contains(d time.Duration) bool {
	return d >= b.Min && d <= b.Max
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Presses   uint64
}
