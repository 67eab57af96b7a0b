package logic

import "time"

// Default input parameters.
const (
	DefaultThreshold      uint32 = 5
	DefaultSampleInterval        = 5 * time.Millisecond
)

// InputConfig parameterises a SampledInput.
type InputConfig struct {
	// Threshold is the number of consecutive identical samples required
	// before the debounced state may change. 0 and 1 commit immediately.
	Threshold uint32
	// SampleInterval is the cadence the caller polls at. Informational only.
	SampleInterval time.Duration
	// Polarity is applied by Update to raw line levels.
	Polarity Polarity
}

// DefaultInputConfig returns the default sampling parameters for an
// active-low push button.
func DefaultInputConfig() InputConfig {
	return InputConfig{
		Threshold:      DefaultThreshold,
		SampleInterval: DefaultSampleInterval,
		Polarity:       ActiveLow,
	}
}

// SampledInput is a sample-count debounce filter with edge detection.
// It is not safe for concurrent use; it has exactly one owner, the poll loop.
type SampledInput struct {
	debounced ButtonState
	raw       ButtonState
	run       uint32
	threshold uint32
	interval  time.Duration
	polarity  Polarity
	presses   uint64
}

// NewSampledInput creates a released input. The sample interval is clamped
// into DebounceBounds.
func NewSampledInput(cfg InputConfig) *SampledInput {
	p := cfg.Polarity
	if p == "" {
		p = ActiveLow
	}
	return &SampledInput{
		debounced: ButtonReleased,
		raw:       ButtonReleased,
		threshold: cfg.Threshold,
		interval:  DebounceBounds.Clamp(cfg.SampleInterval),
		polarity:  p,
	}
}

// Update feeds one raw line level, normalised with the configured polarity.
func (s *SampledInput) Update(level bool) Event {
	return s.UpdateState(ToButtonState(level, s.polarity))
}

// UpdateState feeds one already-normalised sample and returns the edge, if any.
//
// A run counts the consecutive samples equal to the raw state, including the
// sample that started it, and saturates at the threshold. Any deviation starts
// a new run, so bursts of alternating samples never accumulate.
func (s *SampledInput) UpdateState(state ButtonState) Event {
	if state == s.raw {
		if s.run < s.threshold {
			s.run++
		}
	} else {
		s.raw = state
		s.run = 0
		if s.threshold > 0 {
			s.run = 1
		}
	}

	if s.run < s.threshold || s.raw == s.debounced {
		return EventNone
	}

	old := s.debounced
	s.debounced = s.raw
	switch {
	case old == ButtonReleased && s.debounced == ButtonPressed:
		s.presses++
		return EventPress
	case old == ButtonPressed && s.debounced == ButtonReleased:
		return EventRelease
	}
	return EventNone
}

// State returns the debounced state.
func (s *SampledInput) State() ButtonState {
	return s.debounced
}

// RawState returns the most recently observed sample.
func (s *SampledInput) RawState() ButtonState {
	return s.raw
}

// RunLength returns the current run of samples equal to RawState.
func (s *SampledInput) RunLength() uint32 {
	return s.run
}

func (s *SampledInput) Threshold() uint32 {
	return s.threshold
}

func (s *SampledInput) SampleInterval() time.Duration {
	return s.interval
}

func (s *SampledInput) Polarity() Polarity {
	return s.polarity
}

// PressCount returns the number of press edges since creation or Reset.
func (s *SampledInput) PressCount() uint64 {
	return s.presses
}

func (s *SampledInput) IsPressed() bool {
	return s.debounced == ButtonPressed
}

func (s *SampledInput) IsReleased() bool {
	return s.debounced == ButtonReleased
}

// SetSampleInterval stores d clamped into DebounceBounds.
func (s *SampledInput) SetSampleInterval(d time.Duration) {
	s.interval = DebounceBounds.Clamp(d)
}

// SetThreshold changes the threshold. A run longer than the new threshold
// is cut back to it; the next sample decides whether a transition commits.
func (s *SampledInput) SetThreshold(n uint32) {
	s.threshold = n
	if s.run > n {
		s.run = n
	}
}

// Reset returns the input to its initial released state. Threshold, interval
// and polarity are kept.
func (s *SampledInput) Reset() {
	s.debounced = ButtonReleased
	s.raw = ButtonReleased
	s.run = 0
	s.presses = 0
}
