// Package gpio provides single-line GPIO input and output with hardware
// abstraction. The real implementation uses the Linux GPIO character device.
// The fake implementations allow testing without hardware.
//
// Levels are physical: true means the line is high. Mapping levels to
// pressed/released or ON/OFF is done by package logic.
package gpio

// Reader reads the level of one input line.
type Reader interface {
	// Read returns the physical level of the line.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Writer drives the level of one output line.
type Writer interface {
	// Set drives the line high (true) or low (false).
	Set(high bool) error

	// Close releases GPIO resources.
	Close() error
}

// Bias selects the internal resistor applied to an input line.
type Bias int

const (
	BiasPullUp Bias = iota
	BiasPullDown
	BiasDisabled
)

func (b Bias) String() string {
	switch b {
	case BiasPullUp:
		return "pull-up"
	case BiasPullDown:
		return "pull-down"
	case BiasDisabled:
		return "disabled"
	}
	return "unknown"
}

// BiasForActiveLow returns the bias that holds an idle switch released:
// pull-up for active-low wiring, pull-down for active-high.
func BiasForActiveLow(activeLow bool) Bias {
	if activeLow {
		return BiasPullUp
	}
	return BiasPullDown
}
