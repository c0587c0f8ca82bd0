package signal

const (
	// DefaultThreshold is the brightness midpoint between dark and light.
	DefaultThreshold = 128
	// HysteresisMargin is added to or subtracted from the threshold once a
	// previous bit is known.
	HysteresisMargin = 20
)

// ClassifierState remembers the last emitted bit.
type ClassifierState int

const (
	StateUnknown ClassifierState = iota
	StateLastWasZero
	StateLastWasOne
)

func (s ClassifierState) String() string {
	switch s {
	case StateLastWasZero:
		return "last-0"
	case StateLastWasOne:
		return "last-1"
	default:
		return "unknown"
	}
}

// Classifier turns mean brightness values into bits with hysteresis: after a
// 0 the next sample must rise above threshold+margin to read as 1, after a 1
// it must fall below threshold-margin to read as 0.
type Classifier struct {
	threshold float64
	state     ClassifierState
}

func NewClassifier(threshold float64) *Classifier {
	return &Classifier{threshold: threshold}
}

func (c *Classifier) State() ClassifierState {
	return c.state
}

// Classify returns '0' or '1' for the mean brightness of one bit window and
// updates the state accordingly.
func (c *Classifier) Classify(mean float64) byte {
	high := c.threshold + HysteresisMargin
	low := c.threshold - HysteresisMargin

	var bit byte
	switch c.state {
	case StateLastWasZero:
		bit = '0'
		if mean > high {
			bit = '1'
		}
	case StateLastWasOne:
		bit = '1'
		if mean < low {
			bit = '0'
		}
	default:
		bit = '0'
		if mean > c.threshold {
			bit = '1'
		}
	}

	if bit == '1' {
		c.state = StateLastWasOne
	} else {
		c.state = StateLastWasZero
	}
	return bit
}

func (c *Classifier) Reset() {
	c.state = StateUnknown
}
