// Package signal holds the bit-level pieces of the optical link: code
// validation, frame luminance, hysteresis classification and code matching.
package signal

import (
	"errors"
	"fmt"
)

// ErrInvalidCodeFormat is returned for codes that are empty or contain
// anything other than '0' and '1'.
var ErrInvalidCodeFormat = errors.New("invalid binary code: must contain only 0s and 1s")

// ValidateCode checks that code is a non-empty string of '0' and '1'.
func ValidateCode(code string) error {
	if code == "" {
		return fmt.Errorf("%w: empty code", ErrInvalidCodeFormat)
	}
	for i := 0; i < len(code); i++ {
		if code[i] != '0' && code[i] != '1' {
			return fmt.Errorf("%w: unexpected %q at position %d", ErrInvalidCodeFormat, code[i], i)
		}
	}
	return nil
}

const (
	// BaseFPS is the rate a single bit spans exactly one frame at.
	BaseFPS = 30
	// AssumedTransmitterFPS is the rate the receiver derives its bit duration from.
	AssumedTransmitterFPS = 60
)

// BitDurationMs returns how long one bit is held at the given display rate:
// one frame, stretched to whole multiples of frames above BaseFPS.
func BitDurationMs(fps float64) float64 {
	if fps <= 0 {
		return 0
	}
	frameMs := 1000 / fps
	frames := int(fps / BaseFPS)
	if frames < 1 {
		frames = 1
	}
	return frameMs * float64(frames)
}
