// Package transmit drives the display side of the link. An Encoder measures
// the refresh rate it actually gets, then maps elapsed time onto a looping
// bit index; the display shows white for a 1 and black for a 0.
package transmit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/verte-zerg/lumalink/internal/clock"
	"github.com/verte-zerg/lumalink/internal/logging"
	"github.com/verte-zerg/lumalink/internal/signal"
)

const (
	DefaultFPS        = 60
	MinFPS            = 30
	MaxFPS            = 120
	CalibrationFrames = 60
)

// Color is a display color in #RRGGBB form. It implements color.Color.
type Color string

const (
	Light Color = "#FFFFFF"
	Dark  Color = "#000000"
)

func (c Color) RGBA() (r, g, b, a uint32) {
	s := string(c)
	if len(s) != 7 || s[0] != '#' {
		return 0, 0, 0, 0xffff
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return 0, 0, 0, 0xffff
	}
	r = uint32(v>>16&0xff) * 0x101
	g = uint32(v>>8&0xff) * 0x101
	b = uint32(v&0xff) * 0x101
	return r, g, b, 0xffff
}

// State is the observable transmission state.
type State struct {
	Active      bool
	BitIndex    int
	Bit         string
	MeasuredFPS float64
}

type Option func(*Encoder)

func WithLogger(l logging.Logger) Option {
	return func(e *Encoder) {
		if l != nil {
			e.log = l
		}
	}
}

// WithOnChange is called after the bit or the measured rate changes, and on
// start and stop. It runs outside the encoder's lock.
func WithOnChange(fn func(State)) Option {
	return func(e *Encoder) { e.onChange = fn }
}

// Encoder loops a binary code onto the display.
type Encoder struct {
	clock    clock.FrameClock
	log      logging.Logger
	onChange func(State)

	mu         sync.Mutex
	gen        uint64
	pending    clock.ID
	hasPending bool
	state      State
	code       string
	fps        float64
	bit        time.Duration
	epoch      time.Duration
	fpsStart   time.Duration
	frameCount int
}

func New(clk clock.FrameClock, opts ...Option) *Encoder {
	e := &Encoder{
		clock: clk,
		log:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start validates code, stops any running transmission, calibrates the frame
// rate and begins looping. It blocks for the calibration frames; cancelling
// ctx aborts calibration. targetFPS of 0 means DefaultFPS.
func (e *Encoder) Start(ctx context.Context, code string, targetFPS float64) error {
	if err := signal.ValidateCode(code); err != nil {
		return err
	}
	e.Stop()

	if targetFPS <= 0 {
		targetFPS = DefaultFPS
	}
	target := ClampFPS(targetFPS)

	measured, err := Calibrate(ctx, e.clock, CalibrationFrames)
	if err != nil {
		return fmt.Errorf("failed to calibrate frame rate: %w", err)
	}
	effective := ClampFPS(math.Min(measured, target))

	e.mu.Lock()
	e.stopLocked()
	gen := e.gen
	e.code = code
	e.fps = effective
	bitMs := signal.BitDurationMs(effective)
	e.bit = time.Duration(bitMs * float64(time.Millisecond))
	now := e.clock.Now()
	e.epoch = now
	e.fpsStart = now
	e.frameCount = 0
	e.state = State{Active: true, BitIndex: 0, Bit: code[:1]}
	e.log.Log("transmit_started",
		"code_bits", len(code),
		"measured_fps", measured,
		"fps", effective,
		"bit_ms", bitMs,
	)
	e.frameLocked(gen, now)
	snap := e.state
	e.mu.Unlock()

	e.notify(snap)
	return nil
}

// Stop cancels the pending frame and clears the state. It is safe to call
// when nothing is running.
func (e *Encoder) Stop() {
	e.mu.Lock()
	wasActive := e.stopLocked()
	snap := e.state
	e.mu.Unlock()

	if wasActive {
		e.log.Log("transmit_stopped")
		e.notify(snap)
	}
}

func (e *Encoder) stopLocked() bool {
	e.gen++
	if e.hasPending {
		e.clock.Cancel(e.pending)
		e.hasPending = false
	}
	wasActive := e.state.Active
	e.state = State{}
	e.code = ""
	e.fps = 0
	e.bit = 0
	e.frameCount = 0
	return wasActive
}

func (e *Encoder) onFrame(gen uint64) clock.Callback {
	return func(now time.Duration) {
		e.mu.Lock()
		changed := e.frameLocked(gen, now)
		snap := e.state
		e.mu.Unlock()

		if changed {
			e.notify(snap)
		}
	}
}

// frameLocked advances one refresh of the run identified by gen and
// schedules the next one. It reports whether the visible state changed.
func (e *Encoder) frameLocked(gen uint64, now time.Duration) bool {
	if !e.state.Active || gen != e.gen {
		return false
	}

	changed := false
	idx := IndexAt(now-e.epoch, e.bit, len(e.code))
	if idx != e.state.BitIndex {
		e.state.BitIndex = idx
		e.state.Bit = e.code[idx : idx+1]
		changed = true
		e.log.Log("bit_changed", "index", idx, "bit", e.state.Bit)
	}

	e.frameCount++
	if now-e.fpsStart >= time.Second {
		e.state.MeasuredFPS = float64(e.frameCount)
		e.frameCount = 0
		e.fpsStart = now
		changed = true
	}

	e.pending = e.clock.Request(e.onFrame(gen))
	e.hasPending = true
	return changed
}

func (e *Encoder) notify(s State) {
	if e.onChange != nil {
		e.onChange(s)
	}
}

// DisplayColor is Light while a 1 is being sent and Dark otherwise.
func (e *Encoder) DisplayColor() Color {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Bit == "1" {
		return Light
	}
	return Dark
}

func (e *Encoder) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// BitDuration is how long each bit is held in the current run.
func (e *Encoder) BitDuration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bit
}

// FPS is the effective frame rate of the current run.
func (e *Encoder) FPS() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fps
}

func (e *Encoder) Code() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.code
}

// IndexAt returns the bit index shown after elapsed time, looping over a code
// of codeLen bits held for bit each.
func IndexAt(elapsed, bit time.Duration, codeLen int) int {
	if codeLen <= 0 || bit <= 0 || elapsed < 0 {
		return 0
	}
	return int(elapsed/bit) % codeLen
}

func ClampFPS(fps float64) float64 {
	return math.Max(MinFPS, math.Min(MaxFPS, fps))
}
