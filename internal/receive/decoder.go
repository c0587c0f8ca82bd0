// Package receive turns camera frames into bits. A Decoder samples the
// brightness of every frame, averages the samples of one bit period,
// classifies the mean with hysteresis and watches the decoded history for an
// expected code.
package receive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/verte-zerg/lumalink/internal/capture"
	"github.com/verte-zerg/lumalink/internal/clock"
	"github.com/verte-zerg/lumalink/internal/logging"
	"github.com/verte-zerg/lumalink/internal/signal"
)

var (
	ErrMissingCaptureSurface = errors.New("video feed and drawing surface are required")
	ErrCameraAcquisition     = errors.New("failed to acquire camera")
)

// SampleFraction is the part of a bit period that must be covered by a
// window before it is classified.
const SampleFraction = 0.8

type MatchResult int

const (
	MatchNone MatchResult = iota
	MatchGranted
)

func (m MatchResult) String() string {
	if m == MatchGranted {
		return "granted"
	}
	return "none"
}

// Options configure one receiving run.
type Options struct {
	// ExpectedCode is matched against the decoded bits; empty disables matching.
	ExpectedCode string
	// Threshold is the brightness midpoint; 0 means signal.DefaultThreshold.
	Threshold float64
	// CameraID selects a device; empty lets the camera pick.
	CameraID string
}

// Snapshot is the observable receiver state.
type Snapshot struct {
	Active     bool
	Brightness float64
	LastBit    string
	Bitstream  string
	FPS        float64
	Match      MatchResult
	Classifier signal.ClassifierState
	Frames     int
}

// BitEvent describes one classified bit window.
type BitEvent struct {
	Seq     int
	At      time.Duration
	Mean    float64
	Samples int
	Bit     string
}

type Option func(*Decoder)

func WithLogger(l logging.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.log = l
		}
	}
}

// WithOnChange is called after every processed frame and on stop or reset.
func WithOnChange(fn func(Snapshot)) Option {
	return func(d *Decoder) { d.onChange = fn }
}

// WithOnBit is called for every decoded bit.
func WithOnBit(fn func(BitEvent)) Option {
	return func(d *Decoder) { d.onBit = fn }
}

// WithOnMatch receives the state at the moment the expected code was found,
// with Match set to MatchGranted. The decoder has already stopped.
func WithOnMatch(fn func(Snapshot)) Option {
	return func(d *Decoder) { d.onMatch = fn }
}

// Decoder reads bits from a camera feed.
type Decoder struct {
	clock    clock.FrameClock
	camera   capture.Camera
	log      logging.Logger
	onChange func(Snapshot)
	onBit    func(BitEvent)
	onMatch  func(Snapshot)

	mu         sync.Mutex
	gen        uint64
	pending    clock.ID
	hasPending bool

	feed    *capture.Feed
	surface *capture.Surface
	stream  capture.Stream

	expected   string
	classifier *signal.Classifier
	bits       *signal.Bitstream
	bitMs      float64
	window     []float64
	anchor     time.Duration
	startedAt  time.Duration
	seq        int

	active     bool
	brightness float64
	lastBit    string
	fps        float64
	match      MatchResult
	frames     int
	frameCount int
	fpsStart   time.Duration
}

func New(clk clock.FrameClock, cam capture.Camera, opts ...Option) *Decoder {
	d := &Decoder{
		clock:      clk,
		camera:     cam,
		log:        logging.Nop(),
		classifier: signal.NewClassifier(signal.DefaultThreshold),
		bits:       signal.NewBitstream(signal.BitstreamCapacity),
		bitMs:      signal.BitDurationMs(signal.AssumedTransmitterFPS),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start validates its arguments, stops any running capture, opens the camera
// into feed and begins sampling frames drawn onto surface, which takes the
// stream's native size. The first frame is processed before Start returns.
func (d *Decoder) Start(ctx context.Context, feed *capture.Feed, surface *capture.Surface, opts Options) error {
	if feed == nil || surface == nil {
		return ErrMissingCaptureSurface
	}
	if opts.ExpectedCode != "" {
		if err := signal.ValidateCode(opts.ExpectedCode); err != nil {
			return err
		}
	}
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = signal.DefaultThreshold
	}

	d.Stop()

	stream, err := d.camera.Open(ctx, capture.DefaultConstraints(opts.CameraID))
	if err != nil {
		d.log.Log("camera_open_failed", "camera", opts.CameraID, "err", err)
		return fmt.Errorf("%w: %w", ErrCameraAcquisition, err)
	}
	feed.Attach(stream)
	surface.Resize(feed.Size())

	d.mu.Lock()
	d.gen++
	gen := d.gen
	d.feed = feed
	d.surface = surface
	d.stream = stream
	d.expected = opts.ExpectedCode
	d.classifier = signal.NewClassifier(threshold)
	d.bits.Reset()
	d.window = d.window[:0]
	d.seq = 0
	d.active = true
	d.match = MatchNone
	d.lastBit = ""
	d.brightness = 0
	d.fps = 0
	d.frames = 0
	d.frameCount = 0
	now := d.clock.Now()
	d.startedAt = now
	d.fpsStart = now
	d.log.Log("receive_started",
		"camera", opts.CameraID,
		"code_bits", len(opts.ExpectedCode),
		"threshold", threshold,
		"bit_ms", d.bitMs,
	)
	ev := d.frameLocked(gen, now)
	d.mu.Unlock()

	d.dispatch(ev)
	return nil
}

// Stop cancels the pending frame, releases the camera and clears the decoded
// state. It is safe to call when nothing is running.
func (d *Decoder) Stop() {
	d.mu.Lock()
	wasActive := d.stopLocked()
	snap := d.snapshotLocked()
	d.mu.Unlock()

	if wasActive {
		d.log.Log("receive_stopped")
		if d.onChange != nil {
			d.onChange(snap)
		}
	}
}

func (d *Decoder) stopLocked() bool {
	d.gen++
	if d.hasPending {
		d.clock.Cancel(d.pending)
		d.hasPending = false
	}
	if d.stream != nil {
		if err := d.stream.Close(); err != nil {
			d.log.Log("camera_close_failed", "err", err)
		}
		d.stream = nil
	}
	if d.feed != nil {
		d.feed.Detach()
	}
	wasActive := d.active
	d.active = false
	d.resetLocked()
	return wasActive
}

// Reset clears the decoded bits, the classifier and the match result while
// capture keeps running.
func (d *Decoder) Reset() {
	d.mu.Lock()
	d.resetLocked()
	snap := d.snapshotLocked()
	d.mu.Unlock()

	if d.onChange != nil {
		d.onChange(snap)
	}
}

func (d *Decoder) resetLocked() {
	d.bits.Reset()
	d.classifier.Reset()
	d.match = MatchNone
	d.lastBit = ""
	d.window = d.window[:0]
}

func (d *Decoder) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Decoder) snapshotLocked() Snapshot {
	return Snapshot{
		Active:     d.active,
		Brightness: d.brightness,
		LastBit:    d.lastBit,
		Bitstream:  d.bits.String(),
		FPS:        d.fps,
		Match:      d.match,
		Classifier: d.classifier.State(),
		Frames:     d.frames,
	}
}

// BitDuration is the bit period the decoder assumes.
func (d *Decoder) BitDuration() time.Duration {
	return time.Duration(d.bitMs * float64(time.Millisecond))
}

// events collects what a frame produced so callbacks can run unlocked.
type events struct {
	changed bool
	snap    Snapshot
	bit     *BitEvent
	matched *Snapshot
}

func (d *Decoder) dispatch(ev events) {
	if ev.bit != nil && d.onBit != nil {
		d.onBit(*ev.bit)
	}
	if ev.matched != nil && d.onMatch != nil {
		d.onMatch(*ev.matched)
	}
	if ev.changed && d.onChange != nil {
		d.onChange(ev.snap)
	}
}

func (d *Decoder) onFrame(gen uint64) clock.Callback {
	return func(now time.Duration) {
		d.mu.Lock()
		ev := d.frameLocked(gen, now)
		d.mu.Unlock()
		d.dispatch(ev)
	}
}

func (d *Decoder) frameLocked(gen uint64, now time.Duration) events {
	var ev events
	if !d.active || gen != d.gen {
		return ev
	}

	if d.surface.Available() && d.feed.Ready() {
		if err := d.sampleLocked(now, &ev); err != nil {
			d.log.Log("capture_frame_failed", "err", err)
		}
		ev.changed = true
		ev.snap = d.snapshotLocked()
		if !d.active {
			return ev
		}
	}

	d.pending = d.clock.Request(d.onFrame(gen))
	d.hasPending = true
	return ev
}

func (d *Decoder) sampleLocked(now time.Duration, ev *events) error {
	if err := d.feed.DrawTo(d.surface); err != nil {
		return err
	}
	brightness := signal.Luminance(d.surface.Pixels(), signal.DefaultPixelStride)
	d.brightness = brightness
	d.frames++

	d.frameCount++
	if now-d.fpsStart >= time.Second {
		d.fps = float64(d.frameCount)
		d.frameCount = 0
		d.fpsStart = now
	}

	if len(d.window) == 0 {
		d.anchor = now
	}
	d.window = append(d.window, brightness)

	elapsedMs := float64(now-d.anchor) / float64(time.Millisecond)
	if elapsedMs < d.bitMs*SampleFraction {
		return nil
	}

	mean := signal.Mean(d.window)
	bit := d.classifier.Classify(mean)
	d.lastBit = string(bit)
	d.bits.Append(bit)
	d.seq++
	ev.bit = &BitEvent{
		Seq:     d.seq,
		At:      now - d.startedAt,
		Mean:    mean,
		Samples: len(d.window),
		Bit:     d.lastBit,
	}
	d.log.Log("bit_decoded", "seq", d.seq, "bit", d.lastBit, "mean", mean, "samples", len(d.window))
	d.window = d.window[:0]

	if d.expected != "" && signal.ContainsCode(d.bits.String(), d.expected) {
		d.match = MatchGranted
		granted := d.snapshotLocked()
		ev.matched = &granted
		d.log.Log("code_matched", "bits", d.bits.Len(), "frames", d.frames)
		d.stopLocked()
	}
	return nil
}
