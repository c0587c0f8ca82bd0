package receive

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/lumalink/internal/capture"
	"github.com/verte-zerg/lumalink/internal/clock"
	"github.com/verte-zerg/lumalink/internal/signal"
)

// frameStep is short enough that every bit window holds two frames.
const frameStep = 30 * time.Millisecond

type trackedStream struct {
	capture.Stream
	closes   int
	frameErr error
	unsized  bool
}

func (s *trackedStream) Size() (int, int) {
	if s.unsized {
		return 0, 0
	}
	return s.Stream.Size()
}

func (s *trackedStream) Frame() (image.Image, error) {
	if s.frameErr != nil {
		return nil, s.frameErr
	}
	return s.Stream.Frame()
}

func (s *trackedStream) Close() error {
	s.closes++
	return s.Stream.Close()
}

// grayCamera films a display showing a uniform gray level. Frames are 16x12
// unless width and height are set.
type grayCamera struct {
	level   uint8
	width   int
	height  int
	unsized bool
	openErr error
	opened  []capture.Constraints
	streams []*trackedStream
}

func (c *grayCamera) Open(ctx context.Context, cons capture.Constraints) (capture.Stream, error) {
	c.opened = append(c.opened, cons)
	if c.openErr != nil {
		return nil, c.openErr
	}
	w, h := c.width, c.height
	if w == 0 || h == 0 {
		w, h = 16, 12
	}
	syn := &capture.Synthetic{
		Display: func() color.Color { return color.Gray{Y: c.level} },
		Width:   w,
		Height:  h,
	}
	inner, err := syn.Open(ctx, cons)
	if err != nil {
		return nil, err
	}
	s := &trackedStream{Stream: inner, unsized: c.unsized}
	c.streams = append(c.streams, s)
	return s, nil
}

type recordLogger struct {
	mu     sync.Mutex
	events []string
}

func (l *recordLogger) Log(event string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *recordLogger) has(event string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == event {
			return true
		}
	}
	return false
}

// feedLevels shows each level for one full bit window: the first window
// starts with Start, later ones with the next refresh.
func feedLevels(t *testing.T, clk *clock.Driven, dec *Decoder, cam *grayCamera, opts Options, levels []uint8) {
	t.Helper()
	for i, lvl := range levels {
		cam.level = lvl
		if i == 0 {
			require.NoError(t, dec.Start(context.Background(), capture.NewFeed(), capture.NewSurface(), opts))
		} else {
			clk.Advance(frameStep)
		}
		clk.Advance(frameStep)
	}
}

func TestStartRequiresFeedAndSurface(t *testing.T) {
	cam := &grayCamera{}
	dec := New(clock.NewDriven(), cam)

	err := dec.Start(context.Background(), nil, capture.NewSurface(), Options{})
	assert.True(t, errors.Is(err, ErrMissingCaptureSurface))
	err = dec.Start(context.Background(), capture.NewFeed(), nil, Options{})
	assert.True(t, errors.Is(err, ErrMissingCaptureSurface))
	assert.Empty(t, cam.opened)
}

func TestStartRejectsInvalidExpectedCode(t *testing.T) {
	cam := &grayCamera{}
	dec := New(clock.NewDriven(), cam)

	err := dec.Start(context.Background(), capture.NewFeed(), capture.NewSurface(), Options{ExpectedCode: "12"})
	assert.True(t, errors.Is(err, signal.ErrInvalidCodeFormat))
	assert.Empty(t, cam.opened)
	assert.False(t, dec.Snapshot().Active)
}

func TestStartCameraFailure(t *testing.T) {
	denied := errors.New("permission denied")
	cam := &grayCamera{openErr: denied}
	clk := clock.NewDriven()
	logger := &recordLogger{}
	dec := New(clk, cam, WithLogger(logger))

	err := dec.Start(context.Background(), capture.NewFeed(), capture.NewSurface(), Options{CameraID: "/dev/video3"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCameraAcquisition))
	assert.True(t, errors.Is(err, denied))
	assert.False(t, dec.Snapshot().Active)
	assert.Equal(t, 0, clk.Pending())
	assert.True(t, logger.has("camera_open_failed"))

	require.Len(t, cam.opened, 1)
	assert.Equal(t, capture.DefaultConstraints("/dev/video3"), cam.opened[0])
}

func TestStartSizesSurface(t *testing.T) {
	cam := &grayCamera{width: 320, height: 180}
	dec := New(clock.NewDriven(), cam)
	surface := capture.NewSurface()

	require.NoError(t, dec.Start(context.Background(), capture.NewFeed(), surface, Options{}))
	w, h := surface.Size()
	assert.Equal(t, 320, w)
	assert.Equal(t, 180, h)

	snap := dec.Snapshot()
	assert.True(t, snap.Active)
	assert.Equal(t, 1, snap.Frames)
}

func TestStartSizesSurfaceFallback(t *testing.T) {
	cam := &grayCamera{unsized: true}
	dec := New(clock.NewDriven(), cam)
	surface := capture.NewSurface()

	require.NoError(t, dec.Start(context.Background(), capture.NewFeed(), surface, Options{}))
	w, h := surface.Size()
	assert.Equal(t, capture.FallbackWidth, w)
	assert.Equal(t, capture.FallbackHeight, h)
}

func TestInvalidRestartKeepsRunningCapture(t *testing.T) {
	clk := clock.NewDriven()
	cam := &grayCamera{level: 200}
	dec := New(clk, cam)
	feed := capture.NewFeed()
	require.NoError(t, dec.Start(context.Background(), feed, capture.NewSurface(), Options{}))

	err := dec.Start(context.Background(), feed, capture.NewSurface(), Options{ExpectedCode: "1x"})
	require.ErrorIs(t, err, signal.ErrInvalidCodeFormat)
	err = dec.Start(context.Background(), nil, capture.NewSurface(), Options{})
	require.ErrorIs(t, err, ErrMissingCaptureSurface)

	assert.True(t, dec.Snapshot().Active)
	require.Len(t, cam.streams, 1)
	assert.Equal(t, 0, cam.streams[0].closes)
	assert.True(t, feed.Ready())
	assert.Equal(t, 1, clk.Pending())
}

func TestDecodesWithHysteresis(t *testing.T) {
	clk := clock.NewDriven()
	cam := &grayCamera{}
	var bits []BitEvent
	dec := New(clk, cam, WithOnBit(func(ev BitEvent) { bits = append(bits, ev) }))

	feedLevels(t, clk, dec, cam, Options{}, []uint8{150, 120, 100, 130, 60, 200})

	snap := dec.Snapshot()
	assert.Equal(t, "110001", snap.Bitstream)
	assert.Equal(t, "1", snap.LastBit)
	assert.Equal(t, signal.StateLastWasOne, snap.Classifier)
	assert.Equal(t, MatchNone, snap.Match)
	require.Len(t, bits, 6)
	for i, ev := range bits {
		assert.Equal(t, i+1, ev.Seq)
		assert.Equal(t, 2, ev.Samples)
	}
	assert.InDelta(t, 100, bits[2].Mean, 0.5)
	assert.Equal(t, frameStep, bits[0].At)
}

func TestCustomThreshold(t *testing.T) {
	clk := clock.NewDriven()
	cam := &grayCamera{}
	dec := New(clk, cam)

	feedLevels(t, clk, dec, cam, Options{Threshold: 50}, []uint8{60, 20})
	assert.Equal(t, "10", dec.Snapshot().Bitstream)
}

func TestMatchGrantsThenStops(t *testing.T) {
	clk := clock.NewDriven()
	cam := &grayCamera{}
	var granted []Snapshot
	var changes []Snapshot
	dec := New(clk, cam,
		WithOnMatch(func(s Snapshot) { granted = append(granted, s) }),
		WithOnChange(func(s Snapshot) { changes = append(changes, s) }),
	)

	feedLevels(t, clk, dec, cam, Options{ExpectedCode: "1101"}, []uint8{20, 200, 200, 20, 200})

	require.Len(t, granted, 1)
	assert.Equal(t, MatchGranted, granted[0].Match)
	assert.Equal(t, "01101", granted[0].Bitstream)
	assert.True(t, granted[0].Active)

	snap := dec.Snapshot()
	assert.False(t, snap.Active)
	assert.Equal(t, MatchNone, snap.Match)
	assert.Equal(t, "", snap.Bitstream)
	assert.Equal(t, 0, clk.Pending())
	require.Len(t, cam.streams, 1)
	assert.Equal(t, 1, cam.streams[0].closes)

	require.NotEmpty(t, changes)
	assert.False(t, changes[len(changes)-1].Active)

	// Further refreshes do nothing.
	clk.Advance(frameStep)
	assert.Len(t, granted, 1)
}

func TestEmptyExpectedCodeNeverMatches(t *testing.T) {
	clk := clock.NewDriven()
	cam := &grayCamera{}
	matched := false
	dec := New(clk, cam, WithOnMatch(func(Snapshot) { matched = true }))

	feedLevels(t, clk, dec, cam, Options{}, []uint8{200, 20, 200, 20})
	assert.False(t, matched)
	assert.True(t, dec.Snapshot().Active)
}

func TestBitstreamIsBounded(t *testing.T) {
	clk := clock.NewDriven()
	cam := &grayCamera{level: 200}
	dec := New(clk, cam)
	require.NoError(t, dec.Start(context.Background(), capture.NewFeed(), capture.NewSurface(), Options{}))

	for i := 0; i < 2*130; i++ {
		clk.Advance(frameStep)
	}
	snap := dec.Snapshot()
	assert.Equal(t, signal.BitstreamCapacity, len(snap.Bitstream))
	assert.Equal(t, strings.Repeat("1", signal.BitstreamCapacity), snap.Bitstream)
}

func TestStopIsIdempotent(t *testing.T) {
	clk := clock.NewDriven()
	cam := &grayCamera{level: 200}
	feed := capture.NewFeed()
	dec := New(clk, cam)
	require.NoError(t, dec.Start(context.Background(), feed, capture.NewSurface(), Options{ExpectedCode: "0000"}))
	clk.Advance(frameStep)
	require.Equal(t, "1", dec.Snapshot().Bitstream)

	dec.Stop()
	first := dec.Snapshot()
	dec.Stop()
	second := dec.Snapshot()

	assert.Equal(t, first, second)
	assert.False(t, second.Active)
	assert.Equal(t, "", second.Bitstream)
	assert.Equal(t, signal.StateUnknown, second.Classifier)
	assert.Equal(t, MatchNone, second.Match)
	assert.Equal(t, 1, cam.streams[0].closes)
	assert.Nil(t, feed.Detach())
	assert.Equal(t, 0, clk.Pending())
}

func TestRestartReleasesPreviousCamera(t *testing.T) {
	clk := clock.NewDriven()
	cam := &grayCamera{level: 200}
	dec := New(clk, cam)
	require.NoError(t, dec.Start(context.Background(), capture.NewFeed(), capture.NewSurface(), Options{}))
	require.NoError(t, dec.Start(context.Background(), capture.NewFeed(), capture.NewSurface(), Options{}))

	require.Len(t, cam.streams, 2)
	assert.Equal(t, 1, cam.streams[0].closes)
	assert.Equal(t, 0, cam.streams[1].closes)
	assert.Equal(t, 1, clk.Pending())
}

func TestResetKeepsCapturing(t *testing.T) {
	clk := clock.NewDriven()
	cam := &grayCamera{level: 200}
	dec := New(clk, cam)
	require.NoError(t, dec.Start(context.Background(), capture.NewFeed(), capture.NewSurface(), Options{}))
	clk.Advance(frameStep)
	require.Equal(t, "1", dec.Snapshot().Bitstream)

	dec.Reset()
	snap := dec.Snapshot()
	assert.True(t, snap.Active)
	assert.Equal(t, "", snap.Bitstream)
	assert.Equal(t, signal.StateUnknown, snap.Classifier)

	clk.Advance(frameStep)
	clk.Advance(frameStep)
	assert.Equal(t, "1", dec.Snapshot().Bitstream)
}

func TestFrameErrorsAreLogged(t *testing.T) {
	clk := clock.NewDriven()
	cam := &grayCamera{level: 200}
	logger := &recordLogger{}
	dec := New(clk, cam, WithLogger(logger))
	require.NoError(t, dec.Start(context.Background(), capture.NewFeed(), capture.NewSurface(), Options{}))

	cam.streams[0].frameErr = errors.New("device unplugged")
	clk.Advance(frameStep)

	assert.True(t, logger.has("capture_frame_failed"))
	assert.True(t, dec.Snapshot().Active)
	assert.Equal(t, 1, clk.Pending())
}

func TestFPSCounter(t *testing.T) {
	clk := clock.NewDriven()
	cam := &grayCamera{level: 10}
	dec := New(clk, cam)
	require.NoError(t, dec.Start(context.Background(), capture.NewFeed(), capture.NewSurface(), Options{}))

	for i := 0; i < 40; i++ {
		clk.Advance(frameStep)
	}
	// The first second closes at 1020ms, after the start frame and 34 more.
	assert.Equal(t, 35.0, dec.Snapshot().FPS)
}

func TestBitDuration(t *testing.T) {
	dec := New(clock.NewDriven(), &grayCamera{})
	assert.InDelta(t, float64(2*time.Second/60), float64(dec.BitDuration()), float64(time.Microsecond))
	assert.Equal(t, "granted", MatchGranted.String())
	assert.Equal(t, "none", MatchNone.String())
}
