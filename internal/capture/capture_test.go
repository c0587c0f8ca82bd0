package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConstraints(t *testing.T) {
	c := DefaultConstraints("/dev/video2")
	assert.Equal(t, "/dev/video2", c.DeviceID)
	assert.Equal(t, 640, c.Width.Ideal)
	assert.Equal(t, 480, c.Height.Ideal)
	assert.Equal(t, Range{Ideal: 30, Min: 15}, c.FrameRate)
}

func TestFeedWithoutStream(t *testing.T) {
	feed := NewFeed()
	w, h := feed.Size()
	assert.Zero(t, w)
	assert.Zero(t, h)
	assert.False(t, feed.Ready())

	surface := NewSurface()
	surface.Resize(4, 4)
	assert.True(t, errors.Is(feed.DrawTo(surface), ErrNoStream))
}

func TestSyntheticFramesFollowDisplay(t *testing.T) {
	current := color.Color(color.White)
	cam := &Synthetic{Display: func() color.Color { return current }, Width: 8, Height: 6}

	stream, err := cam.Open(context.Background(), DefaultConstraints(""))
	require.NoError(t, err)

	feed := NewFeed()
	feed.Attach(stream)
	w, h := feed.Size()
	assert.Equal(t, 8, w)
	assert.Equal(t, 6, h)
	require.True(t, feed.Ready())

	surface := NewSurface()
	surface.Resize(16, 12)
	require.NoError(t, feed.DrawTo(surface))
	pix := surface.Pixels()
	require.Len(t, pix, 16*12*4)
	assert.Equal(t, []byte{255, 255, 255, 255}, pix[:4])

	current = color.Black
	require.NoError(t, feed.DrawTo(surface))
	assert.Equal(t, []byte{0, 0, 0, 255}, surface.Pixels()[:4])

	require.NoError(t, stream.Close())
	assert.False(t, feed.Ready())
	assert.True(t, errors.Is(feed.DrawTo(surface), ErrStreamClosed))
	assert.Equal(t, stream, feed.Detach())
	assert.Nil(t, feed.Detach())
}

func TestSyntheticUsesConstraintSize(t *testing.T) {
	stream, err := (&Synthetic{}).Open(context.Background(), DefaultConstraints(""))
	require.NoError(t, err)
	w, h := stream.Size()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
}

func TestSyntheticNoiseIsBounded(t *testing.T) {
	gray := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	cam := &Synthetic{Display: func() color.Color { return gray }, Width: 10, Height: 10, Noise: 5, Seed: 7}
	stream, err := cam.Open(context.Background(), DefaultConstraints(""))
	require.NoError(t, err)

	frame, err := stream.Frame()
	require.NoError(t, err)
	img := frame.(*image.RGBA)
	for i := 0; i < len(img.Pix); i += 4 {
		assert.InDelta(t, 128, int(img.Pix[i]), 5)
	}
}

func TestSyntheticOpenHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Synthetic{}).Open(ctx, DefaultConstraints(""))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSurfaceResize(t *testing.T) {
	s := NewSurface()
	assert.False(t, s.Available())
	assert.Nil(t, s.Pixels())

	s.Resize(0, 0)
	w, h := s.Size()
	assert.Equal(t, FallbackWidth, w)
	assert.Equal(t, FallbackHeight, h)
	assert.True(t, s.Available())
}

func TestListDevices(t *testing.T) {
	sys := t.TempDir()
	mk := func(name, label string) {
		dir := filepath.Join(sys, name)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		if label != "" {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "name"), []byte(label+"\n"), 0o644))
		}
	}
	mk("video10", "Rear Camera")
	mk("video2", "")
	mk("video0", "Integrated Webcam")
	mk("vbi0", "ignored")

	devices, err := listDevicesIn(sys, "/dev")
	require.NoError(t, err)
	require.Equal(t, []Device{
		{ID: "/dev/video0", Label: "Integrated Webcam"},
		{ID: "/dev/video2", Label: "Camera 2"},
		{ID: "/dev/video10", Label: "Rear Camera"},
	}, devices)
	assert.Equal(t, "/dev/video10", PreferredDevice(devices))
	assert.Equal(t, "/dev/video0", PreferredDevice(devices[:2]))
	assert.Equal(t, "", PreferredDevice(nil))
}

func TestListDevicesMissingDir(t *testing.T) {
	devices, err := listDevicesIn(filepath.Join(t.TempDir(), "missing"), "/dev")
	require.NoError(t, err)
	assert.Empty(t, devices)
}
