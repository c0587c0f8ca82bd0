package gstcam

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/lumalink/internal/capture"
)

func TestResolveDefaults(t *testing.T) {
	w, h, fps := resolve(capture.DefaultConstraints(""))
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
	assert.Equal(t, 30, fps)

	w, h, fps = resolve(capture.Constraints{FrameRate: capture.Range{Ideal: 10, Min: 15}})
	assert.Equal(t, capture.FallbackWidth, w)
	assert.Equal(t, capture.FallbackHeight, h)
	assert.Equal(t, 15, fps)

	_, _, fps = resolve(capture.Constraints{FrameRate: capture.Range{Ideal: 60, Max: 30}})
	assert.Equal(t, 30, fps)
}

func TestCapsString(t *testing.T) {
	assert.Equal(t, "video/x-raw,format=RGBA,width=640,height=480,framerate=30/1", capsString(640, 480, 30))
}

func TestDeviceLabel(t *testing.T) {
	assert.Equal(t, "default", deviceLabel(""))
	assert.Equal(t, "/dev/video1", deviceLabel("/dev/video1"))
}

func TestStreamWithoutFrames(t *testing.T) {
	s := &stream{width: 2, height: 2}
	assert.False(t, s.Ready())
	_, err := s.Frame()
	assert.ErrorIs(t, err, capture.ErrNoFrame)

	s.latest = make([]byte, 2*2*4)
	assert.True(t, s.Ready())
	img, err := s.Frame()
	assert.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())

	s.latest = make([]byte, 3)
	_, err = s.Frame()
	assert.Error(t, err)
}

type fakeElement struct {
	set  []string
	fail string
}

func (f *fakeElement) SetProperty(name string, value interface{}) error {
	if name == f.fail {
		return errors.New("no such property")
	}
	f.set = append(f.set, name)
	return nil
}

func TestSetPropertiesStopsAtFailure(t *testing.T) {
	el := &fakeElement{fail: "max-buffers"}
	err := setProperties(el, "appsink",
		property{"sync", false},
		property{"max-buffers", uint(1)},
		property{"drop", true},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set appsink max-buffers")
	assert.Equal(t, []string{"sync"}, el.set)

	el = &fakeElement{}
	require.NoError(t, setProperties(el, "capsfilter", property{"caps", "video/x-raw"}))
	assert.Equal(t, []string{"caps"}, el.set)
}
