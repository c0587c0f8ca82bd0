// Package capture models the receiving side's view of a camera: a Feed that
// plays a Stream and a Surface the current frame is drawn onto for sampling.
package capture

import (
	"context"
	"errors"
	"image"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// Surface size used when the feed does not report one yet.
const (
	FallbackWidth  = 640
	FallbackHeight = 480
)

var (
	ErrNoStream     = errors.New("no stream attached")
	ErrNoFrame      = errors.New("no frame available yet")
	ErrStreamClosed = errors.New("stream closed")
)

// Range is a soft constraint: Ideal is preferred, Min and Max bound it when
// non-zero.
type Range struct {
	Ideal int
	Min   int
	Max   int
}

// Constraints describe the requested camera stream.
type Constraints struct {
	// DeviceID selects an exact device when set.
	DeviceID  string
	Width     Range
	Height    Range
	FrameRate Range
}

// DefaultConstraints asks for 640x480 at 30 fps, accepting down to 15 fps.
func DefaultConstraints(deviceID string) Constraints {
	return Constraints{
		DeviceID:  deviceID,
		Width:     Range{Ideal: FallbackWidth},
		Height:    Range{Ideal: FallbackHeight},
		FrameRate: Range{Ideal: 30, Min: 15},
	}
}

// Stream is an open camera stream.
type Stream interface {
	// Size is the native frame size, zero until known.
	Size() (width, height int)
	// Ready reports whether a current frame is available.
	Ready() bool
	// Frame returns the current frame. The image must not be modified.
	Frame() (image.Image, error)
	Close() error
}

// Camera opens streams.
type Camera interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Feed plays at most one stream at a time.
type Feed struct {
	mu     sync.Mutex
	stream Stream
}

func NewFeed() *Feed {
	return &Feed{}
}

// Attach replaces the playing stream. The previous one is not closed.
func (f *Feed) Attach(s Stream) {
	f.mu.Lock()
	f.stream = s
	f.mu.Unlock()
}

// Detach removes and returns the playing stream.
func (f *Feed) Detach() Stream {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.stream
	f.stream = nil
	return s
}

func (f *Feed) Size() (int, int) {
	f.mu.Lock()
	s := f.stream
	f.mu.Unlock()
	if s == nil {
		return 0, 0
	}
	return s.Size()
}

func (f *Feed) Ready() bool {
	f.mu.Lock()
	s := f.stream
	f.mu.Unlock()
	return s != nil && s.Ready()
}

// DrawTo scales the current frame onto the surface.
func (f *Feed) DrawTo(dst *Surface) error {
	f.mu.Lock()
	s := f.stream
	f.mu.Unlock()
	if s == nil {
		return ErrNoStream
	}
	frame, err := s.Frame()
	if err != nil {
		return err
	}
	return dst.Draw(frame)
}

// Surface is the RGBA drawing target frames are sampled from.
type Surface struct {
	mu  sync.Mutex
	img *image.RGBA
}

// NewSurface returns a surface with no backing image; Resize allocates it.
func NewSurface() *Surface {
	return &Surface{}
}

func (s *Surface) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		width, height = FallbackWidth, FallbackHeight
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.img != nil && s.img.Rect.Dx() == width && s.img.Rect.Dy() == height {
		return
	}
	s.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.img == nil {
		return 0, 0
	}
	return s.img.Rect.Dx(), s.img.Rect.Dy()
}

// Available reports whether the surface can be drawn on.
func (s *Surface) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img != nil
}

func (s *Surface) Draw(src image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.img == nil {
		return errors.New("surface not allocated")
	}
	if src.Bounds().Empty() {
		return ErrNoFrame
	}
	xdraw.NearestNeighbor.Scale(s.img, s.img.Rect, src, src.Bounds(), xdraw.Src, nil)
	return nil
}

// Pixels returns the RGBA bytes of the last drawn frame. The slice is reused
// by the next Draw.
func (s *Surface) Pixels() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.img == nil {
		return nil
	}
	return s.img.Pix
}
