package capture

import (
	"context"
	"image"
	"image/color"
	"math/rand"
	"sync"
)

// Synthetic is a camera that films a display: every frame is filled with the
// color Display returns at the moment the frame is read.
type Synthetic struct {
	Display func() color.Color
	// Width and Height default to the requested ideal size.
	Width  int
	Height int
	// Noise is the maximum per-channel jitter added to each pixel.
	Noise int
	Seed  int64
}

func (c *Synthetic) Open(ctx context.Context, cons Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := c.Width, c.Height
	if w <= 0 {
		w = cons.Width.Ideal
	}
	if h <= 0 {
		h = cons.Height.Ideal
	}
	if w <= 0 || h <= 0 {
		w, h = FallbackWidth, FallbackHeight
	}
	display := c.Display
	if display == nil {
		display = func() color.Color { return color.Black }
	}
	return &syntheticStream{
		display: display,
		noise:   c.Noise,
		rnd:     rand.New(rand.NewSource(c.Seed)),
		img:     image.NewRGBA(image.Rect(0, 0, w, h)),
	}, nil
}

type syntheticStream struct {
	mu      sync.Mutex
	display func() color.Color
	noise   int
	rnd     *rand.Rand
	img     *image.RGBA
	closed  bool
}

func (s *syntheticStream) Size() (int, int) {
	return s.img.Rect.Dx(), s.img.Rect.Dy()
}

func (s *syntheticStream) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *syntheticStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}
	c := color.RGBAModel.Convert(s.display()).(color.RGBA)
	pix := s.img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i] = s.jitter(c.R)
		pix[i+1] = s.jitter(c.G)
		pix[i+2] = s.jitter(c.B)
		pix[i+3] = 0xff
	}
	return s.img, nil
}

func (s *syntheticStream) jitter(v uint8) uint8 {
	if s.noise <= 0 {
		return v
	}
	n := int(v) + s.rnd.Intn(2*s.noise+1) - s.noise
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}

func (s *syntheticStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
