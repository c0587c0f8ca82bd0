// Package gstcam opens V4L2 cameras through a GStreamer pipeline:
//
//	v4l2src → videoconvert → videoscale → videorate → capsfilter(RGBA) → appsink
//
// The appsink keeps only the newest frame, which is what the receiver samples.
package gstcam

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/verte-zerg/lumalink/internal/capture"
	"github.com/verte-zerg/lumalink/internal/logging"
)

// StartTimeout bounds how long Open waits for the pipeline to reach PLAYING.
const StartTimeout = 5 * time.Second

var initOnce sync.Once

// Camera is a capture.Camera backed by GStreamer.
type Camera struct {
	logger logging.Logger
}

func New(logger logging.Logger) *Camera {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Camera{logger: logger}
}

func (c *Camera) Open(ctx context.Context, cons capture.Constraints) (capture.Stream, error) {
	initOnce.Do(func() { gst.Init(nil) })

	width, height, fps := resolve(cons)
	s := &stream{width: width, height: height, logger: c.logger}

	pipeline, sink, err := buildPipeline(cons.DeviceID, width, height, fps)
	if err != nil {
		return nil, err
	}
	s.pipeline = pipeline

	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: s.onSample,
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		s.destroy()
		return nil, errors.Wrap(err, "failed to start camera pipeline")
	}
	if err := waitPlaying(ctx, pipeline); err != nil {
		s.destroy()
		return nil, errors.Wrapf(err, "camera %q did not start", deviceLabel(cons.DeviceID))
	}

	c.logger.Log("camera_opened", "device", deviceLabel(cons.DeviceID), "width", width, "height", height, "fps", fps)
	return s, nil
}

// resolve turns soft constraints into the caps the pipeline negotiates.
func resolve(cons capture.Constraints) (int, int, int) {
	width := cons.Width.Ideal
	if width <= 0 {
		width = capture.FallbackWidth
	}
	height := cons.Height.Ideal
	if height <= 0 {
		height = capture.FallbackHeight
	}
	fps := cons.FrameRate.Ideal
	if fps <= 0 {
		fps = 30
	}
	if cons.FrameRate.Min > 0 && fps < cons.FrameRate.Min {
		fps = cons.FrameRate.Min
	}
	if cons.FrameRate.Max > 0 && fps > cons.FrameRate.Max {
		fps = cons.FrameRate.Max
	}
	return width, height, fps
}

func capsString(width, height, fps int) string {
	return fmt.Sprintf("video/x-raw,format=RGBA,width=%d,height=%d,framerate=%d/1", width, height, fps)
}

func deviceLabel(id string) string {
	if id == "" {
		return "default"
	}
	return id
}

type propertySetter interface {
	SetProperty(name string, value interface{}) error
}

type property struct {
	name  string
	value interface{}
}

// setProperties applies props in order and stops at the first failure.
func setProperties(obj propertySetter, element string, props ...property) error {
	for _, p := range props {
		if err := obj.SetProperty(p.name, p.value); err != nil {
			return errors.Wrapf(err, "failed to set %s %s", element, p.name)
		}
	}
	return nil
}

func buildPipeline(device string, width, height, fps int) (pipeline *gst.Pipeline, sink *app.Sink, err error) {
	pipeline, err = gst.NewPipeline("")
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create pipeline")
	}
	defer func() {
		if err != nil {
			_ = pipeline.SetState(gst.StateNull)
			pipeline, sink = nil, nil
		}
	}()

	src, err := gst.NewElement("v4l2src")
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create v4l2src")
	}
	if device != "" {
		if err := setProperties(src, "v4l2src", property{"device", device}); err != nil {
			return nil, nil, errors.Wrapf(err, "failed to select device %q", device)
		}
	}

	elements := []*gst.Element{src}
	for _, name := range []string{"videoconvert", "videoscale", "videorate"} {
		elem, err := gst.NewElement(name)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "failed to create %s", name)
		}
		elements = append(elements, elem)
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create capsfilter")
	}
	caps := gst.NewCapsFromString(capsString(width, height, fps))
	if err := setProperties(capsfilter, "capsfilter", property{"caps", caps}); err != nil {
		return nil, nil, err
	}
	elements = append(elements, capsfilter)

	sink, err = app.NewAppSink()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create appsink")
	}
	if err := setProperties(sink, "appsink",
		property{"sync", false},
		property{"max-buffers", uint(1)},
		property{"drop", true},
	); err != nil {
		return nil, nil, err
	}
	elements = append(elements, sink.Element)

	if err := pipeline.AddMany(elements...); err != nil {
		return nil, nil, errors.Wrap(err, "failed to add pipeline elements")
	}
	if err := gst.ElementLinkMany(elements...); err != nil {
		return nil, nil, errors.Wrap(err, "failed to link pipeline elements")
	}
	return pipeline, sink, nil
}

// waitPlaying watches the bus until the pipeline reports PLAYING, an error or
// end of stream, or until ctx or StartTimeout expires.
func waitPlaying(ctx context.Context, pipeline *gst.Pipeline) error {
	bus := pipeline.GetPipelineBus()
	deadline := time.Now().Add(StartTimeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageError:
			gerr := msg.ParseError()
			return errors.Errorf("pipeline error: %s", gerr.Error())
		case gst.MessageEOS:
			return errors.New("end of stream before first frame")
		case gst.MessageStateChanged:
			if msg.Source() != pipeline.GetName() {
				continue
			}
			_, next := msg.ParseStateChanged()
			if next == gst.StatePlaying {
				return nil
			}
		}
	}
	return errors.New("timed out waiting for camera")
}

type stream struct {
	mu       sync.Mutex
	pipeline *gst.Pipeline
	logger   logging.Logger
	width    int
	height   int
	latest   []byte
	frames   uint64
	closed   bool
}

func (s *stream) onSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return gst.FlowOK
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	buffer.Unmap()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return gst.FlowEOS
	}
	s.latest = frame
	s.frames++
	return gst.FlowOK
}

func (s *stream) Size() (int, int) {
	return s.width, s.height
}

func (s *stream) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.latest != nil
}

func (s *stream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, capture.ErrStreamClosed
	}
	if s.latest == nil {
		return nil, capture.ErrNoFrame
	}
	stride := 4 * s.width
	if len(s.latest) < stride*s.height {
		return nil, errors.Errorf("short frame: %d bytes for %dx%d", len(s.latest), s.width, s.height)
	}
	return &image.RGBA{
		Pix:    s.latest,
		Stride: stride,
		Rect:   image.Rect(0, 0, s.width, s.height),
	}, nil
}

func (s *stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	frames := s.frames
	s.mu.Unlock()

	s.logger.Log("camera_closed", "frames", frames)
	return s.destroy()
}

func (s *stream) destroy() error {
	if s.pipeline == nil {
		return nil
	}
	if err := s.pipeline.SetState(gst.StateNull); err != nil {
		return errors.Wrap(err, "failed to stop camera pipeline")
	}
	return nil
}
