package main

import (
	"context"
	"fmt"
	"image/color"
	"runtime"
	"sync"
	"time"

	"github.com/verte-zerg/lumalink/internal/capture"
	"github.com/verte-zerg/lumalink/internal/clock"
	"github.com/verte-zerg/lumalink/internal/logging"
	"github.com/verte-zerg/lumalink/internal/model"
	"github.com/verte-zerg/lumalink/internal/receive"
	"github.com/verte-zerg/lumalink/internal/signal"
	"github.com/verte-zerg/lumalink/internal/transmit"
)

// loopbackConfig describes one simulated run. Refresh is the rate, in Hz,
// at which the shared clock refreshes both sides.
type loopbackConfig struct {
	Code      string
	Expect    string
	FPS       float64
	Refresh   float64
	Threshold float64
	Noise     int
	Seed      int64
	Timeout   time.Duration
}

// bitRecorder collects decoded bits as stored samples. The receive command
// feeds it from the ticker goroutine.
type bitRecorder struct {
	mu      sync.Mutex
	samples []model.BitSample
}

func (r *bitRecorder) record(ev receive.BitEvent) {
	r.mu.Lock()
	r.samples = append(r.samples, model.BitSample{
		Seq:      ev.Seq,
		OffsetMs: ev.At.Milliseconds(),
		Mean:     ev.Mean,
		Bit:      ev.Bit,
	})
	r.mu.Unlock()
}

func (r *bitRecorder) Samples() []model.BitSample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.BitSample, len(r.samples))
	copy(out, r.samples)
	return out
}

// runLoopback transmits cfg.Code onto a synthetic camera and decodes it on a
// single driven clock. Cancelling ctx ends the run as stopped.
func runLoopback(ctx context.Context, cfg loopbackConfig, logger logging.Logger) (model.Run, []model.BitSample, error) {
	if cfg.Refresh <= 0 {
		return model.Run{}, nil, fmt.Errorf("--refresh must be > 0")
	}
	expect := cfg.Expect
	if expect == "" {
		expect = cfg.Code
	}
	step := time.Duration(float64(time.Second) / cfg.Refresh)
	clk := clock.NewDriven()
	startedAt := time.Now()

	enc := transmit.New(clk, transmit.WithLogger(logger))
	defer enc.Stop()
	if err := startEncoder(ctx, clk, enc, cfg.Code, cfg.FPS, step); err != nil {
		return model.Run{}, nil, err
	}

	cam := &capture.Synthetic{
		Display: func() color.Color { return enc.DisplayColor() },
		Width:   64,
		Height:  48,
		Noise:   cfg.Noise,
		Seed:    cfg.Seed,
	}
	rec := &bitRecorder{}
	var matched *receive.Snapshot
	dec := receive.New(clk, cam,
		receive.WithLogger(logger),
		receive.WithOnBit(rec.record),
		receive.WithOnMatch(func(s receive.Snapshot) { matched = &s }),
	)
	defer dec.Stop()

	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = signal.DefaultThreshold
	}
	begin := clk.Now()
	if err := dec.Start(ctx, capture.NewFeed(), capture.NewSurface(), receive.Options{
		ExpectedCode: expect,
		Threshold:    threshold,
		CameraID:     "synthetic",
	}); err != nil {
		return model.Run{}, nil, fmt.Errorf("failed to start decoder: %w", err)
	}

	result := model.ResultDenied
	last := dec.Snapshot()
	for matched == nil && clk.Now()-begin < cfg.Timeout {
		if ctx.Err() != nil {
			result = model.ResultStopped
			break
		}
		clk.Advance(step)
		if snap := dec.Snapshot(); snap.Active {
			last = snap
		}
	}
	if matched != nil {
		result = model.ResultGranted
		last = *matched
	}
	elapsed := clk.Now() - begin

	run := model.Run{
		Kind:          model.KindLoopback,
		Code:          expect,
		StartedAt:     startedAt,
		EndedAt:       time.Now(),
		FPS:           enc.FPS(),
		BitDurationMs: float64(dec.BitDuration()) / float64(time.Millisecond),
		Threshold:     threshold,
		Result:        result,
		Bitstream:     last.Bitstream,
		Bits:          len(last.Bitstream),
		Frames:        last.Frames,
		DurationMs:    elapsed.Milliseconds(),
	}
	return run, rec.Samples(), nil
}

// startEncoder refreshes clk while the encoder calibrates.
func startEncoder(ctx context.Context, clk *clock.Driven, enc *transmit.Encoder, code string, fps float64, step time.Duration) error {
	errc := make(chan error, 1)
	go func() { errc <- enc.Start(ctx, code, fps) }()
	for {
		select {
		case err := <-errc:
			if err != nil {
				return fmt.Errorf("failed to start encoder: %w", err)
			}
			return nil
		default:
		}
		if ctx.Err() != nil {
			if err := <-errc; err != nil {
				return fmt.Errorf("failed to start encoder: %w", err)
			}
			return ctx.Err()
		}
		if clk.Pending() == 0 {
			runtime.Gosched()
			continue
		}
		clk.Advance(step)
	}
}
