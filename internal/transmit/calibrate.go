package transmit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/verte-zerg/lumalink/internal/clock"
)

// Calibrate waits for frames refreshes of clk and returns the rate they came
// at, rounded and clamped to [MinFPS, MaxFPS]. Timing starts at the first
// refresh, so frames refreshes span frames-1 intervals.
func Calibrate(ctx context.Context, clk clock.FrameClock, frames int) (float64, error) {
	if frames < 2 {
		frames = CalibrationFrames
	}

	var (
		mu    sync.Mutex
		id    clock.ID
		count int
		start time.Duration
	)
	done := make(chan time.Duration, 1)

	var measure clock.Callback
	measure = func(now time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		count++
		if count == 1 {
			start = now
		}
		if count < frames {
			id = clk.Request(measure)
			return
		}
		done <- now - start
	}

	mu.Lock()
	id = clk.Request(measure)
	mu.Unlock()

	select {
	case elapsed := <-done:
		if elapsed <= 0 {
			return MaxFPS, nil
		}
		return ClampFPS(math.Round(float64(frames-1) / elapsed.Seconds())), nil
	case <-ctx.Done():
		mu.Lock()
		clk.Cancel(id)
		mu.Unlock()
		return 0, ctx.Err()
	}
}
