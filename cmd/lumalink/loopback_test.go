package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/lumalink/internal/logging"
	"github.com/verte-zerg/lumalink/internal/model"
)

func TestRunLoopbackGrants(t *testing.T) {
	run, samples, err := runLoopback(context.Background(), loopbackConfig{
		Code:    "1100",
		FPS:     60,
		Refresh: 180,
		Timeout: 10 * time.Second,
	}, logging.Nop())
	require.NoError(t, err)

	assert.Equal(t, model.KindLoopback, run.Kind)
	assert.Equal(t, model.ResultGranted, run.Result)
	assert.Equal(t, "1100", run.Code)
	assert.Contains(t, run.Bitstream, "1100")
	assert.Equal(t, len(run.Bitstream), run.Bits)
	assert.Equal(t, 60.0, run.FPS)
	assert.Equal(t, 128.0, run.Threshold)
	assert.Less(t, run.DurationMs, int64(10000))
	require.NotEmpty(t, samples)
	assert.Equal(t, 1, samples[0].Seq)
	assert.Equal(t, len(run.Bitstream), len(samples))
}

func TestRunLoopbackDeniesWrongCode(t *testing.T) {
	run, _, err := runLoopback(context.Background(), loopbackConfig{
		Code:    "1100",
		Expect:  "0000",
		FPS:     60,
		Refresh: 180,
		Timeout: 2 * time.Second,
	}, logging.Nop())
	require.NoError(t, err)

	assert.Equal(t, model.ResultDenied, run.Result)
	assert.Equal(t, "0000", run.Code)
	assert.GreaterOrEqual(t, run.DurationMs, int64(2000))
	assert.NotContains(t, run.Bitstream, "0000")
}

func TestRunLoopbackRejectsBadInput(t *testing.T) {
	_, _, err := runLoopback(context.Background(), loopbackConfig{Code: "1100", Refresh: 0}, logging.Nop())
	require.Error(t, err)

	_, _, err = runLoopback(context.Background(), loopbackConfig{Code: "12", Refresh: 180, Timeout: time.Second}, logging.Nop())
	require.Error(t, err)
}

func TestRunLoopbackStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := runLoopback(ctx, loopbackConfig{Code: "1100", Refresh: 180, Timeout: time.Second}, logging.Nop())
	require.ErrorIs(t, err, context.Canceled)
}

func TestPrintLoopback(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printLoopback(&buf, model.Run{
		Code:          "1100",
		FPS:           60,
		BitDurationMs: 33.333,
		Bitstream:     "011100",
		Frames:        40,
		DurationMs:    250,
		Result:        model.ResultGranted,
	}))
	assert.Equal(t, "Code: 1100\nFPS: 60 (33.33 ms/bit)\nBitstream: 011100\nFrames: 40\nElapsed: 250ms\nResult: GRANTED\n", buf.String())
}
