package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/lumalink/internal/model"
)

func sampleRuns() []model.Run {
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []model.Run{
		{ID: 1, Kind: model.KindTransmit, Code: "1100", Result: model.ResultStopped, FPS: 60, EndedAt: end, DurationMs: 9000},
		{ID: 2, Kind: model.KindReceive, Code: "1100", Result: model.ResultGranted, FPS: 30, EndedAt: end, DurationMs: 400},
		{ID: 3, Kind: model.KindReceive, Code: "1100", Result: model.ResultDenied, FPS: 30, EndedAt: end, DurationMs: 30000},
		{ID: 4, Kind: model.KindLoopback, Code: "01", Result: model.ResultGranted, FPS: 60, EndedAt: end, DurationMs: 600},
	}
}

func TestSummarize(t *testing.T) {
	sum := Summarize(sampleRuns())
	if sum.Runs != 4 || sum.Attempts != 3 || sum.Granted != 2 {
		t.Fatalf("unexpected counts: %+v", sum)
	}
	if math.Abs(sum.SuccessRate-2.0/3.0) > 1e-9 {
		t.Fatalf("unexpected success rate: %v", sum.SuccessRate)
	}
	if sum.AvgMatchMs != 500 || sum.BestMatchMs != 400 {
		t.Fatalf("unexpected match times: %+v", sum)
	}
	if sum.AvgFPS != 45 {
		t.Fatalf("unexpected avg fps: %v", sum.AvgFPS)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if sum := Summarize(nil); sum != (Summary{}) {
		t.Fatalf("expected zero summary, got %+v", sum)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{1, 2, 3, 4}, 2)
	want := []float64{1, 1.5, 2.5, 3.5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	same := MovingAverage([]float64{5, 7}, 1)
	if same[0] != 5 || same[1] != 7 {
		t.Fatalf("expected copy for window 1, got %v", same)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 9}); got != " @" {
		t.Fatalf("unexpected sparkline: %q", got)
	}
	if got := Sparkline([]float64{3, 3, 3}); got != "+++" {
		t.Fatalf("unexpected flat sparkline: %q", got)
	}
	if got := Sparkline(nil); got != "" {
		t.Fatalf("expected empty sparkline, got %q", got)
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, sampleRuns()); err != nil {
		t.Fatalf("render summary: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Runs: 4", "Attempts: 3", "Success Rate: 66.67%", "Avg Time to Match: 500 ms", "Best Time to Match: 400 ms", "Avg FPS: 45.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := RenderSummary(&buf, nil); err != nil {
		t.Fatalf("render summary: %v", err)
	}
	if buf.String() != "No runs found.\n" {
		t.Fatalf("unexpected empty output: %q", buf.String())
	}
}

func TestRenderRunTable(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderRunTable(&buf, sampleRuns()); err != nil {
		t.Fatalf("render runs: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected title, header and 4 rows, got %d lines", len(lines))
	}
	if !strings.Contains(lines[3], "granted") || !strings.Contains(lines[3], "400ms") {
		t.Fatalf("unexpected row: %q", lines[3])
	}
}

func TestRenderCodeTableOrdersBySuccess(t *testing.T) {
	var buf bytes.Buffer
	err := RenderCodeTable(&buf, []model.CodeAggregate{
		{Code: "01", Runs: 2, Granted: 2, MatchMsSum: 800, MatchMsRuns: 2},
		{Code: "1100", Runs: 4, Granted: 1, MatchMsSum: 900, MatchMsRuns: 1},
	})
	if err != nil {
		t.Fatalf("render codes: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[2], "1100") || !strings.HasSuffix(lines[2], "900.0") {
		t.Fatalf("expected weakest code first, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "100.00%") {
		t.Fatalf("unexpected second row: %q", lines[3])
	}
}

func TestRenderCurvesSkipsTransmitRuns(t *testing.T) {
	success, fps := attemptSeries(sampleRuns())
	if len(success) != 3 || success[0] != 100 || success[1] != 0 {
		t.Fatalf("unexpected success series: %v", success)
	}
	if fps[2] != 60 {
		t.Fatalf("unexpected fps series: %v", fps)
	}

	var buf bytes.Buffer
	if err := RenderCurvesWithSize(&buf, sampleRuns(), 2, 60, 6, false); err != nil {
		t.Fatalf("render curves: %v", err)
	}
	if !strings.Contains(buf.String(), "Reception Curves") {
		t.Fatalf("expected curves title")
	}
}

func TestRenderCodeCurves(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderCodeCurves(&buf, sampleRuns(), []string{"1100", "0000"}, 1, 60, 4, false); err != nil {
		t.Fatalf("render code curves: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Code 1100") {
		t.Fatalf("expected plot for 1100:\n%s", out)
	}
	if strings.Contains(out, "Code 0000") {
		t.Fatalf("did not expect plot for a code without runs")
	}
}

func TestRenderTrace(t *testing.T) {
	run := model.Run{ID: 7, Kind: model.KindReceive, Code: "101", Result: model.ResultGranted}
	samples := []model.BitSample{
		{Seq: 1, Mean: 230, Bit: "1"},
		{Seq: 2, Mean: 30, Bit: "0"},
		{Seq: 3, Mean: 220, Bit: "1"},
	}
	var buf bytes.Buffer
	if err := RenderTrace(&buf, run, samples, 60, 6, false); err != nil {
		t.Fatalf("render trace: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Trace #7 receive code=101 result=granted", "Range: 0..255", "Bits: 101"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := RenderTrace(&buf, run, nil, 60, 6, false); err != nil {
		t.Fatalf("render trace: %v", err)
	}
	if buf.String() != "No trace recorded.\n" {
		t.Fatalf("unexpected empty trace output: %q", buf.String())
	}
}
