package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestPlotScaledSeries(t *testing.T) {
	var buf bytes.Buffer
	err := Plot(&buf, "Test Plot", []Series{
		{Name: "A", Values: []float64{1, 2, 3, 2, 1}},
		{Name: "B", Values: []float64{1, 1, 2, 3, 4}},
	}, PlotOptions{Width: 5, Height: 4})
	if err != nil {
		t.Fatalf("Plot failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Test Plot") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, scaleNote) {
		t.Fatalf("expected scale note in output")
	}
	if !strings.Contains(out, "A: min=1.00 max=3.00") {
		t.Fatalf("expected per-series range in output:\n%s", out)
	}
	if !strings.Contains(out, "Legend:") {
		t.Fatalf("expected legend in output")
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	expectedMin := 1 + 1 + 2 + 4 + 1
	if len(lines) < expectedMin {
		t.Fatalf("expected at least %d lines of output, got %d", expectedMin, len(lines))
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no color codes for a buffer")
	}
}

func TestPlotSharedRange(t *testing.T) {
	var buf bytes.Buffer
	err := Plot(&buf, "", []Series{
		{Name: "Brightness", Values: []float64{20, 240, 20, 240}},
	}, PlotOptions{Width: 12, Height: 5, Min: 0, Max: 255, Guides: []float64{108, 148}})
	if err != nil {
		t.Fatalf("Plot failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Range: 0..255") {
		t.Fatalf("expected shared range note:\n%s", out)
	}
	if strings.Contains(out, scaleNote) {
		t.Fatalf("did not expect scale note on a shared range")
	}
	lines := strings.Split(out, "\n")
	if !strings.HasPrefix(lines[1], " 255 │ ") {
		t.Fatalf("unexpected top axis label: %q", lines[1])
	}
	if !strings.HasPrefix(lines[5], "   0 │ ") {
		t.Fatalf("unexpected bottom axis label: %q", lines[5])
	}
}

func TestPlotSkipsEmptySeries(t *testing.T) {
	var buf bytes.Buffer
	if err := Plot(&buf, "Empty", []Series{{Name: "A"}}, PlotOptions{}); err != nil {
		t.Fatalf("Plot failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestPlotWidthFor(t *testing.T) {
	if got := PlotWidthFor(80); got != 80-axisLabelWidth-3 {
		t.Fatalf("expected width %d, got %d", 80-axisLabelWidth-3, got)
	}
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
	if got := PlotWidthFor(12); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
}

func TestResampleSeries(t *testing.T) {
	got := resampleSeries([]float64{1, 3, 5, 7}, 2)
	if len(got) != 2 || got[0] != 2 || got[1] != 6 {
		t.Fatalf("unexpected downsample: %v", got)
	}
	got = resampleSeries([]float64{0, 10}, 3)
	if len(got) != 3 || got[1] != 5 {
		t.Fatalf("unexpected upsample: %v", got)
	}
}
