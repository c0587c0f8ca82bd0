// Package stats contains run statistics and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/lumalink/internal/model"
	"github.com/verte-zerg/lumalink/internal/signal"
)

const sparkChars = " .:-=+*#%@"

// Summary aggregates a set of runs. Attempts are runs that could end with a
// match, so transmit runs only count towards Runs and AvgFPS.
type Summary struct {
	Runs        int
	Attempts    int
	Granted     int
	SuccessRate float64
	AvgMatchMs  float64
	BestMatchMs float64
	AvgFPS      float64
}

// Summarize computes a Summary over runs.
func Summarize(runs []model.Run) Summary {
	var sum Summary
	sum.Runs = len(runs)
	var fpsTotal, matchTotal float64
	fpsRuns := 0
	for _, r := range runs {
		if r.FPS > 0 {
			fpsTotal += r.FPS
			fpsRuns++
		}
		if r.Kind == model.KindTransmit {
			continue
		}
		sum.Attempts++
		if !r.Granted() {
			continue
		}
		sum.Granted++
		ms := float64(r.DurationMs)
		matchTotal += ms
		if sum.BestMatchMs == 0 || ms < sum.BestMatchMs {
			sum.BestMatchMs = ms
		}
	}
	if sum.Attempts > 0 {
		sum.SuccessRate = float64(sum.Granted) / float64(sum.Attempts)
	}
	if sum.Granted > 0 {
		sum.AvgMatchMs = matchTotal / float64(sum.Granted)
	}
	if fpsRuns > 0 {
		sum.AvgFPS = fpsTotal / float64(fpsRuns)
	}
	return sum
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := seriesMinMax(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// RenderSummary prints a summary of runs.
func RenderSummary(w io.Writer, runs []model.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	sum := Summarize(runs)
	lines := []string{
		"Summary",
		fmt.Sprintf("Runs: %d", sum.Runs),
		fmt.Sprintf("Attempts: %d", sum.Attempts),
		fmt.Sprintf("Success Rate: %.2f%%", sum.SuccessRate*100),
		fmt.Sprintf("Avg Time to Match: %s", formatMs(sum.AvgMatchMs)),
		fmt.Sprintf("Best Time to Match: %s", formatMs(sum.BestMatchMs)),
		fmt.Sprintf("Avg FPS: %.2f", sum.AvgFPS),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatMs(ms float64) string {
	if ms <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f ms", ms)
}

// RenderCurves prints success and FPS curves across attempts.
func RenderCurves(w io.Writer, runs []model.Run, window int) error {
	return RenderCurvesWithSize(w, runs, window, 0, 10, false)
}

// RenderCurvesWithSize prints success and FPS curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, runs []model.Run, window, totalWidth, height int, useColor bool) error {
	success, fps := attemptSeries(runs)
	if len(success) == 0 {
		return nil
	}
	return Plot(w, "Reception Curves", []Series{
		{Name: "Success %", Values: MovingAverage(success, window)},
		{Name: "FPS", Values: MovingAverage(fps, window)},
	}, PlotOptions{Width: widthFor(totalWidth), Height: height, Color: useColor})
}

func attemptSeries(runs []model.Run) (success, fps []float64) {
	for _, r := range runs {
		if r.Kind == model.KindTransmit {
			continue
		}
		v := 0.0
		if r.Granted() {
			v = 100
		}
		success = append(success, v)
		fps = append(fps, r.FPS)
	}
	return success, fps
}

func widthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return 0
	}
	return PlotWidthFor(totalWidth)
}

// RenderRunTable prints one row per run, newest last.
func RenderRunTable(w io.Writer, runs []model.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Runs"); err != nil {
		return err
	}
	headers := []string{"ID", "Ended", "Kind", "Code", "Result", "Bits", "FPS", "Duration"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, RunRow(r))
	}
	rightAlign := map[int]bool{0: true, 5: true, 6: true, 7: true}
	return writeLines(w, formatTable(headers, rows, rightAlign))
}

// RunRow formats a run as table cells.
func RunRow(r model.Run) []string {
	return []string{
		fmt.Sprintf("%d", r.ID),
		r.EndedAt.Local().Format("2006-01-02 15:04"),
		r.Kind,
		r.Code,
		r.Result,
		fmt.Sprintf("%d", r.Bits),
		fmt.Sprintf("%.1f", r.FPS),
		(time.Duration(r.DurationMs) * time.Millisecond).String(),
	}
}

// RenderCodeTable prints per-code aggregates, least reliable first.
func RenderCodeTable(w io.Writer, aggs []model.CodeAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No code stats found.")
		return err
	}
	sorted := make([]model.CodeAggregate, len(aggs))
	copy(sorted, aggs)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := successRate(sorted[i]), successRate(sorted[j])
		if ri == rj {
			return sorted[i].Code < sorted[j].Code
		}
		return ri < rj
	})

	if _, err := fmt.Fprintln(w, "Per-Code (Windowed)"); err != nil {
		return err
	}
	headers := []string{"Code", "Runs", "Granted", "Success", "Avg Match (ms)"}
	rows := make([][]string, 0, len(sorted))
	for _, agg := range sorted {
		rows = append(rows, []string{
			agg.Code,
			fmt.Sprintf("%d", agg.Runs),
			fmt.Sprintf("%d", agg.Granted),
			fmt.Sprintf("%.2f%%", successRate(agg)*100),
			fmt.Sprintf("%.1f", avgMatchMs(agg)),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true}
	return writeLines(w, formatTable(headers, rows, rightAlign))
}

// RenderCodeCurves prints per-code success and time-to-match curves.
func RenderCodeCurves(w io.Writer, runs []model.Run, codes []string, window, totalWidth, height int, useColor bool) error {
	if len(codes) == 0 || len(runs) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Per-Code Curves"); err != nil {
		return err
	}
	for _, code := range codes {
		var success, match []float64
		for _, r := range runs {
			if r.Code != code || r.Kind == model.KindTransmit {
				continue
			}
			s, m := 0.0, 0.0
			if r.Granted() {
				s, m = 100, float64(r.DurationMs)
			}
			success = append(success, s)
			match = append(match, m)
		}
		if len(success) == 0 {
			continue
		}
		if err := Plot(w, fmt.Sprintf("Code %s", code), []Series{
			{Name: "Success %", Values: MovingAverage(success, window)},
			{Name: "Match ms", Values: MovingAverage(match, window)},
		}, PlotOptions{Width: widthFor(totalWidth), Height: height, Color: useColor}); err != nil {
			return err
		}
	}
	return nil
}

// RenderTrace plots the brightness of each decoded bit window of a run
// against the classifier band.
func RenderTrace(w io.Writer, run model.Run, samples []model.BitSample, totalWidth, height int, useColor bool) error {
	if len(samples) == 0 {
		_, err := fmt.Fprintln(w, "No trace recorded.")
		return err
	}
	means := make([]float64, len(samples))
	bits := make([]float64, len(samples))
	var stream strings.Builder
	for i, s := range samples {
		means[i] = s.Mean
		if s.Bit == "1" {
			bits[i] = 255
		}
		stream.WriteString(s.Bit)
	}
	threshold := run.Threshold
	if threshold <= 0 {
		threshold = signal.DefaultThreshold
	}
	title := fmt.Sprintf("Trace #%d %s code=%s result=%s", run.ID, run.Kind, run.Code, run.Result)
	if err := Plot(w, title, []Series{
		{Name: "Brightness", Values: means},
		{Name: "Bit", Values: bits},
	}, PlotOptions{
		Width:  widthFor(totalWidth),
		Height: height,
		Color:  useColor,
		Min:    0,
		Max:    255,
		Guides: []float64{threshold - signal.HysteresisMargin, threshold + signal.HysteresisMargin},
	}); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Bits: %s\n\n", stream.String())
	return err
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
