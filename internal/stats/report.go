package stats

import (
	"context"

	"github.com/verte-zerg/lumalink/internal/model"
	"github.com/verte-zerg/lumalink/internal/store"
)

// Trace is the decoded bit history of one run.
type Trace struct {
	Run     model.Run
	Samples []model.BitSample
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Runs         []model.Run
	WindowRunIDs []int64
	CodesAll     []model.CodeAggregate
	CodesWindow  []model.CodeAggregate
	// Trace is the newest run in the window with decoded bits, if any.
	Trace *Trace
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	runs, err := st.ListRuns(ctx, cfg)
	if err != nil {
		return Report{}, err
	}

	allIDs := runIDs(runs)
	windowIDs := lastRunIDs(runs, cfg.CurveWindow)
	codesAll, err := st.ListCodeAggregatesForRuns(ctx, allIDs)
	if err != nil {
		return Report{}, err
	}
	codesWindow, err := st.ListCodeAggregatesForRuns(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Runs:         runs,
		WindowRunIDs: windowIDs,
		CodesAll:     codesAll,
		CodesWindow:  codesWindow,
	}
	traceID, err := st.LatestRunWithSamples(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}
	if traceID == 0 {
		return report, nil
	}
	trace, err := LoadTrace(ctx, st, traceID)
	if err != nil {
		return Report{}, err
	}
	report.Trace = &trace
	return report, nil
}

// LoadTrace loads a run with its decoded bits.
func LoadTrace(ctx context.Context, st *store.Store, id int64) (Trace, error) {
	run, err := st.GetRun(ctx, id)
	if err != nil {
		return Trace{}, err
	}
	samples, err := st.ListBitSamples(ctx, id)
	if err != nil {
		return Trace{}, err
	}
	return Trace{Run: run, Samples: samples}, nil
}

// CurveCodes returns the codes to plot: the configured ones, or the most
// frequent codes in the window.
func (r Report) CurveCodes(cfg model.StatsConfig, n int) []string {
	if len(cfg.Codes) > 0 {
		return cfg.Codes
	}
	return TopCodesByRuns(r.CodesWindow, n)
}

func runIDs(runs []model.Run) []int64 {
	ids := make([]int64, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}

func lastRunIDs(runs []model.Run, window int) []int64 {
	if window <= 0 || len(runs) <= window {
		return runIDs(runs)
	}
	return runIDs(runs[len(runs)-window:])
}
