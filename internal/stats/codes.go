package stats

import (
	"sort"

	"github.com/verte-zerg/lumalink/internal/model"
)

// TopCodesByRuns returns the n codes with the most runs.
func TopCodesByRuns(aggs []model.CodeAggregate, n int) []string {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	sorted := make([]model.CodeAggregate, len(aggs))
	copy(sorted, aggs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Runs == sorted[j].Runs {
			return sorted[i].Code < sorted[j].Code
		}
		return sorted[i].Runs > sorted[j].Runs
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]string, 0, n)
	for _, agg := range sorted[:n] {
		out = append(out, agg.Code)
	}
	return out
}

// WeakestCodes returns up to top codes with the lowest success rate.
// A non-positive top returns every code.
func WeakestCodes(aggs []model.CodeAggregate, top int) []string {
	if len(aggs) == 0 {
		return nil
	}
	sorted := make([]model.CodeAggregate, len(aggs))
	copy(sorted, aggs)
	sort.Slice(sorted, func(i, j int) bool {
		ri, rj := successRate(sorted[i]), successRate(sorted[j])
		if ri == rj {
			return sorted[i].Code < sorted[j].Code
		}
		return ri < rj
	})
	if top <= 0 || top > len(sorted) {
		top = len(sorted)
	}
	out := make([]string, 0, top)
	for _, agg := range sorted[:top] {
		out = append(out, agg.Code)
	}
	return out
}

func successRate(agg model.CodeAggregate) float64 {
	if agg.Runs == 0 {
		return 0
	}
	return float64(agg.Granted) / float64(agg.Runs)
}

func avgMatchMs(agg model.CodeAggregate) float64 {
	if agg.MatchMsRuns == 0 {
		return 0
	}
	return float64(agg.MatchMsSum) / float64(agg.MatchMsRuns)
}
