// Package model defines shared data structures.
package model

import "time"

// Run kinds.
const (
	KindTransmit = "transmit"
	KindReceive  = "receive"
	KindLoopback = "loopback"
)

// Run results. Denied is imposed by the caller when a receive run times out;
// Stopped means the user ended the run.
const (
	ResultGranted = "granted"
	ResultDenied  = "denied"
	ResultNone    = "none"
	ResultStopped = "stopped"
)

// TransmitConfig defines transmitter settings.
type TransmitConfig struct {
	Code   string
	FPS    float64
	Random int
	Footer bool
}

// ReceiveConfig defines receiver settings.
type ReceiveConfig struct {
	Code      string
	Threshold float64
	Camera    string
	Timeout   time.Duration
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Kind        string
	Since       *time.Time
	Last        int
	CurveWindow int
	Codes       []string
}

// Run captures a finished transmit, receive or loopback run.
type Run struct {
	ID            int64
	UUID          string
	Kind          string
	Code          string
	StartedAt     time.Time
	EndedAt       time.Time
	FPS           float64
	BitDurationMs float64
	Threshold     float64
	Result        string
	Bitstream     string
	Bits          int
	Frames        int
	DurationMs    int64
}

// Granted reports whether the run ended with a match.
func (r Run) Granted() bool {
	return r.Result == ResultGranted
}

// BitSample stores one decoded bit window of a run.
type BitSample struct {
	Seq      int
	OffsetMs int64
	Mean     float64
	Bit      string
}

// CodeAggregate aggregates runs per code.
type CodeAggregate struct {
	Code        string
	Runs        int
	Granted     int
	MatchMsSum  int64
	MatchMsRuns int
}
