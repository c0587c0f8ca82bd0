package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/lumalink/internal/capture"
	"github.com/verte-zerg/lumalink/internal/model"
	"github.com/verte-zerg/lumalink/internal/receive"
	"github.com/verte-zerg/lumalink/internal/signal"
	"github.com/verte-zerg/lumalink/internal/stats"
)

const (
	// DefaultTimeout is how long a receiver listens before denying access.
	DefaultTimeout = 30 * time.Second
	pollInterval   = 100 * time.Millisecond
	historySize    = 48
)

type pollMsg time.Time

type receiveStartedMsg struct {
	at  time.Time
	err error
}

type matchMsg receive.Snapshot

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	grantedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	deniedStyle  = errorStyle.Bold(true)
	panelStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
)

// ReceiveOutcome describes a finished receiving run. Result is one of the
// model.Result values; it stays empty while the run is undecided.
type ReceiveOutcome struct {
	Result    string
	Started   bool
	StartedAt time.Time
	EndedAt   time.Time
	Snapshot  receive.Snapshot
	Err       error
}

// ReceiveModel monitors a decoder and imposes the timeout.
type ReceiveModel struct {
	dec         *receive.Decoder
	feed        *capture.Feed
	surface     *capture.Surface
	opts        receive.Options
	timeout     time.Duration
	matches     <-chan receive.Snapshot
	cameraLabel string

	ctx    context.Context
	cancel context.CancelFunc

	width    int
	height   int
	progress progress.Model
	history  []float64
	snap     receive.Snapshot

	started   bool
	startedAt time.Time
	endedAt   time.Time
	deadline  time.Time
	now       time.Time
	result    string
	err       error
}

// NewReceiveModel constructs the receiver monitor. matches must be fed from
// the decoder's match callback; a timeout of 0 listens until the user quits.
func NewReceiveModel(dec *receive.Decoder, feed *capture.Feed, surface *capture.Surface, opts receive.Options, timeout time.Duration, matches <-chan receive.Snapshot, cameraLabel string) *ReceiveModel {
	ctx, cancel := context.WithCancel(context.Background())
	return &ReceiveModel{
		dec:         dec,
		feed:        feed,
		surface:     surface,
		opts:        opts,
		timeout:     timeout,
		matches:     matches,
		cameraLabel: cameraLabel,
		ctx:         ctx,
		cancel:      cancel,
		progress:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

// Init implements tea.Model.
func (m *ReceiveModel) Init() tea.Cmd {
	return tea.Batch(m.start(), m.poll(), m.waitMatch())
}

func (m *ReceiveModel) start() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		err := m.dec.Start(ctx, m.feed, m.surface, m.opts)
		return receiveStartedMsg{at: time.Now(), err: err}
	}
}

func (m *ReceiveModel) poll() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

func (m *ReceiveModel) waitMatch() tea.Cmd {
	if m.matches == nil {
		return nil
	}
	ctx, matches := m.ctx, m.matches
	return func() tea.Msg {
		select {
		case snap, ok := <-matches:
			if !ok {
				return nil
			}
			return matchMsg(snap)
		case <-ctx.Done():
			return nil
		}
	}
}

// Update implements tea.Model.
func (m *ReceiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = clampInt(msg.Width-24, 10, 60)
		return m, nil
	case receiveStartedMsg:
		if m.result != "" {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			m.finish(model.ResultNone, msg.at)
			return m, tea.Quit
		}
		m.started = true
		m.startedAt = msg.at
		m.now = msg.at
		if m.timeout > 0 {
			m.deadline = msg.at.Add(m.timeout)
		}
		return m, nil
	case pollMsg:
		if m.result != "" {
			return m, nil
		}
		m.now = time.Time(msg)
		if m.started {
			m.snap = m.dec.Snapshot()
			if m.snap.Active {
				m.history = append(m.history, m.snap.Brightness)
				if len(m.history) > historySize {
					m.history = m.history[len(m.history)-historySize:]
				}
			}
			if !m.deadline.IsZero() && !m.now.Before(m.deadline) {
				m.finish(model.ResultDenied, m.now)
				return m, nil
			}
		}
		return m, m.poll()
	case matchMsg:
		if m.result != "" {
			return m, nil
		}
		m.snap = receive.Snapshot(msg)
		m.finish(model.ResultGranted, time.Now())
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.result == "" {
				m.finish(model.ResultStopped, time.Now())
			}
			return m, tea.Quit
		case "r":
			if m.result == "" && m.started {
				m.dec.Reset()
				m.history = nil
				m.snap = m.dec.Snapshot()
			}
			return m, nil
		}
	}
	return m, nil
}

func (m *ReceiveModel) finish(result string, at time.Time) {
	m.result = result
	m.endedAt = at
	m.dec.Stop()
	m.cancel()
}

// View implements tea.Model.
func (m *ReceiveModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	inner := clampInt(m.width-6, 20, 100)
	lines := []string{
		titleStyle.Render("lumalink receive"),
		"",
		row("Camera", runewidth.Truncate(m.cameraName(), inner-12, "...")),
		row("Code", fmt.Sprintf("%s   %s %.0f", m.codeLabel(), labelStyle.Render("Threshold"), m.threshold())),
		row("Brightness", fmt.Sprintf("%6.1f  %s", m.snap.Brightness, stats.Sparkline(m.history))),
		row("Last bit", fmt.Sprintf("%-3s %s %5.1f  %s %d  %s %s",
			orDash(m.snap.LastBit),
			labelStyle.Render("FPS"), m.snap.FPS,
			labelStyle.Render("Frames"), m.snap.Frames,
			labelStyle.Render("State"), m.snap.Classifier)),
		labelStyle.Render("Bitstream"),
		wrapStyledRunes(buildStyledBits(m.snap.Bitstream, m.opts.ExpectedCode), inner),
		"",
	}
	if bar := m.renderTimeout(); bar != "" {
		lines = append(lines, bar)
	}
	lines = append(lines, m.renderStatus(), footerStyle.Render(m.renderHelp()))
	panel := panelStyle.Width(inner + 2).Render(strings.Join(lines, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-11s", label)) + " " + valueStyle.Render(value)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (m *ReceiveModel) cameraName() string {
	if m.cameraLabel != "" {
		return m.cameraLabel
	}
	if m.opts.CameraID != "" {
		return m.opts.CameraID
	}
	return "default"
}

func (m *ReceiveModel) codeLabel() string {
	if m.opts.ExpectedCode == "" {
		return "(none, monitoring only)"
	}
	return m.opts.ExpectedCode
}

func (m *ReceiveModel) threshold() float64 {
	if m.opts.Threshold <= 0 {
		return signal.DefaultThreshold
	}
	return m.opts.Threshold
}

func (m *ReceiveModel) renderTimeout() string {
	if m.timeout <= 0 || !m.started {
		return ""
	}
	elapsed := m.now.Sub(m.startedAt)
	if m.result != "" {
		elapsed = m.endedAt.Sub(m.startedAt)
	}
	pct := float64(elapsed) / float64(m.timeout)
	if pct > 1 {
		pct = 1
	}
	if pct < 0 {
		pct = 0
	}
	left := m.timeout - elapsed
	if left < 0 {
		left = 0
	}
	return row("Timeout", m.progress.ViewAs(pct)+" "+left.Truncate(time.Second).String())
}

func (m *ReceiveModel) renderStatus() string {
	switch {
	case m.err != nil:
		return errorStyle.Render(m.err.Error())
	case m.result == model.ResultGranted:
		return grantedStyle.Render("ACCESS GRANTED")
	case m.result == model.ResultDenied:
		return deniedStyle.Render("ACCESS DENIED")
	case m.result == model.ResultStopped:
		return labelStyle.Render("Stopped")
	case !m.started:
		return labelStyle.Render("Opening camera...")
	default:
		return valueStyle.Render("Listening...")
	}
}

func (m *ReceiveModel) renderHelp() string {
	if m.result != "" {
		return "q: quit"
	}
	return "r: reset  q: quit"
}

// Outcome reports the run after the program exits.
func (m *ReceiveModel) Outcome() ReceiveOutcome {
	out := ReceiveOutcome{
		Result:    m.result,
		Started:   m.started,
		StartedAt: m.startedAt,
		EndedAt:   m.endedAt,
		Snapshot:  m.snap,
		Err:       m.err,
	}
	if out.Result == "" {
		out.Result = model.ResultStopped
	}
	if out.Started && out.EndedAt.IsZero() {
		out.EndedAt = time.Now()
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
