// Package tui provides the Bubble Tea transmitter screen and receiver monitor.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/lumalink/internal/clock"
	"github.com/verte-zerg/lumalink/internal/transmit"
)

type frameMsg time.Time

type transmitStartedMsg struct {
	at  time.Time
	err error
}

var (
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// TransmitResult describes a finished transmission.
type TransmitResult struct {
	Started   bool
	StartedAt time.Time
	EndedAt   time.Time
	FPS       float64
	BitMs     float64
	Err       error
}

// TransmitModel paints the whole terminal with the encoder's display color.
// Terminal refresh ticks drive the encoder's clock.
type TransmitModel struct {
	enc       *transmit.Encoder
	clk       *clock.Driven
	code      string
	targetFPS float64
	interval  time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	width      int
	height     int
	showFooter bool
	base       time.Time
	frame      int64

	started   bool
	startedAt time.Time
	endedAt   time.Time
	fps       float64
	bitMs     float64
	err       error
	quitting  bool
}

// NewTransmitModel constructs the transmitter screen. The encoder must have
// been built on clk.
func NewTransmitModel(enc *transmit.Encoder, clk *clock.Driven, code string, targetFPS float64, showFooter bool) *TransmitModel {
	ctx, cancel := context.WithCancel(context.Background())
	return &TransmitModel{
		enc:        enc,
		clk:        clk,
		code:       code,
		targetFPS:  targetFPS,
		interval:   refreshInterval(targetFPS),
		ctx:        ctx,
		cancel:     cancel,
		showFooter: showFooter,
	}
}

func refreshInterval(targetFPS float64) time.Duration {
	if targetFPS <= 0 {
		return clock.DefaultInterval
	}
	return time.Duration(float64(time.Second) / transmit.ClampFPS(targetFPS))
}

// Init implements tea.Model.
func (m *TransmitModel) Init() tea.Cmd {
	m.base = time.Now()
	return tea.Batch(m.tick(), m.start())
}

// tick schedules the next frame at its deadline on the base timeline and
// reports that deadline rather than the delivery time, so late deliveries
// never stretch the frame period.
func (m *TransmitModel) tick() tea.Cmd {
	var deadline time.Time
	m.frame, deadline = nextFrame(m.base, m.frame, m.interval, time.Now())
	return tea.Tick(time.Until(deadline), func(time.Time) tea.Msg {
		return frameMsg(deadline)
	})
}

// nextFrame returns the frame after frame and its deadline. Frames already
// more than one interval overdue at now are dropped.
func nextFrame(base time.Time, frame int64, interval time.Duration, now time.Time) (int64, time.Time) {
	frame++
	if behind := now.Sub(base.Add(time.Duration(frame) * interval)); behind > interval {
		frame += int64(behind / interval)
	}
	return frame, base.Add(time.Duration(frame) * interval)
}

// start blocks in its own goroutine while calibration consumes frames.
func (m *TransmitModel) start() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		err := m.enc.Start(ctx, m.code, m.targetFPS)
		return transmitStartedMsg{at: time.Now(), err: err}
	}
}

// Update implements tea.Model.
func (m *TransmitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case frameMsg:
		t := time.Time(msg)
		if m.base.IsZero() {
			m.base = t
		}
		m.clk.Set(t.Sub(m.base))
		if m.quitting {
			return m, nil
		}
		return m, m.tick()
	case transmitStartedMsg:
		if msg.err != nil {
			if m.quitting {
				return m, nil
			}
			m.err = msg.err
			m.quitting = true
			return m, tea.Quit
		}
		m.started = true
		m.startedAt = msg.at
		m.fps = m.enc.FPS()
		m.bitMs = float64(m.enc.BitDuration()) / float64(time.Millisecond)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.stop()
			return m, tea.Quit
		case "f":
			m.showFooter = !m.showFooter
			return m, nil
		}
	}
	return m, nil
}

func (m *TransmitModel) stop() {
	if m.quitting {
		return
	}
	m.quitting = true
	m.cancel()
	m.enc.Stop()
	if m.started {
		m.endedAt = time.Now()
	}
}

// View implements tea.Model.
func (m *TransmitModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	bg := lipgloss.Color(string(m.enc.DisplayColor()))
	if !m.showFooter || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, "",
			lipgloss.WithWhitespaceBackground(bg))
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, "",
		lipgloss.WithWhitespaceBackground(bg))
	footer := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, m.renderFooter())
	return body + "\n" + footer
}

func (m *TransmitModel) renderFooter() string {
	if m.err != nil {
		return errorStyle.Render(m.err.Error())
	}
	if !m.started {
		return footerStyle.Render(fmt.Sprintf("Calibrating display refresh for code %s...  q: quit", m.code))
	}
	st := m.enc.Snapshot()
	segments := []string{fmt.Sprintf("Code %s", m.code)}
	if st.Active {
		segments = append(segments, fmt.Sprintf("Bit %d/%d (%s)", st.BitIndex+1, len(m.code), st.Bit))
	}
	segments = append(segments,
		fmt.Sprintf("%.1f FPS", st.MeasuredFPS),
		fmt.Sprintf("%.1f ms/bit", m.bitMs),
		"f: footer  q: quit",
	)
	return footerStyle.Render(strings.Join(segments, "  "))
}

// Result reports the transmission after the program exits.
func (m *TransmitModel) Result() TransmitResult {
	res := TransmitResult{
		Started:   m.started,
		StartedAt: m.startedAt,
		EndedAt:   m.endedAt,
		FPS:       m.fps,
		BitMs:     m.bitMs,
		Err:       m.err,
	}
	if res.Started && res.EndedAt.IsZero() {
		res.EndedAt = time.Now()
	}
	return res
}
