package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/lumalink/internal/clock"
	"github.com/verte-zerg/lumalink/internal/transmit"
)

func newTestTransmitter(code string) *TransmitModel {
	clk := clock.NewDriven()
	enc := transmit.New(clk)
	return NewTransmitModel(enc, clk, code, 60, true)
}

// startTransmitter runs the start command while feeding 60 Hz frames until
// calibration completes.
func startTransmitter(t *testing.T, m *TransmitModel) {
	t.Helper()
	done := make(chan tea.Msg, 1)
	go func() { done <- m.start()() }()
	base := time.Unix(0, 0)
	deadline := time.Now().Add(5 * time.Second)
	for i := 1; ; i++ {
		if m.clk.Pending() == 0 {
			time.Sleep(time.Millisecond)
		}
		m.Update(frameMsg(base.Add(time.Duration(i) * time.Second / 60)))
		select {
		case msg := <-done:
			m.Update(msg)
			return
		default:
		}
		if time.Now().After(deadline) {
			t.Fatalf("transmitter did not start")
		}
	}
}

func TestTransmitFooterBeforeStart(t *testing.T) {
	m := newTestTransmitter("1100")
	out := m.renderFooter()
	if !strings.Contains(out, "Calibrating display refresh for code 1100") {
		t.Fatalf("unexpected footer: %s", out)
	}
}

func TestTransmitFooterFormats(t *testing.T) {
	m := newTestTransmitter("1100")
	startTransmitter(t, m)
	if !m.started {
		t.Fatalf("expected started model, err=%v", m.err)
	}
	out := m.renderFooter()
	if !containsAll(out, []string{"Code 1100", "Bit 1/4 (1)", "33.3 ms/bit", "f: footer"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
	if m.enc.DisplayColor() != transmit.Light {
		t.Fatalf("expected light display for first bit")
	}
}

func TestTransmitKeysToggleFooterAndQuit(t *testing.T) {
	m := newTestTransmitter("10")
	startTransmitter(t, m)
	m.Update(tea.WindowSizeMsg{Width: 20, Height: 5})
	if got := len(strings.Split(m.View(), "\n")); got != 5 {
		t.Fatalf("expected 5 view lines, got %d", got)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	if m.showFooter {
		t.Fatalf("expected footer hidden")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
	if m.enc.Snapshot().Active {
		t.Fatalf("expected encoder stopped")
	}
	res := m.Result()
	if !res.Started || res.EndedAt.IsZero() || res.FPS != 60 {
		t.Fatalf("unexpected result: %+v", res)
	}

	// Frames after quitting still advance the clock but stop ticking.
	if _, cmd := m.Update(frameMsg(time.Unix(10, 0))); cmd != nil {
		t.Fatalf("expected no further ticks after quit")
	}
}

func TestNextFrameKeepsDeadlines(t *testing.T) {
	base := time.Unix(100, 0)
	interval := time.Second / 60
	var frame int64
	var deadline time.Time
	for i := 0; i < 120; i++ {
		// Every delivery lands 3ms after its deadline.
		now := base.Add(time.Duration(frame)*interval + 3*time.Millisecond)
		frame, deadline = nextFrame(base, frame, interval, now)
	}
	if frame != 120 {
		t.Fatalf("expected frame 120, got %d", frame)
	}
	if want := base.Add(120 * interval); !deadline.Equal(want) {
		t.Fatalf("expected deadline %v, got %v", want, deadline)
	}
}

func TestNextFrameSkipsStalledFrames(t *testing.T) {
	base := time.Unix(100, 0)
	interval := 10 * time.Millisecond
	frame, deadline := nextFrame(base, 1, interval, base.Add(100*time.Millisecond))
	if frame != 10 {
		t.Fatalf("expected frame 10, got %d", frame)
	}
	if !deadline.Equal(base.Add(100 * time.Millisecond)) {
		t.Fatalf("unexpected deadline %v", deadline)
	}
}

// TestTransmitCalibratesOnRealTicks runs the model's own tick commands in
// real time with no terminal attached.
func TestTransmitCalibratesOnRealTicks(t *testing.T) {
	if testing.Short() {
		t.Skip("runs for about a second of wall time")
	}
	m := newTestTransmitter("1100")
	m.base = time.Now()
	done := make(chan tea.Msg, 1)
	go func() { done <- m.start()() }()

	cmd := m.tick()
	deadline := time.Now().Add(5 * time.Second)
	for {
		msg := cmd()
		// Simulate a busy render loop between frames.
		time.Sleep(2 * time.Millisecond)
		_, cmd = m.Update(msg)
		select {
		case msg := <-done:
			m.Update(msg)
			if !m.started {
				t.Fatalf("expected started model, err=%v", m.err)
			}
			if got := m.enc.FPS(); got != 60 {
				t.Fatalf("expected 60 fps, got %v", got)
			}
			m.stop()
			return
		default:
		}
		if cmd == nil || time.Now().After(deadline) {
			t.Fatalf("transmitter did not start")
		}
	}
}

func TestRefreshInterval(t *testing.T) {
	if got := refreshInterval(0); got != clock.DefaultInterval {
		t.Fatalf("expected default interval, got %v", got)
	}
	if got := refreshInterval(500); got != time.Second/120 {
		t.Fatalf("expected clamped interval, got %v", got)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
