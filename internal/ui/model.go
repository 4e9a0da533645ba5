// ABOUTME: Bubbletea model for the LiveVoice TUI
// ABOUTME: Shows session status, live waveforms and key bindings
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/livevoice/livevoice-go/internal/version"
	"github.com/livevoice/livevoice-go/pkg/livevoice"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00E676"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF3D71"))
	recStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF3D71"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777"))
)

// Rows used by everything except the waveform
const chromeRows = 9

// Model represents the TUI state
type Model struct {
	serverName string

	// Session
	recording bool
	status    string
	errText   string

	// Playback
	volume int
	muted  bool

	// Stats
	sent     int64
	dropped  int64
	received int64
	active   int

	waveform string

	width   int
	height  int
	control *Control
}

// StateMsg carries a session state change
type StateMsg livevoice.SessionState

// FrameMsg carries a rendered waveform frame
type FrameMsg string

// StatsMsg carries a session statistics snapshot
type StatsMsg livevoice.Stats

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.requestResize()
	case StateMsg:
		m.recording = msg.Recording
		m.status = msg.Status
		m.errText = msg.Error
	case FrameMsg:
		m.waveform = string(msg)
	case StatsMsg:
		m.sent = msg.FramesSent
		m.dropped = msg.FramesDropped
		m.received = msg.ChunksReceived
		m.active = msg.ActiveSources
	}

	return m, nil
}

// WaveformSize returns the waveform area in cells for a terminal size
func WaveformSize(width, height int) (cols, rows int) {
	cols = width - 4
	if cols < 10 {
		cols = 10
	}
	rows = height - chromeRows
	if rows < 4 {
		rows = 4
	}
	return cols, rows
}

func (m Model) requestResize() {
	if m.control == nil {
		return
	}
	cols, rows := WaveformSize(m.width, m.height)

	// Keep only the latest size
	select {
	case <-m.control.Resize:
	default:
	}
	select {
	case m.control.Resize <- ResizeMsg{Cols: cols, Rows: rows}:
	default:
	}
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderWaveform())
	b.WriteString(m.renderStats())
	b.WriteString(m.renderHelp())
	return b.String()
}

// renderHeader renders title, status and error lines
func (m Model) renderHeader() string {
	title := titleStyle.Render(version.String())
	server := dimStyle.Render(m.serverName)

	status := m.status
	if m.recording {
		status = recStyle.Render("● ") + status
	}

	s := fmt.Sprintf("%s  %s\n", title, server)
	s += fmt.Sprintf("Status: %s\n", status)
	if m.errText != "" {
		s += errorStyle.Render(truncate(m.errText, m.width)) + "\n"
	} else {
		s += "\n"
	}
	return s + "\n"
}

// renderWaveform renders the latest frame or a blank area
func (m Model) renderWaveform() string {
	if m.waveform == "" {
		_, rows := WaveformSize(m.width, m.height)
		return strings.Repeat("\n", rows)
	}
	return m.waveform + "\n"
}

// renderStats renders volume and counters
func (m Model) renderStats() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}
	return fmt.Sprintf("\nVolume: [%s] %d%%%s   Sent: %d  Dropped: %d  RX: %d  Playing: %d\n",
		renderBar(m.volume, 100, 10), m.volume, muteIcon, m.sent, m.dropped, m.received, m.active)
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	reset := "r:Reset"
	if m.recording {
		reset = dimStyle.Render(reset)
	}
	return fmt.Sprintf("space:Start/Stop  %s  ↑/↓:Volume  m:Mute  q:Quit\n", reset)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.send(func(c *Control) {
			select {
			case c.Quit <- QuitMsg{}:
			default:
			}
		})
		return m, tea.Quit
	case " ":
		if m.recording {
			m.sendCommand(CommandStop)
		} else {
			m.sendCommand(CommandStart)
		}
	case "r":
		// Reset is disabled while recording
		if !m.recording {
			m.sendCommand(CommandReset)
		}
	case "up":
		if m.volume < 100 {
			m.volume = min(m.volume+5, 100)
			m.sendVolume()
		}
	case "down":
		if m.volume > 0 {
			m.volume = max(m.volume-5, 0)
			m.sendVolume()
		}
	case "m":
		m.muted = !m.muted
		m.sendVolume()
	}

	return m, nil
}

func (m Model) send(fn func(*Control)) {
	if m.control != nil {
		fn(m.control)
	}
}

func (m Model) sendCommand(cmd Command) {
	m.send(func(c *Control) {
		select {
		case c.Commands <- cmd:
		default:
		}
	})
}

func (m Model) sendVolume() {
	m.send(func(c *Control) {
		select {
		case c.Volume <- VolumeChangeMsg{Volume: m.volume, Muted: m.muted}:
		default:
		}
	})
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if length < 4 || len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
