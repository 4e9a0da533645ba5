// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and its command channels
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Command is a user action forwarded to the session
type Command int

const (
	CommandStart Command = iota
	CommandStop
	CommandReset
)

func (c Command) String() string {
	switch c {
	case CommandStart:
		return "start"
	case CommandStop:
		return "stop"
	case CommandReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Control holds channels carrying user input out of the TUI
type Control struct {
	Commands chan Command
	Volume   chan VolumeChangeMsg
	Resize   chan ResizeMsg
	Quit     chan QuitMsg
}

// VolumeChangeMsg requests a new volume or mute state
type VolumeChangeMsg struct {
	Volume int
	Muted  bool
}

// ResizeMsg requests a waveform surface of the given cell size
type ResizeMsg struct {
	Cols int
	Rows int
}

// QuitMsg signals the user quit
type QuitMsg struct{}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{
		Commands: make(chan Command, 10),
		Volume:   make(chan VolumeChangeMsg, 10),
		Resize:   make(chan ResizeMsg, 1),
		Quit:     make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(control *Control, serverName string) Model {
	return Model{
		serverName: serverName,
		status:     "Connecting...",
		volume:     100,
		control:    control,
	}
}

// Run creates the TUI program
func Run(control *Control, serverName string) *tea.Program {
	return tea.NewProgram(NewModel(control, serverName), tea.WithAltScreen())
}
