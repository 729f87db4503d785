// Package tui renders a playback session in the terminal. It is a pure
// snapshot consumer: the controller broadcasts state, the TUI draws it and
// translates keystrokes back into controller commands.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nuvio-play/nuvioplay/playback"
)

// Options encapsulates the runtime configuration for the terminal user interface.
type Options struct {
	Controller *playback.Controller
	Title      string
}

// Run executes the Bubble Tea application loop until the session ends or
// the user quits.
func Run(options *Options) error {
	bubble := newBubble(options)

	_, err := tea.NewProgram(bubble, tea.WithAltScreen()).Run()
	return err
}
