package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// keymap defines the keyboard interactions available during playback.
type keymap struct {
	quit, forceQuit,
	playPause,
	skipBack, skipForward,
	cycleSpeed, boost,
	nextAudio,
	nextSubtitle, subtitlesOff,
	offsetPlus, offsetMinus,
	dismiss key.Binding
}

func newKeymap() *keymap {
	return &keymap{
		quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
		forceQuit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+d"),
			key.WithHelp("ctrl+c", "quit"),
		),
		playPause: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space", "play/pause"),
		),
		skipBack: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "-10s"),
		),
		skipForward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "+10s"),
		),
		cycleSpeed: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "speed"),
		),
		boost: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "boost"),
		),
		nextAudio: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "audio track"),
		),
		nextSubtitle: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "subtitle track"),
		),
		subtitlesOff: key.NewBinding(
			key.WithKeys("V"),
			key.WithHelp("V", "subtitles off"),
		),
		offsetPlus: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "subs +0.5s"),
		),
		offsetMinus: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "subs -0.5s"),
		),
		dismiss: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "dismiss"),
		),
	}
}

// help returns the bindings shown in the footer.
func (k *keymap) help() []key.Binding {
	return []key.Binding{
		k.playPause, k.skipBack, k.skipForward,
		k.cycleSpeed, k.boost,
		k.nextAudio, k.nextSubtitle,
		k.quit,
	}
}
