package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nuvio-play/nuvioplay/playback"
)

// bubble is the Bubble Tea model for a playback session.
type bubble struct {
	controller *playback.Controller
	snaps      <-chan playback.Snapshot

	keymap *keymap

	title string
	snap  playback.Snapshot
	bar   progress.Model
	help  help.Model

	width  int
	height int

	quitting bool
}

// snapshotMsg carries a controller snapshot into the update loop.
type snapshotMsg playback.Snapshot

// sessionClosedMsg reports that the controller's snapshot stream ended.
type sessionClosedMsg struct{}

func newBubble(options *Options) *bubble {
	return &bubble{
		controller: options.Controller,
		snaps:      options.Controller.Subscribe(),
		keymap:     newKeymap(),
		title:      options.Title,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:       help.New(),
	}
}

// Init starts the session and begins pumping snapshots.
func (b *bubble) Init() tea.Cmd {
	b.controller.Start()
	return b.waitForSnapshot()
}

// waitForSnapshot blocks on the controller's snapshot stream.
func (b *bubble) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-b.snaps
		if !ok {
			return sessionClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}
