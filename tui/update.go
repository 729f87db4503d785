package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nuvio-play/nuvioplay/adapter"
	"github.com/nuvio-play/nuvioplay/playback"
	"github.com/nuvio-play/nuvioplay/track"
)

const skipStep = 10

// Update routes messages: terminal events mutate the view, keystrokes become
// controller commands, snapshots replace the rendered state wholesale.
func (b *bubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.bar.Width = msg.Width - 14
		b.help.Width = msg.Width
		return b, nil

	case snapshotMsg:
		b.snap = playback.Snapshot(msg)
		if b.snap.State == playback.StateEnded {
			return b.quit()
		}
		return b, b.waitForSnapshot()

	case sessionClosedMsg:
		b.quitting = true
		return b, tea.Quit

	case tea.KeyMsg:
		return b.handleKey(msg)
	}

	return b, nil
}

func (b *bubble) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := b.keymap

	switch {
	case key.Matches(msg, k.forceQuit), key.Matches(msg, k.quit):
		return b.quit()

	case key.Matches(msg, k.playPause):
		b.controller.TogglePlayback()

	case key.Matches(msg, k.skipBack):
		b.controller.Skip(-skipStep)

	case key.Matches(msg, k.skipForward):
		b.controller.Skip(skipStep)

	case key.Matches(msg, k.cycleSpeed):
		b.controller.CycleSpeed()

	case key.Matches(msg, k.boost):
		// Terminals deliver no key-up, so boost toggles instead of holding.
		if b.snap.Boosted {
			b.controller.DeactivateBoost()
		} else {
			b.controller.ActivateBoost()
		}

	case key.Matches(msg, k.nextAudio):
		if id, ok := cycleTracks(b.snap.Audio, b.snap.SelectedAudioID); ok {
			b.controller.SelectAudioTrack(id)
		}

	case key.Matches(msg, k.nextSubtitle):
		if id, ok := cycleTracks(b.snap.Text, b.snap.SelectedTextID); ok {
			b.controller.SelectTextTrack(id)
		}

	case key.Matches(msg, k.subtitlesOff):
		b.controller.SelectTextTrack(adapter.TextTrackDisabled)

	case key.Matches(msg, k.offsetPlus):
		b.controller.SetSubtitleOffset(b.snap.SubtitleOffset + 0.5)

	case key.Matches(msg, k.offsetMinus):
		b.controller.SetSubtitleOffset(b.snap.SubtitleOffset - 0.5)

	case key.Matches(msg, k.dismiss):
		b.controller.Dismiss()
	}

	return b, nil
}

// cycleTracks returns the id following the current selection in the list,
// wrapping around and starting from the first entry when nothing matches.
func cycleTracks(list []track.Descriptor, current int) (int, bool) {
	if len(list) == 0 {
		return 0, false
	}

	for i, d := range list {
		if d.ID == current {
			return list[(i+1)%len(list)].ID, true
		}
	}
	return list[0].ID, true
}

func (b *bubble) quit() (tea.Model, tea.Cmd) {
	b.quitting = true
	b.controller.Close()
	return b, tea.Quit
}
