package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"
	"github.com/samber/lo"

	"github.com/nuvio-play/nuvioplay/adapter"
	"github.com/nuvio-play/nuvioplay/color"
	"github.com/nuvio-play/nuvioplay/playback"
	"github.com/nuvio-play/nuvioplay/style"
	"github.com/nuvio-play/nuvioplay/track"
	"github.com/nuvio-play/nuvioplay/util"
)

var paddingStyle = lipgloss.NewStyle().Padding(1, 2)

func (b *bubble) View() string {
	if b.quitting {
		return ""
	}

	switch b.snap.State {
	case playback.StateIdle, playback.StateLoading:
		return b.viewLoading()
	case playback.StateError:
		return b.viewError()
	default:
		return b.viewPlayback()
	}
}

func (b *bubble) viewLoading() string {
	return b.renderLines(
		style.Title(b.title),
		"",
		style.Faint("Opening stream..."),
	)
}

func (b *bubble) viewError() string {
	lines := []string{
		style.ErrorTitle("Playback Error"),
		"",
	}

	if b.snap.Err != nil {
		msg := b.snap.Err.Message
		if b.width > 4 {
			msg = wrap.String(msg, b.width-4)
		}
		lines = append(lines, style.Fg(color.Red)(msg))
	}

	lines = append(lines, "", style.Faint("enter to dismiss, q to quit"))
	return b.renderLines(lines...)
}

func (b *bubble) viewPlayback() string {
	lines := []string{
		style.Title(b.title),
		"",
		b.statusLine(),
		"",
		b.progressLine(),
	}

	if cue := b.cueLine(); cue != "" {
		lines = append(lines, "", cue)
	}

	if detail := b.trackLine(); detail != "" {
		lines = append(lines, "", style.Faint(detail))
	}

	lines = append(lines, "", b.help.ShortHelpView(b.keymap.help()))
	return b.renderLines(lines...)
}

// statusLine shows the transport state, speed and any transient badges.
func (b *bubble) statusLine() string {
	var parts []string

	switch {
	case b.snap.State == playback.StateSeeking:
		parts = append(parts, style.Fg(color.Yellow)("seeking"))
	case b.snap.Buffering:
		parts = append(parts, style.Fg(color.Yellow)("buffering"))
	case b.snap.Paused:
		parts = append(parts, style.Fg(color.Gray)("paused"))
	default:
		parts = append(parts, style.Fg(color.Green)("playing"))
	}

	if b.snap.Speed != 1.0 {
		parts = append(parts, fmt.Sprintf("%.2gx", b.snap.Speed))
	}
	if b.snap.BoostFlash {
		parts = append(parts, style.Fg(color.Orange)("boost"))
	}
	if b.snap.NonSeekable {
		parts = append(parts, style.Faint("live"))
	}
	if b.snap.ResumeOffered {
		parts = append(parts, style.Faint(fmt.Sprintf("resuming from %s", util.FormatTime(b.snap.ResumeFrom))))
	}

	return strings.Join(parts, "  ")
}

// progressLine renders the clock and the position bar.
func (b *bubble) progressLine() string {
	clock := fmt.Sprintf("%s / %s", util.FormatTime(b.snap.Time), util.FormatTime(b.snap.Duration))

	if b.snap.Duration <= 0 {
		return util.FormatTime(b.snap.Time)
	}

	bar := b.bar.ViewAs(b.snap.Time / b.snap.Duration)
	return bar + "  " + style.Faint(clock)
}

// cueLine renders the active external subtitle cue.
func (b *bubble) cueLine() string {
	if b.snap.CueText == "" {
		return ""
	}

	cue := b.snap.CueText
	if b.width > 4 {
		cue = wrap.String(cue, b.width-4)
	}
	return style.Italic(cue)
}

// trackLine summarizes the active audio and subtitle selection.
func (b *bubble) trackLine() string {
	var parts []string

	if d, ok := lo.Find(b.snap.Audio, func(d track.Descriptor) bool {
		return d.ID == b.snap.SelectedAudioID
	}); ok {
		parts = append(parts, "audio: "+d.DisplayName)
	}

	switch {
	case b.snap.ExternalSubtitles:
		sub := "subs: external"
		if b.snap.SubtitleOffset != 0 {
			sub += fmt.Sprintf(" (%+.1fs)", b.snap.SubtitleOffset)
		}
		parts = append(parts, sub)
	case b.snap.SelectedTextID != adapter.TextTrackDisabled:
		if d, ok := lo.Find(b.snap.Text, func(d track.Descriptor) bool {
			return d.ID == b.snap.SelectedTextID
		}); ok {
			parts = append(parts, "subs: "+d.DisplayName)
		}
	}

	return strings.Join(parts, "  ·  ")
}

func (b *bubble) renderLines(lines ...string) string {
	return paddingStyle.Render(strings.Join(lines, "\n"))
}
