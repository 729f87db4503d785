// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Player Engine - these keys select and parameterize the native decoder backend.
const (
	PlayerBackend       = "player.backend"
	PlayerAudioLanguage = "player.audio_language"
	PlayerResizeMode    = "player.resize_mode"
)

// Subtitles - these keys govern cue sourcing and selection.
const (
	SubtitleMode      = "subtitles.mode"
	SubtitleLanguage  = "subtitles.language"
	SubtitleSourceURL = "subtitles.source_url"
	SubtitleSpoofTLS  = "subtitles.spoof_tls"
)

// Playback Speed - these keys configure rate presets and the hold-to-boost gesture.
const (
	SpeedBoost = "speed.boost"
)

// Watch Progress - these keys configure local persistence and the remote watch-state synchronizer.
const (
	ProgressSyncEnabled  = "progress.sync_enabled"
	ProgressSyncURL      = "progress.sync_url"
	ProgressSaveInterval = "progress.save_interval"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the non-TUI application behavior.
const (
	CliColored   = "cli.colored"
	IconsVariant = "icons"
)
