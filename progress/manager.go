package progress

import (
	"time"

	"github.com/spf13/viper"

	"github.com/nuvio-play/nuvioplay/key"
	"github.com/nuvio-play/nuvioplay/log"
)

// Manager binds the local store and the remote syncer to one playback
// session. The playback controller drives it: routine ticks on its save
// interval, forced flushes on pause, teardown and natural end.
type Manager struct {
	contentID string
	episodeID string
	syncer    *Syncer
	closed    bool
}

// NewManager creates a progress manager for one session.
func NewManager(contentID, episodeID string) *Manager {
	return &Manager{
		contentID: contentID,
		episodeID: episodeID,
		syncer:    NewSyncer(),
	}
}

// SaveInterval returns the configured cadence for routine local persists.
func (m *Manager) SaveInterval() time.Duration {
	seconds := viper.GetInt(key.ProgressSaveInterval)
	if seconds <= 0 {
		seconds = 10
	}
	return time.Duration(seconds) * time.Second
}

// ResumeTarget returns the position this session should offer to resume from.
func (m *Manager) ResumeTarget() (float64, bool) {
	if m.contentID == "" {
		return 0, false
	}
	return ResumeTarget(m.contentID, m.episodeID)
}

// Update persists the current position locally and mirrors it remotely
// subject to the sync debounce. Positions without a known duration are not
// recorded; a resume fraction cannot be computed for them.
func (m *Manager) Update(currentTime, duration float64, confirmed bool) {
	m.persist(currentTime, duration, confirmed, false)
}

// Flush persists immediately, bypassing the remote debounce. Used on user
// pause, teardown and natural end.
func (m *Manager) Flush(currentTime, duration float64, confirmed bool) {
	m.persist(currentTime, duration, confirmed, true)
}

func (m *Manager) persist(currentTime, duration float64, confirmed bool, force bool) {
	if m.closed || m.contentID == "" || duration <= 0 || currentTime < 0 {
		return
	}

	record := &Record{
		ContentID:   m.contentID,
		EpisodeID:   m.episodeID,
		CurrentTime: currentTime,
		Duration:    duration,
		Confirmed:   confirmed,
	}

	if err := Save(record); err != nil {
		log.Warnf("progress save failed: %v", err)
	}

	if m.syncer != nil {
		m.syncer.Update(m.contentID, m.episodeID, currentTime, duration, force)
	}
}

// End reports session termination to the remote service and seals the
// manager. Calling End more than once is a no-op.
func (m *Manager) End(reason EndReason) {
	if m.closed || m.contentID == "" {
		return
	}
	m.closed = true

	if m.syncer != nil {
		m.syncer.EndSession(m.contentID, m.episodeID, reason)
	}
}
