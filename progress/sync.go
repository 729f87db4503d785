package progress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/nuvio-play/nuvioplay/auth"
	"github.com/nuvio-play/nuvioplay/internal/syncqueue"
	"github.com/nuvio-play/nuvioplay/key"
	"github.com/nuvio-play/nuvioplay/log"
	"github.com/nuvio-play/nuvioplay/network"
)

// minSyncInterval is the floor between routine remote updates. Forced
// flushes (pause, close, natural end) bypass it.
const minSyncInterval = 15 * time.Second

// EndReason classifies why a playback session stopped.
type EndReason string

const (
	EndReasonEnded     EndReason = "ended"
	EndReasonUserClose EndReason = "user_close"
	EndReasonUnmount   EndReason = "unmount"
)

// Syncer mirrors watch positions to the remote watch-state service.
// All failures degrade gracefully: they are logged and never surfaced to the
// playback session.
type Syncer struct {
	baseURL string
	token   string

	mu       sync.Mutex
	lastSent time.Time
}

// updatePayload is the wire format for progress updates.
type updatePayload struct {
	ContentID   string  `json:"content_id"`
	EpisodeID   string  `json:"episode_id"`
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
}

// endPayload is the wire format for session termination.
type endPayload struct {
	ContentID string `json:"content_id"`
	EpisodeID string `json:"episode_id"`
	Reason    string `json:"reason"`
}

// NewSyncer builds a remote sync client from configuration.
// Returns nil when sync is disabled, unconfigured, or no token is stored;
// callers treat a nil syncer as "local persistence only".
func NewSyncer() *Syncer {
	if !viper.GetBool(key.ProgressSyncEnabled) {
		return nil
	}

	base := viper.GetString(key.ProgressSyncURL)
	if base == "" {
		return nil
	}

	token, err := auth.GetToken()
	if err != nil {
		log.Warnf("watch-state sync disabled: no token in keyring: %v", err)
		return nil
	}

	return &Syncer{baseURL: base, token: token}
}

// Update mirrors a watch position. Routine updates closer together than the
// minimum interval are dropped; forced updates always go out. The request
// itself runs off the caller's goroutine: a slow or unreachable service must
// never stall playback dispatch.
func (s *Syncer) Update(contentID, episodeID string, currentTime, duration float64, force bool) {
	s.mu.Lock()
	if !force && time.Since(s.lastSent) < minSyncInterval {
		s.mu.Unlock()
		return
	}
	s.lastSent = time.Now()
	s.mu.Unlock()

	payload := updatePayload{
		ContentID:   contentID,
		EpisodeID:   episodeID,
		CurrentTime: currentTime,
		Duration:    duration,
	}

	go func() {
		if err := s.post("/progress", payload); err != nil {
			log.Warnf("watch-state update failed: %v", err)
		}
	}()
}

// EndSession reports that the session stopped and why, without blocking the
// caller on the network.
func (s *Syncer) EndSession(contentID, episodeID string, reason EndReason) {
	payload := endPayload{
		ContentID: contentID,
		EpisodeID: episodeID,
		Reason:    string(reason),
	}

	go func() {
		if err := s.post("/session/end", payload); err != nil {
			log.Warnf("watch-state session end failed: %v", err)
		}
	}()
}

// post sends an authenticated JSON request to the watch-state service.
// Failed operations are queued locally for deferred reconciliation on the
// next startup.
func (s *Syncer) post(path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	url := s.baseURL + path
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := network.Client.Do(req)
	if err != nil {
		if queueErr := syncqueue.QueueFailure(url, body); queueErr != nil {
			log.Warnf("failed to queue watch-state operation: %v", queueErr)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		if resp.StatusCode >= http.StatusInternalServerError {
			if queueErr := syncqueue.QueueFailure(url, body); queueErr != nil {
				log.Warnf("failed to queue watch-state operation: %v", queueErr)
			}
		}
		return fmt.Errorf("watch-state service returned %s", resp.Status)
	}

	return nil
}
