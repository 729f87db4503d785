// Package syncqueue implements asynchronous background synchronization and offline queuing for the watch-state service.
package syncqueue

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/nuvio-play/nuvioplay/auth"
	"github.com/nuvio-play/nuvioplay/filesystem"
	"github.com/nuvio-play/nuvioplay/log"
	"github.com/nuvio-play/nuvioplay/network"
	"github.com/nuvio-play/nuvioplay/where"
)

// Mutation encapsulates a single watch-state operation for deferred synchronization.
type Mutation struct {
	Timestamp int64  `json:"timestamp"`
	URL       string `json:"url"`
	Payload   string `json:"payload"`
}

func queueFile() string {
	return filepath.Join(where.Config(), "failed_syncs.json")
}

// QueueFailure persists a failed watch-state operation to a local JSON-log for deferred reconciliation.
func QueueFailure(url string, payload []byte) error {
	f, err := filesystem.API().OpenFile(queueFile(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	mutation := Mutation{
		Timestamp: time.Now().Unix(),
		URL:       url,
		Payload:   string(payload),
	}

	encoder := json.NewEncoder(f)
	return encoder.Encode(mutation)
}

// ReconcileFailures initializes an asynchronous background process to replay previously failed watch-state operations.
func ReconcileFailures() {
	go func() {
		path := queueFile()
		info, err := filesystem.API().Stat(path)
		if err != nil || info.Size() == 0 {
			return
		}

		content, err := filesystem.API().ReadFile(path)
		if err != nil {
			return
		}

		var mutations []Mutation
		decoder := json.NewDecoder(bytes.NewReader(content))
		for decoder.More() {
			var m Mutation
			if err := decoder.Decode(&m); err == nil {
				mutations = append(mutations, m)
			}
		}

		if len(mutations) == 0 {
			return
		}

		token, err := auth.GetToken()
		if err != nil {
			// Without a token the replay would be rejected, leave the queue intact.
			return
		}

		successCount := 0
		for i, m := range mutations {
			// Incremental delay with randomized jitter to manage request throttling.
			backoff := time.Duration((1<<i)*100)*time.Millisecond + time.Duration(rand.Intn(100))*time.Millisecond
			time.Sleep(backoff)

			req, err := http.NewRequest(http.MethodPost, m.URL, bytes.NewBufferString(m.Payload))
			if err != nil {
				continue
			}

			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "application/json")

			resp, err := network.Client.Do(req)
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
					successCount++
				}
			}
		}

		// Truncate the failure log only if every operation synchronized.
		if successCount == len(mutations) {
			if err := filesystem.API().Remove(path); err != nil {
				log.Warnf("failed to clear sync queue: %v", err)
			}
		} else {
			log.Warnf("replayed %d/%d queued watch-state operations", successCount, len(mutations))
		}
	}()
}
