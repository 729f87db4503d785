// Package progress persists watch positions locally and mirrors them to the
// remote watch-state service. Local records are the source of truth for
// resume decisions; the remote mirror is best-effort.
package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/metafates/gache"

	"github.com/nuvio-play/nuvioplay/filesystem"
	"github.com/nuvio-play/nuvioplay/where"
)

// resumeThreshold is the watched fraction beyond which content is treated
// as finished and no resume is offered.
const resumeThreshold = 0.85

// Record is a persisted watch position for one piece of content.
type Record struct {
	ContentID   string    `json:"content_id"`
	EpisodeID   string    `json:"episode_id"`
	CurrentTime float64   `json:"current_time"`
	Duration    float64   `json:"duration"`
	// Confirmed marks a decoder-reported duration as opposed to a catalogue
	// estimate. Confirmed durations supersede estimates.
	Confirmed   bool      `json:"confirmed"`
	LastUpdated time.Time `json:"last_updated"`
}

// Fraction returns the watched fraction, 0 when the duration is unknown.
func (r *Record) Fraction() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return r.CurrentTime / r.Duration
}

// encode produces the store key for this record.
func (r *Record) encode() string {
	return fmt.Sprintf("%s/%s", r.ContentID, r.EpisodeID)
}

// cacher provides an abstracted, disk-backed registry for watch-progress records.
var cacher = gache.New[map[string]*Record](
	&gache.Options{
		Path:       where.Progress(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// storeMu serializes store access across sessions so a previous session's
// final flush completes before the next session's initial read.
var storeMu sync.Mutex

// Get returns the complete collection of watch-progress records from the persistent store.
func Get() (map[string]*Record, error) {
	storeMu.Lock()
	defer storeMu.Unlock()
	return load()
}

func load() (map[string]*Record, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}

	if expired || cached == nil {
		return make(map[string]*Record), nil
	}

	return cached, nil
}

// Lookup returns the stored record for the given content, or nil.
func Lookup(contentID, episodeID string) (*Record, error) {
	records, err := Get()
	if err != nil {
		return nil, err
	}

	probe := &Record{ContentID: contentID, EpisodeID: episodeID}
	return records[probe.encode()], nil
}

// Save persists a watch position.
// For the same duration epoch the maximum observed position wins, so a stale
// flush arriving after a newer one cannot regress the record. A confirmed
// duration replaces an estimated one along with its position.
func Save(record *Record) error {
	storeMu.Lock()
	defer storeMu.Unlock()

	records, err := load()
	if err != nil {
		return err
	}

	if existing, ok := records[record.encode()]; ok {
		sameEpoch := existing.Confirmed == record.Confirmed && durationsMatch(existing.Duration, record.Duration)
		if sameEpoch && record.CurrentTime < existing.CurrentTime {
			record.CurrentTime = existing.CurrentTime
		}
		if existing.Confirmed && !record.Confirmed {
			// Never let an estimate overwrite a decoder-confirmed duration.
			record.Duration = existing.Duration
			record.Confirmed = true
		}
	}

	record.LastUpdated = time.Now()
	records[record.encode()] = record

	return cacher.Set(records)
}

// Remove permanently deletes the watch-progress record for the given content.
func Remove(contentID, episodeID string) error {
	storeMu.Lock()
	defer storeMu.Unlock()

	records, err := load()
	if err != nil {
		return err
	}

	probe := &Record{ContentID: contentID, EpisodeID: episodeID}
	delete(records, probe.encode())
	return cacher.Set(records)
}

// ResumeTarget returns the position a new session should offer to resume
// from. Content watched past the finished threshold yields no offer.
func ResumeTarget(contentID, episodeID string) (float64, bool) {
	record, err := Lookup(contentID, episodeID)
	if err != nil || record == nil {
		return 0, false
	}

	if record.CurrentTime <= 0 || record.Fraction() >= resumeThreshold {
		return 0, false
	}

	return record.CurrentTime, true
}

// durationsMatch compares durations with a small tolerance; decoders report
// slightly different lengths for the same media across runs.
func durationsMatch(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 1.0
}
