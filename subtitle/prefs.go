package subtitle

import (
	"github.com/metafates/gache"

	"github.com/nuvio-play/nuvioplay/filesystem"
	"github.com/nuvio-play/nuvioplay/where"
)

// Preference records the subtitle choice a user settled on for a piece of
// content, so the next session starts from it instead of re-arbitrating.
type Preference struct {
	Language string `json:"language"`
	External bool   `json:"external"`
	Disabled bool   `json:"disabled"`
}

// prefsCacher provides an abstracted, disk-backed registry for per-content subtitle preferences.
var prefsCacher = gache.New[map[string]*Preference](
	&gache.Options{
		Path:       where.SubtitlePreferences(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// GetPreference returns the persisted subtitle preference for the given content, if any.
func GetPreference(contentID string) (*Preference, error) {
	cached, expired, err := prefsCacher.Get()
	if err != nil {
		return nil, err
	}

	if expired || cached == nil {
		return nil, nil
	}

	return cached[contentID], nil
}

// SavePreference persists the subtitle preference for the given content.
func SavePreference(contentID string, pref *Preference) error {
	cached, expired, err := prefsCacher.Get()
	if err != nil {
		return err
	}

	if expired || cached == nil {
		cached = make(map[string]*Preference)
	}

	cached[contentID] = pref
	return prefsCacher.Set(cached)
}
