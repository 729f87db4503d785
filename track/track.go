// Package track builds stable descriptors over backend-local elementary
// stream ids and selects among them. Ids renumber between loads and differ
// across decoder backends, so selections persist as (language, display name)
// pairs and are re-resolved against fresh lists by similarity.
package track

import (
	"fmt"
	"strings"

	"github.com/nuvio-play/nuvioplay/adapter"
)

// Kind distinguishes audio from text descriptors.
type Kind string

const (
	KindAudio Kind = "audio"
	KindText  Kind = "text"
)

// Descriptor describes a selectable elementary stream.
// ID is backend-local and unstable; DisplayName and LanguageCode are the
// only fields safe to persist or compare across sessions.
type Descriptor struct {
	ID           int
	DisplayName  string
	LanguageCode string
	Kind         Kind
	MultiChannel bool
	Selected     bool
}

// FromAdapter converts a raw backend track into a descriptor.
func FromAdapter(t adapter.Track, kind Kind) Descriptor {
	return Descriptor{
		ID:           t.ID,
		DisplayName:  displayName(t),
		LanguageCode: normalizeLang(t.Lang),
		Kind:         kind,
		MultiChannel: t.Channels > 2,
		Selected:     t.Selected,
	}
}

// Descriptors converts a raw backend track list wholesale.
func Descriptors(list []adapter.Track, kind Kind) []Descriptor {
	if len(list) == 0 {
		return nil
	}

	descriptors := make([]Descriptor, 0, len(list))
	for _, t := range list {
		descriptors = append(descriptors, FromAdapter(t, kind))
	}
	return descriptors
}

// displayName composes a human readable label from whatever metadata the
// backend exposed.
func displayName(t adapter.Track) string {
	name := strings.TrimSpace(t.Title)
	if name == "" && t.Lang != "" {
		name = t.Lang
	}
	if name == "" {
		name = fmt.Sprintf("Track %d", t.ID)
	}

	if t.Codec != "" {
		name = fmt.Sprintf("%s (%s)", name, strings.ToUpper(t.Codec))
	}

	return name
}

// normalizeLang lowercases and trims a language tag, keeping only the
// primary subtag ("en-US" becomes "en-us" untouched, comparison helpers
// handle prefixes).
func normalizeLang(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}
