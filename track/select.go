package track

import (
	"strings"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"

	"github.com/nuvio-play/nuvioplay/log"
)

// heavyCodecMarkers are codec families that passthrough-incapable devices
// commonly fail to decode. Fallback selection skips anything matching them.
var heavyCodecMarkers = []string{
	"truehd",
	"dts",
	"eac3",
	"e-ac3",
	"ec3",
	"atmos",
	"pcm",
}

// SelectAudio picks the initial audio descriptor for a session.
// Match order: exact language code, language code prefix, fuzzy display-name
// match against the preferred language, first track as last resort.
func SelectAudio(list []Descriptor, preferredLanguage string) (Descriptor, bool) {
	if len(list) == 0 {
		return Descriptor{}, false
	}

	preferred := normalizeLang(preferredLanguage)
	if preferred != "" {
		if d, ok := lo.Find(list, func(d Descriptor) bool {
			return d.LanguageCode == preferred
		}); ok {
			return d, true
		}

		if d, ok := lo.Find(list, func(d Descriptor) bool {
			return d.LanguageCode != "" && strings.HasPrefix(d.LanguageCode, preferred)
		}); ok {
			return d, true
		}

		if d, ok := lo.Find(list, func(d Descriptor) bool {
			return fuzzy.MatchFold(preferred, d.DisplayName)
		}); ok {
			return d, true
		}

		log.Infof("no audio track matches language %q, using first track", preferred)
	}

	return list[0], true
}

// NextAudioFallback picks a replacement audio descriptor after the current
// one failed to decode. Heavy multichannel codecs and the failed track are
// excluded; preference goes to stereo tracks.
func NextAudioFallback(list []Descriptor, currentID int) (Descriptor, bool) {
	candidates := lo.Filter(list, func(d Descriptor, _ int) bool {
		return d.ID != currentID && !isHeavyCodec(d.DisplayName)
	})

	if len(candidates) == 0 {
		return Descriptor{}, false
	}

	if d, ok := lo.Find(candidates, func(d Descriptor) bool {
		return !d.MultiChannel
	}); ok {
		return d, true
	}

	return candidates[0], true
}

// isHeavyCodec reports whether a display name carries a heavy codec marker.
func isHeavyCodec(name string) bool {
	lowered := strings.ToLower(name)
	for _, marker := range heavyCodecMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// TextMode controls which subtitle sources are eligible for auto-selection.
type TextMode string

const (
	TextModeInternal TextMode = "internal"
	TextModeExternal TextMode = "external"
	TextModeAny      TextMode = "any"
)

// TextChoice is the outcome of subtitle arbitration.
type TextChoice int

const (
	TextNone TextChoice = iota
	TextInternal
	TextExternal
)

// SelectText arbitrates between embedded subtitle tracks and an available
// external cue file. Mode "any" prefers embedded tracks. When an embedded
// track wins, a language match is attempted first.
func SelectText(internal []Descriptor, externalAvailable bool, mode TextMode, preferredLanguage string) (TextChoice, Descriptor) {
	pickInternal := func() (TextChoice, Descriptor) {
		if len(internal) == 0 {
			return TextNone, Descriptor{}
		}

		preferred := normalizeLang(preferredLanguage)
		if preferred != "" {
			if d, ok := lo.Find(internal, func(d Descriptor) bool {
				return d.LanguageCode == preferred || strings.HasPrefix(d.LanguageCode, preferred)
			}); ok {
				return TextInternal, d
			}
		}
		return TextInternal, internal[0]
	}

	switch mode {
	case TextModeInternal:
		return pickInternal()
	case TextModeExternal:
		if externalAvailable {
			return TextExternal, Descriptor{}
		}
		return TextNone, Descriptor{}
	default:
		if choice, d := pickInternal(); choice != TextNone {
			return choice, d
		}
		if externalAvailable {
			return TextExternal, Descriptor{}
		}
		return TextNone, Descriptor{}
	}
}

// Reresolve finds the descriptor in a fresh list that corresponds to a
// previous selection. It filters by language code first and then picks the
// minimum levenshtein distance over display names. Raw ids are never
// compared: the backend renumbers them between lists.
func Reresolve(prev Descriptor, list []Descriptor) (Descriptor, bool) {
	if len(list) == 0 {
		return Descriptor{}, false
	}

	candidates := list
	if prev.LanguageCode != "" {
		filtered := lo.Filter(list, func(d Descriptor, _ int) bool {
			return d.LanguageCode == prev.LanguageCode
		})
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	prevName := strings.ToLower(prev.DisplayName)
	closest := lo.MinBy(candidates, func(a, b Descriptor) bool {
		return levenshtein.Distance(prevName, strings.ToLower(a.DisplayName)) <
			levenshtein.Distance(prevName, strings.ToLower(b.DisplayName))
	})

	return closest, true
}
