package subtitle

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/viper"

	"github.com/nuvio-play/nuvioplay/internal/cuecache"
	"github.com/nuvio-play/nuvioplay/key"
	"github.com/nuvio-play/nuvioplay/log"
	"github.com/nuvio-play/nuvioplay/network"
)

// Ref identifies a downloadable cue file on the external subtitle source.
type Ref struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Name     string `json:"name"`
	URL      string `json:"url"`
}

// listResponse defines the internal structural mapping for source catalogue responses.
type listResponse struct {
	Subtitles []Ref `json:"subtitles"`
}

// Source is a client for the configured external subtitle endpoint.
// Many subtitle CDNs fingerprint TLS clients; when spoofing is enabled the
// client presents a browser handshake instead of Go's.
type Source struct {
	baseURL  string
	spoofTLS bool
}

// NewSource builds a client from the configured endpoint.
// Returns nil when no endpoint is configured; callers treat a nil source as
// "no external subtitles available".
func NewSource() *Source {
	base := viper.GetString(key.SubtitleSourceURL)
	if base == "" {
		return nil
	}

	return &Source{
		baseURL:  base,
		spoofTLS: viper.GetBool(key.SubtitleSpoofTLS),
	}
}

// Fetch retrieves the list of available cue files for the given content.
// Failures degrade gracefully: the session continues without external
// subtitles and the cause is only logged.
func (s *Source) Fetch(contentID, languageHint string) ([]Ref, error) {
	q := url.Values{}
	q.Set("content", contentID)
	if languageHint != "" {
		q.Set("language", languageHint)
	}

	body, err := s.get(fmt.Sprintf("%s/subtitles?%s", s.baseURL, q.Encode()))
	if err != nil {
		log.Warnf("subtitle catalogue request failed: %v", err)
		return nil, nil // Graceful degradation
	}

	var data listResponse
	if err := json.Unmarshal(body, &data); err != nil {
		log.Warnf("subtitle catalogue parse failed: %v", err)
		return nil, nil
	}

	return data.Subtitles, nil
}

// FetchCueFile downloads the raw cue file for a catalogue entry.
// Downloads are cached on disk so reopening the same content does not hit
// the source again.
func (s *Source) FetchCueFile(ref Ref) ([]byte, error) {
	cacheKey := cuecache.GenerateKey(ref.URL)
	if body, ok := cuecache.Read(cacheKey); ok {
		return body, nil
	}

	body, err := s.get(ref.URL)
	if err != nil {
		return nil, fmt.Errorf("download cue file %s: %w", ref.ID, err)
	}

	if err := cuecache.Write(cacheKey, body); err != nil {
		log.Warnf("failed to cache cue file: %v", err)
	}

	return body, nil
}

// get performs a GET with the fingerprinted client when spoofing is enabled.
func (s *Source) get(rawURL string) ([]byte, error) {
	if s.spoofTLS {
		return network.FetchTLS(rawURL, nil)
	}

	resp, err := network.Client.Get(rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	return io.ReadAll(resp.Body)
}
