package adapter

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nuvio-play/nuvioplay/log"
	"github.com/nuvio-play/nuvioplay/network"
)

const (
	vlcHTTPPort     = 18573
	vlcPollInterval = 500 * time.Millisecond
	vlcStartupPolls = 20
)

// VLC drives a vlc process through its built-in HTTP interface.
// There is no push channel: a polling loop reads status.json twice a second
// and diffs it against the previous snapshot to synthesize adapter events.
// VLC renumbers elementary stream ids whenever the input renegotiates, so the
// track lists it reports must never be cached across a TracksChanged event.
type VLC struct {
	cmd      *exec.Cmd
	exited   chan struct{}
	password string
	baseURL  string

	events chan Event
	emitMu sync.Mutex
	closed bool
	stopCh chan struct{}

	// prev holds the last polled snapshot for diffing
	prev vlcStatus
	// loaded flips once a usable length/state has been observed
	loaded bool
}

// vlcStatus is the subset of status.json the adapter consumes.
type vlcStatus struct {
	Time        float64                `json:"time"`
	Length      float64                `json:"length"`
	State       string                 `json:"state"`
	Rate        float64                `json:"rate"`
	Information map[string]interface{} `json:"information"`
}

// NewVLC creates a new vlc adapter (does not start the decoder).
func NewVLC() *VLC {
	return &VLC{
		exited: make(chan struct{}),
		events: make(chan Event, eventBufferSize),
		stopCh: make(chan struct{}),
	}
}

func (v *VLC) Kind() Kind { return KindVLC }

// Load spawns vlc with the HTTP interface enabled and begins the poll loop.
func (v *VLC) Load(uri string, headers map[string]string) error {
	safeURI, err := sanitizeMediaTarget(uri)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	// One-time random password for the local HTTP interface
	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Errorf("generate http password: %w", err)
	}
	v.password = fmt.Sprintf("%x", randomBytes)
	v.baseURL = fmt.Sprintf("http://127.0.0.1:%d", vlcHTTPPort)

	args := []string{
		"--intf", "http",
		"--http-host", "127.0.0.1",
		"--http-port", strconv.Itoa(vlcHTTPPort),
		"--http-password", v.password,
		"--no-video-title-show",
	}

	// vlc takes per-input HTTP options as :option=value after the MRL
	inputArgs := []string{safeURI}
	if ua, ok := headers["User-Agent"]; ok {
		inputArgs = append(inputArgs, fmt.Sprintf(":http-user-agent=%s", ua))
	}
	if ref, ok := headers["Referer"]; ok {
		inputArgs = append(inputArgs, fmt.Sprintf(":http-referrer=%s", ref))
	}

	args = append(args, inputArgs...)

	v.cmd = exec.Command("vlc", args...)
	v.cmd.SysProcAttr = sysProcAttr()
	v.cmd.Stdout = nil
	v.cmd.Stderr = nil
	v.cmd.Stdin = nil

	if err := v.cmd.Start(); err != nil {
		return fmt.Errorf("start vlc: %w", err)
	}

	v.exited = make(chan struct{})
	go func() {
		_ = v.cmd.Wait()
		close(v.exited)
	}()

	if err := v.waitForInterface(); err != nil {
		select {
		case <-v.exited:
		default:
			log.Warnf("killing vlc: http interface never became ready")
			_ = killProcess(v.cmd)
		}
		return fmt.Errorf("vlc http interface not ready: %w", err)
	}

	go v.pollLoop()

	return nil
}

// waitForInterface polls until the vlc HTTP interface answers.
func (v *VLC) waitForInterface() error {
	for i := 0; i < vlcStartupPolls; i++ {
		time.Sleep(vlcPollInterval)

		select {
		case <-v.exited:
			return fmt.Errorf("vlc exited before interface was ready")
		default:
		}

		if _, err := v.fetchStatus(); err == nil {
			return nil
		}
	}
	return fmt.Errorf("interface not ready after %d attempts", vlcStartupPolls)
}

func (v *VLC) Play() error {
	return v.command("pl_forceresume", nil)
}

func (v *VLC) Pause() error {
	return v.command("pl_forcepause", nil)
}

// Seek moves playback to the given absolute position in seconds.
func (v *VLC) Seek(seconds float64) error {
	return v.command("seek", map[string]string{"val": strconv.Itoa(int(seconds))})
}

// SetAudioTrack switches the active audio elementary stream by vlc ES id.
func (v *VLC) SetAudioTrack(id int) error {
	return v.command("audio_track", map[string]string{"val": strconv.Itoa(id)})
}

// SetTextTrack switches the active subtitle elementary stream; vlc uses -1 to disable,
// which coincides with the TextTrackDisabled sentinel.
func (v *VLC) SetTextTrack(id int) error {
	return v.command("subtitle_track", map[string]string{"val": strconv.Itoa(id)})
}

func (v *VLC) SetRate(rate float64) error {
	return v.command("rate", map[string]string{"val": strconv.FormatFloat(rate, 'f', -1, 64)})
}

// Tracks parses elementary streams out of the last fetched status.json.
func (v *VLC) Tracks() ([]Track, []Track, error) {
	status, err := v.fetchStatus()
	if err != nil {
		return nil, nil, err
	}
	audio, text := parseVLCStreams(status.Information)
	return audio, text, nil
}

// Events returns the decoder event stream.
func (v *VLC) Events() <-chan Event {
	return v.events
}

// Close shuts down the vlc process and stops the poll loop.
func (v *VLC) Close() error {
	v.emitMu.Lock()
	if !v.closed {
		v.closed = true
		close(v.stopCh)
		close(v.events)
	}
	v.emitMu.Unlock()

	if v.cmd == nil {
		return nil
	}

	// Try graceful shutdown through the interface
	_ = v.command("pl_stop", nil)

	select {
	case <-v.exited:
	case <-time.After(3 * time.Second):
		_ = killProcess(v.cmd)
	}

	return nil
}

// command issues a status.json command request to the vlc HTTP interface.
func (v *VLC) command(name string, params map[string]string) error {
	q := url.Values{}
	q.Set("command", name)
	for k, val := range params {
		q.Set(k, val)
	}

	_, err := v.request("/requests/status.json?" + q.Encode())
	return err
}

// fetchStatus retrieves and decodes the current status.json.
func (v *VLC) fetchStatus() (vlcStatus, error) {
	body, err := v.request("/requests/status.json")
	if err != nil {
		return vlcStatus{}, err
	}

	var status vlcStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return vlcStatus{}, fmt.Errorf("decode status: %w", err)
	}

	return status, nil
}

// request performs an authenticated GET against the vlc HTTP interface.
func (v *VLC) request(path string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, v.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	// vlc authenticates with an empty username and the configured password
	req.SetBasicAuth("", v.password)

	resp, err := network.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vlc interface returned %s", resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// pollLoop reads status.json twice a second and diffs consecutive snapshots
// into adapter events.
func (v *VLC) pollLoop() {
	ticker := time.NewTicker(vlcPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-v.stopCh:
			return
		case <-v.exited:
			// Process gone without a stop request means the decoder died or
			// the user closed the window.
			if v.loaded {
				v.emit(Ended{})
			} else {
				v.emit(Failed{Code: "vlc_exit", Message: "vlc exited before playback started"})
			}
			return
		case <-ticker.C:
		}

		status, err := v.fetchStatus()
		if err != nil {
			continue // transient interface hiccups are normal during startup
		}

		v.diff(status)
		v.prev = status
	}
}

// diff synthesizes events from the delta between two status snapshots.
func (v *VLC) diff(cur vlcStatus) {
	if !v.loaded {
		if cur.State == "playing" || cur.State == "paused" {
			v.loaded = true
			audio, text := parseVLCStreams(cur.Information)
			v.emit(Loaded{Duration: cur.Length, Audio: audio, Text: text})
		}
		return
	}

	// Position report every poll while active
	if cur.State == "playing" || cur.State == "paused" {
		v.emit(Progress{Time: cur.Time, Buffered: cur.Time})
	}

	// vlc surfaces stalls as a transition into "buffering"
	if cur.State == "buffering" && v.prev.State != "buffering" {
		v.emit(Buffering{Active: true})
	}
	if cur.State != "buffering" && v.prev.State == "buffering" {
		v.emit(Buffering{Active: false})
	}

	// Natural end of stream
	if (cur.State == "stopped" || cur.State == "ended") && v.prev.State == "playing" {
		v.emit(Ended{})
	}

	// Renegotiated streams show up as a different stream count. The new ids
	// bear no relation to the old ones.
	if countVLCStreams(cur.Information) != countVLCStreams(v.prev.Information) {
		audio, text := parseVLCStreams(cur.Information)
		v.emit(TracksChanged{Audio: audio, Text: text})
	}
}

// emit delivers an event unless the adapter is closed, dropping the oldest
// buffered event when the consumer stalls.
func (v *VLC) emit(ev Event) {
	v.emitMu.Lock()
	defer v.emitMu.Unlock()
	if v.closed {
		return
	}
	select {
	case v.events <- ev:
	default:
		select {
		case <-v.events:
		default:
		}
		v.events <- ev
	}
}

// countVLCStreams counts "Stream N" categories in the information block.
func countVLCStreams(information map[string]interface{}) int {
	category, ok := information["category"].(map[string]interface{})
	if !ok {
		return 0
	}

	count := 0
	for name := range category {
		if strings.HasPrefix(name, "Stream ") {
			count++
		}
	}
	return count
}

// parseVLCStreams converts status.json's information block into track slices.
// Categories are named "Stream N" where N is the elementary stream id.
func parseVLCStreams(information map[string]interface{}) (audio []Track, text []Track) {
	category, ok := information["category"].(map[string]interface{})
	if !ok {
		return nil, nil
	}

	for name, raw := range category {
		if !strings.HasPrefix(name, "Stream ") {
			continue
		}

		id, err := strconv.Atoi(strings.TrimPrefix(name, "Stream "))
		if err != nil {
			continue
		}

		fields, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		track := Track{ID: id}
		track.Lang, _ = fields["Language"].(string)
		track.Codec, _ = fields["Codec"].(string)
		track.Title, _ = fields["Description"].(string)
		if ch, ok := fields["Channels"].(string); ok {
			track.Channels = vlcChannelCount(ch)
		}

		switch fields["Type"] {
		case "Audio":
			audio = append(audio, track)
		case "Subtitle":
			text = append(text, track)
		}
	}

	// Map iteration order is random; keep the lists in stream id order so
	// index 0 is stable for default selection.
	sort.Slice(audio, func(i, j int) bool { return audio[i].ID < audio[j].ID })
	sort.Slice(text, func(i, j int) bool { return text[i].ID < text[j].ID })

	return audio, text
}

// vlcChannelCount maps vlc's human channel labels onto counts.
func vlcChannelCount(label string) int {
	switch strings.ToLower(label) {
	case "mono":
		return 1
	case "stereo":
		return 2
	case "5.1":
		return 6
	case "7.1":
		return 8
	default:
		if n, err := strconv.Atoi(label); err == nil {
			return n
		}
		return 0
	}
}
