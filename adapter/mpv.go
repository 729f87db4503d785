package adapter

import (
	"crypto/rand"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nuvio-play/nuvioplay/log"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	eventBufferSize   = 64
)

// MPV drives mpv through its JSON-IPC protocol over a unix socket.
// Property observers push state changes which are translated into adapter events.
// This is the richest backend: stable seeks, full track model, push delivery.
type MPV struct {
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{} // closed when the mpv process exits
	listener   *mpvListener

	events  chan Event
	emitMu  sync.Mutex
	closed  bool
	mu      sync.Mutex // protects socket writes
	emitted struct {
		loaded bool
	}

	// last buffered horizon, written only from the listener callback
	buffered float64
}

// NewMPV creates a new mpv adapter (does not start the decoder).
func NewMPV() *MPV {
	return &MPV{
		exited: make(chan struct{}),
		events: make(chan Event, eventBufferSize),
	}
}

func (m *MPV) Kind() Kind { return KindMPV }

// Load spawns mpv on the given URI and begins event delivery.
// A reissued load tears the previous spawn down first, so retry loops never
// stack processes or listeners.
func (m *MPV) Load(uri string, headers map[string]string) error {
	safeURI, err := sanitizeMediaTarget(uri)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	m.shutdownDecoder()

	// Construct header string if present
	var headerString string
	if len(headers) > 0 {
		var hBuilder strings.Builder
		for k, v := range headers {
			if hBuilder.Len() > 0 {
				hBuilder.WriteString(",")
			}
			// Replace commas in values if any (simple sanitization)
			val := strings.ReplaceAll(v, ",", "%2C")
			hBuilder.WriteString(fmt.Sprintf("%s: %s", k, val))
		}
		headerString = hBuilder.String()
	}

	// Generate a random socket path using os.TempDir() for cross-platform support
	// (macOS $TMPDIR is /var/folders/... not /tmp/). Each spawn gets a fresh
	// path so a dying previous instance cannot race the new socket.
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Errorf("generate socket name: %w", err)
	}
	m.socketPath = filepath.Join(os.TempDir(), fmt.Sprintf("nuvioplay-%x.sock", randomBytes))

	args := []string{
		"--no-terminal",
		"--really-quiet",
		fmt.Sprintf("--input-ipc-server=%s", m.socketPath),
		"--force-window=yes",
		"--idle=yes",
		"--pause=no",
	}

	if headerString != "" {
		args = append(args, fmt.Sprintf("--http-header-fields=%s", headerString))
	}

	args = append(args, safeURI)

	m.cmd = exec.Command("mpv", args...)

	// Detach from parent process group to prevent cascading shell panics.
	m.cmd.SysProcAttr = sysProcAttr()

	// Disable standard pipes to prevent resource leaks.
	m.cmd.Stdout = nil
	m.cmd.Stderr = nil
	m.cmd.Stdin = nil

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	// Background goroutine to reap the process and prevent zombies
	m.exited = make(chan struct{})
	go func() {
		_ = m.cmd.Wait()
		close(m.exited)
	}()

	if err := m.waitForSocket(); err != nil {
		// If the socket never became ready, kill the orphaned process
		if m.cmd.Process != nil {
			select {
			case <-m.exited:
				// Already exited
			default:
				log.Warnf("killing mpv: socket never became ready")
				_ = m.cmd.Process.Kill()
			}
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	m.emitted.loaded = false
	m.listener = newMPVListener(m.socketPath, m.translate)
	if err := m.listener.Start(); err != nil {
		return fmt.Errorf("event listener: %w", err)
	}

	return nil
}

// shutdownDecoder tears down a previous spawn: the event listener stops, a
// still-running process is killed and its socket file removed. The event
// channel stays open so reloads keep feeding the same consumer.
func (m *MPV) shutdownDecoder() {
	if m.listener != nil {
		m.listener.Stop()
		m.listener = nil
	}

	if m.cmd != nil && m.cmd.Process != nil {
		select {
		case <-m.exited:
		default:
			log.Warnf("killing previous mpv instance before reload")
			_ = killProcess(m.cmd)
			select {
			case <-m.exited:
			case <-time.After(time.Second):
			}
		}
	}
	m.cmd = nil

	if m.socketPath != "" {
		_ = os.Remove(m.socketPath)
		m.socketPath = ""
	}
}

// waitForSocket polls until the mpv IPC socket is accepting connections.
func (m *MPV) waitForSocket() error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		// Check if the process already exited
		select {
		case <-m.exited:
			return fmt.Errorf("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

func (m *MPV) Play() error {
	return m.set("pause", false)
}

func (m *MPV) Pause() error {
	return m.set("pause", true)
}

// Seek moves playback to the given absolute position in seconds.
func (m *MPV) Seek(seconds float64) error {
	_, err := m.sendCommand([]interface{}{"seek", seconds, "absolute"})
	return err
}

// SetAudioTrack switches the active audio stream by mpv track id.
func (m *MPV) SetAudioTrack(id int) error {
	return m.set("aid", id)
}

// SetTextTrack switches the active subtitle stream; TextTrackDisabled maps to sid=no.
func (m *MPV) SetTextTrack(id int) error {
	if id == TextTrackDisabled {
		return m.set("sid", "no")
	}
	return m.set("sid", id)
}

func (m *MPV) SetRate(rate float64) error {
	return m.set("speed", rate)
}

// Tracks retrieves and parses mpv's track-list property.
func (m *MPV) Tracks() ([]Track, []Track, error) {
	data, err := m.sendCommand([]interface{}{"get_property", "track-list"})
	if err != nil {
		return nil, nil, err
	}
	audio, text := parseMPVTrackList(data)
	return audio, text, nil
}

// Events returns the decoder event stream.
func (m *MPV) Events() <-chan Event {
	return m.events
}

// Close shuts down the mpv process and cleans up resources.
func (m *MPV) Close() error {
	if m.listener != nil {
		m.listener.Stop()
	}

	m.emitMu.Lock()
	if !m.closed {
		m.closed = true
		close(m.events)
	}
	m.emitMu.Unlock()

	if m.socketPath == "" {
		return nil
	}

	// Try graceful quit via IPC
	_, _ = m.sendCommand([]interface{}{"quit"})

	// Wait for the process to exit (with timeout)
	select {
	case <-m.exited:
		// Clean exit
	case <-time.After(3 * time.Second):
		// Force kill if graceful quit didn't work
		_ = killProcess(m.cmd)
	}

	// Clean up the socket file
	_ = os.Remove(m.socketPath)

	return nil
}

// set assigns an mpv property via IPC.
func (m *MPV) set(property string, value interface{}) error {
	_, err := m.sendCommand([]interface{}{"set_property", property, value})
	return err
}

// getFloatProperty is a helper to retrieve a float64 mpv property via IPC.
func (m *MPV) getFloatProperty(name string) (float64, error) {
	data, err := m.sendCommand([]interface{}{"get_property", name})
	if err != nil {
		return 0, err
	}

	if data == nil {
		return 0, fmt.Errorf("property %s: nil response", name)
	}

	val, ok := data.(float64)
	if !ok {
		return 0, fmt.Errorf("property %s: expected float64, got %T", name, data)
	}

	return val, nil
}

// emit delivers an event unless the adapter is closed.
func (m *MPV) emit(ev Event) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	if m.closed {
		return
	}
	select {
	case m.events <- ev:
	default:
		// Consumer stalled; drop the oldest buffered event to keep fresh state flowing.
		select {
		case <-m.events:
		default:
		}
		m.events <- ev
	}
}

// translate converts raw mpv notifications into adapter events.
func (m *MPV) translate(name string, data interface{}) {
	switch name {
	case "file-loaded":
		m.emitLoaded()
	case "demuxer-cache-time":
		if v, ok := data.(float64); ok {
			m.buffered = v
		}
	case "time-pos":
		if v, ok := data.(float64); ok {
			m.emit(Progress{Time: v, Buffered: m.buffered})
		}
	case "paused-for-cache":
		if v, ok := data.(bool); ok {
			m.emit(Buffering{Active: v})
		}
	case "eof-reached":
		if v, ok := data.(bool); ok && v {
			m.emit(Ended{})
		}
	case "track-list":
		if !m.emitted.loaded {
			// Swallowed: the initial list is folded into the Loaded event.
			return
		}
		audio, text := parseMPVTrackList(data)
		m.emit(TracksChanged{Audio: audio, Text: text})
	case "end-file":
		payload, _ := data.(map[string]interface{})
		reason, _ := payload["reason"].(string)
		if reason == "error" {
			code, _ := payload["file_error"].(string)
			m.emit(Failed{Code: code, Message: fmt.Sprintf("mpv end-file: %s", code)})
		}
	}
}

// emitLoaded gathers duration, geometry and tracks once mpv reports the file open.
func (m *MPV) emitLoaded() {
	if m.emitted.loaded {
		return
	}

	duration, err := m.getFloatProperty("duration")
	if err != nil {
		// Live or still-probing sources report no duration; the controller
		// treats 0 as an estimate to be superseded.
		duration = 0
	}

	var width, height int
	if w, err := m.getFloatProperty("width"); err == nil {
		width = int(w)
	}
	if h, err := m.getFloatProperty("height"); err == nil {
		height = int(h)
	}

	audio, text, err := m.Tracks()
	if err != nil {
		log.Warnf("mpv track-list unavailable at load: %v", err)
	}

	m.emitted.loaded = true
	m.emit(Loaded{Duration: duration, Width: width, Height: height, Audio: audio, Text: text})
}

// parseMPVTrackList converts mpv's track-list property into audio/text track slices.
func parseMPVTrackList(data interface{}) (audio []Track, text []Track) {
	entries, ok := data.([]interface{})
	if !ok {
		return nil, nil
	}

	for _, entry := range entries {
		raw, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}

		track := Track{}
		if id, ok := raw["id"].(float64); ok {
			track.ID = int(id)
		}
		track.Title, _ = raw["title"].(string)
		track.Lang, _ = raw["lang"].(string)
		track.Codec, _ = raw["codec"].(string)
		if ch, ok := raw["demux-channel-count"].(float64); ok {
			track.Channels = int(ch)
		}
		track.Selected, _ = raw["selected"].(bool)

		switch raw["type"] {
		case "audio":
			audio = append(audio, track)
		case "sub":
			text = append(text, track)
		}
	}

	return audio, text
}

// sanitizeMediaTarget validates that a URI is safe to pass to a decoder process.
// Prevents flag injection from untrusted stream catalogues.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty URL")
	}

	// Reject control characters
	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in URL")
	}

	// Prevent flag injection: URLs must not start with -
	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("url must not start with '-' (looks like a flag)")
	}

	// If it contains "://", validate as URL
	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	// Treat as local file path
	return filepath.Clean(l), nil
}
