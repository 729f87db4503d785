// Package subtitle implements cue parsing, timed cue lookup with a live
// offset, and the arbitration between embedded decoder subtitle tracks and
// externally fetched cue files.
package subtitle

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Segment is a styled run of cue text.
type Segment struct {
	Text   string
	Italic bool
	Bold   bool
}

// Cue is a single timed subtitle entry. Times are in seconds.
// Cues are immutable once parsed; a new external load replaces the whole list.
type Cue struct {
	Start    float64
	End      float64
	Text     string
	Segments []Segment
}

// ParseSRT parses SubRip data into a sorted cue list.
// Real-world files are messy: the parser tolerates CRLF line endings, a BOM,
// missing index lines and dot-millisecond timestamps. Blocks that still fail
// to parse are skipped rather than aborting the whole file.
func ParseSRT(data []byte) ([]Cue, error) {
	text := strings.TrimPrefix(string(data), "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var cues []Cue

	for _, block := range strings.Split(text, "\n\n") {
		lines := nonEmptyLines(block)
		if len(lines) == 0 {
			continue
		}

		// The index line is optional; some encoders omit it entirely.
		if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil {
			lines = lines[1:]
		}
		if len(lines) == 0 {
			continue
		}

		start, end, err := parseTimingLine(lines[0])
		if err != nil {
			continue
		}

		body := strings.Join(lines[1:], "\n")
		cues = append(cues, Cue{
			Start:    start,
			End:      end,
			Text:     stripMarkup(body),
			Segments: parseSegments(body),
		})
	}

	if len(cues) == 0 {
		return nil, fmt.Errorf("no parseable cues found")
	}

	sort.Slice(cues, func(i, j int) bool { return cues[i].Start < cues[j].Start })

	return cues, nil
}

// nonEmptyLines splits a block and drops blank lines.
func nonEmptyLines(block string) []string {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// parseTimingLine parses "HH:MM:SS,mmm --> HH:MM:SS,mmm".
func parseTimingLine(line string) (start, end float64, err error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("not a timing line: %q", line)
	}

	start, err = parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}

	// Some files append position hints after the end timestamp.
	endField := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("missing end timestamp: %q", line)
	}

	end, err = parseTimestamp(endField[0])
	if err != nil {
		return 0, 0, err
	}

	return start, end, nil
}

// parseTimestamp converts "HH:MM:SS,mmm" (or dot milliseconds) to seconds.
func parseTimestamp(ts string) (float64, error) {
	ts = strings.ReplaceAll(ts, ".", ",")

	var millis float64
	if comma := strings.Index(ts, ","); comma >= 0 {
		frac, err := strconv.Atoi(strings.TrimSpace(ts[comma+1:]))
		if err != nil {
			return 0, fmt.Errorf("invalid milliseconds in %q", ts)
		}
		millis = float64(frac) / 1000
		ts = ts[:comma]
	}

	fields := strings.Split(ts, ":")
	if len(fields) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}

	h, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q", ts)
	}
	m, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q", ts)
	}
	s, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in %q", ts)
	}

	return float64(h*3600+m*60+s) + millis, nil
}

// parseSegments splits cue markup into styled runs. Only the <i> and <b>
// tags common in SubRip files are recognized; unknown tags are stripped.
func parseSegments(body string) []Segment {
	var segments []Segment
	var current strings.Builder
	italic, bold := false, false

	flush := func() {
		if current.Len() == 0 {
			return
		}
		segments = append(segments, Segment{Text: current.String(), Italic: italic, Bold: bold})
		current.Reset()
	}

	rest := body
	for {
		open := strings.Index(rest, "<")
		if open < 0 {
			current.WriteString(rest)
			break
		}
		closeIdx := strings.Index(rest[open:], ">")
		if closeIdx < 0 {
			current.WriteString(rest)
			break
		}

		current.WriteString(rest[:open])
		tag := strings.ToLower(rest[open+1 : open+closeIdx])
		rest = rest[open+closeIdx+1:]

		switch tag {
		case "i":
			flush()
			italic = true
		case "/i":
			flush()
			italic = false
		case "b":
			flush()
			bold = true
		case "/b":
			flush()
			bold = false
		default:
			// Unknown tag, drop it
		}
	}
	flush()

	return segments
}

// stripMarkup returns cue text with all tags removed.
func stripMarkup(body string) string {
	var sb strings.Builder
	for _, seg := range parseSegments(body) {
		sb.WriteString(seg.Text)
	}
	return sb.String()
}
