package subtitle

import (
	"errors"
	"math"
	"strings"
)

var (
	// a single timestamp did not match its format's grammar
	ErrMalformedTimestamp = errors.New("malformed timestamp")

	// no parser or writer exists for the requested format
	ErrUnsupportedFormat = errors.New("unsupported subtitle format")
)

// single timed caption entry, times in seconds
type Cue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func (c Cue) Duration() float64 {
	return c.End - c.Start
}

// inclusive on both edges
func (c Cue) Contains(t float64) bool {
	return c.Start <= t && t <= c.End
}

func (c Cue) valid() bool {
	if math.IsNaN(c.Start) || math.IsNaN(c.End) ||
		math.IsInf(c.Start, 0) || math.IsInf(c.End, 0) {
		return false
	}
	return c.Start >= 0 && c.End > c.Start
}

// represents supported subtitle formats
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatASS Format = "ass"

	// cues supplied already parsed, e.g. by a transcription service
	FormatExternal Format = "external"

	// no source was found
	FormatNone Format = ""
)

// interface for parsing subtitle text into cues
//
// Parse never fails: blocks that cannot be parsed are dropped and every
// recoverable cue is returned in source order.
type Parser interface {
	Parse(content string) []Cue
}

// interface for writing tracks to files
type Writer interface {
	Write(track *Track, path string) error
}

// builds a cue from raw parsed fields; ok is false when the cue must be
// dropped
func newCue(start, end float64, rawText string) (Cue, bool) {
	c := Cue{Start: start, End: end, Text: NormalizeText(rawText)}
	if !c.valid() || c.Text == "" {
		return Cue{}, false
	}
	return c, true
}

// splits content into lines, normalizing line endings and dropping a
// leading byte order mark
func splitLines(content string) []string {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	return strings.Split(content, "\n")
}

// groups lines into blocks separated by one or more blank lines
func splitBlocks(content string) [][]string {
	var blocks [][]string
	var current []string

	for _, line := range splitLines(content) {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}

	return blocks
}
