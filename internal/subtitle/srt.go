package subtitle

import (
	"fmt"
	"strings"
)

// SubRip parser
type SRTParser struct{}

func (SRTParser) Parse(content string) []Cue {
	var cues []Cue
	for _, block := range splitBlocks(content) {
		if cue, ok := parseSRTBlock(block); ok {
			cues = append(cues, cue)
		}
	}
	return cues
}

// index line, timing line, then text up to the blank separator
func parseSRTBlock(lines []string) (Cue, bool) {
	timing := -1
	for i := 0; i < len(lines) && i < 2; i++ {
		if strings.Contains(lines[i], "-->") {
			timing = i
			break
		}
	}
	if timing < 0 {
		return Cue{}, false
	}

	start, end, err := parseTimingLine(lines[timing], FormatSRT)
	if err != nil {
		return Cue{}, false
	}

	return newCue(start, end, strings.Join(lines[timing+1:], "\n"))
}

// "start --> end", anything after the end timestamp (cue settings,
// coordinates) is ignored
func parseTimingLine(line string, kind Format) (float64, float64, error) {
	before, after, found := strings.Cut(line, "-->")
	if !found {
		return 0, 0, fmt.Errorf("missing --> in timing line %q", line)
	}

	endFields := strings.Fields(after)
	if len(endFields) == 0 {
		return 0, 0, fmt.Errorf("%w: missing end time in %q", ErrMalformedTimestamp, line)
	}

	start, err := ParseTimestamp(before, kind)
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseTimestamp(endFields[0], kind)
	if err != nil {
		return 0, 0, err
	}

	return start, end, nil
}
