package subtitle

import (
	"strings"
)

// WebVTT parser
type VTTParser struct{}

func (VTTParser) Parse(content string) []Cue {
	blocks := splitBlocks(content)

	if len(blocks) > 0 && isVTTHeader(blocks[0][0]) {
		blocks[0] = blocks[0][1:]
	}

	var cues []Cue
	for _, block := range blocks {
		if len(block) == 0 || isVTTMetadataBlock(block[0]) {
			continue
		}
		cues = append(cues, parseVTTBlock(block)...)
	}
	return cues
}

func isVTTHeader(line string) bool {
	line = strings.TrimSpace(line)
	return line == "WEBVTT" ||
		strings.HasPrefix(line, "WEBVTT ") ||
		strings.HasPrefix(line, "WEBVTT\t")
}

func isVTTMetadataBlock(first string) bool {
	first = strings.TrimSpace(first)
	for _, keyword := range []string{"NOTE", "STYLE", "REGION"} {
		if first == keyword ||
			strings.HasPrefix(first, keyword+" ") ||
			strings.HasPrefix(first, keyword+"\t") {
			return true
		}
	}
	return false
}

// A block holds an optional identifier, a timing line and text. A
// timing line inside the text starts a new cue so files missing blank
// separators still parse.
func parseVTTBlock(lines []string) []Cue {
	var (
		cues      []Cue
		textLines []string
		open      bool
		start     float64
		end       float64
	)

	flush := func() {
		if open {
			if cue, ok := newCue(start, end, strings.Join(textLines, "\n")); ok {
				cues = append(cues, cue)
			}
		}
		open = false
		textLines = nil
	}

	for _, line := range lines {
		if strings.Contains(line, "-->") {
			flush()
			s, e, err := parseTimingLine(line, FormatVTT)
			if err != nil {
				continue
			}
			start, end, open = s, e, true
			continue
		}
		if open {
			textLines = append(textLines, line)
		}
	}
	flush()

	return cues
}
