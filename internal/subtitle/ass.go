package subtitle

import (
	"regexp"
	"strings"
)

// Advanced SubStation Alpha / SubStation Alpha parser
type ASSParser struct{}

// column positions of a Dialogue line
type assColumns struct {
	start int
	end   int
	text  int
	count int
}

// Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
var defaultASSColumns = assColumns{start: 1, end: 2, text: 9, count: 10}

var assOverride = regexp.MustCompile(`\{[^}]*\}`)

var assEscapes = strings.NewReplacer(
	`\N`, "\n",
	`\n`, "\n",
	`\h`, " ",
)

func (ASSParser) Parse(content string) []Cue {
	columns := defaultASSColumns
	inEvents := false

	var cues []Cue
	for _, line := range splitLines(content) {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			inEvents = strings.EqualFold(trimmed, "[Events]")
			continue
		}

		if inEvents && strings.HasPrefix(trimmed, "Format:") {
			if c, ok := parseASSFormat(strings.TrimPrefix(trimmed, "Format:")); ok {
				columns = c
			}
			continue
		}

		if !strings.HasPrefix(trimmed, "Dialogue:") {
			continue
		}

		body := strings.TrimSpace(strings.TrimPrefix(trimmed, "Dialogue:"))
		if cue, ok := parseDialogue(body, columns); ok {
			cues = append(cues, cue)
		}
	}

	return cues
}

// Text is always the last column, so SplitN keeps commas in the text
func parseASSFormat(spec string) (assColumns, bool) {
	names := strings.Split(spec, ",")
	c := assColumns{start: -1, end: -1, text: -1, count: len(names)}

	for i, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "start":
			c.start = i
		case "end":
			c.end = i
		case "text":
			c.text = i
		}
	}

	if c.start < 0 || c.end < 0 || c.text != c.count-1 {
		return assColumns{}, false
	}
	return c, true
}

func parseDialogue(body string, columns assColumns) (Cue, bool) {
	fields := strings.SplitN(body, ",", columns.count)
	if len(fields) < columns.count {
		return Cue{}, false
	}

	start, err := ParseTimestamp(fields[columns.start], FormatASS)
	if err != nil {
		return Cue{}, false
	}
	end, err := ParseTimestamp(fields[columns.end], FormatASS)
	if err != nil {
		return Cue{}, false
	}

	text := assOverride.ReplaceAllString(fields[columns.text], "")
	text = assEscapes.Replace(text)

	return newCue(start, end, text)
}
