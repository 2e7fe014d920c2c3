package subtitle

import (
	"regexp"
	"strings"
)

var markupTag = regexp.MustCompile(`<[^>]*>`)

// decoded in order, &amp; first, so a double-escaped "&amp;lt;" ends as "<"
var entities = []struct{ from, to string }{
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&#39;", "'"},
}

// NormalizeText strips markup tags, decodes the five standard HTML
// entities and drops blank lines. Tags are removed before decoding so an
// escaped "&lt;b&gt;" survives as literal text.
func NormalizeText(text string) string {
	text = markupTag.ReplaceAllString(text, "")
	for _, e := range entities {
		text = strings.ReplaceAll(text, e.from, e.to)
	}
	return compactLines(text)
}

// trims each line and removes empty ones; a blank line inside cue text
// would end the cue in SRT and WebVTT
func compactLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(strings.TrimRight(line, "\r"))
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
