package subtitle

import (
	"math"
	"strings"
	"unicode/utf8"
)

// shapes raw transcription segments into displayable cues
type Generator struct {
	MaxCharsPerLine int
	MaxLinesPerCue  int
	// seconds
	MaxDuration float64
}

func NewGenerator() *Generator {
	return &Generator{
		MaxCharsPerLine: 42, // Standard subtitle line length
		MaxLinesPerCue:  2,  // Most players support 2 lines
		MaxDuration:     7,
	}
}

// splits long segments and wraps text; empty segments are dropped
func (g *Generator) Generate(segments []Cue) []Cue {
	var cues []Cue

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" || !seg.valid() {
			continue
		}
		seg.Text = text

		if g.needsSplit(text, seg.Duration()) {
			cues = append(cues, g.splitSegment(seg)...)
			continue
		}

		seg.Text = g.formatText(text)
		cues = append(cues, seg)
	}

	return cues
}

func (g *Generator) needsSplit(text string, duration float64) bool {
	if utf8.RuneCountInString(text) > g.MaxCharsPerLine*g.MaxLinesPerCue {
		return true
	}
	return g.MaxDuration > 0 && duration > g.MaxDuration
}

// splits a long segment into evenly timed pieces
func (g *Generator) splitSegment(seg Cue) []Cue {
	words := strings.Fields(seg.Text)
	if len(words) == 0 {
		return nil
	}

	maxChars := g.MaxCharsPerLine * g.MaxLinesPerCue
	totalChars := utf8.RuneCountInString(seg.Text)

	numSplits := (totalChars + maxChars - 1) / maxChars
	if g.MaxDuration > 0 {
		if byDuration := int(math.Floor(seg.Duration()/g.MaxDuration)) + 1; byDuration > numSplits {
			numSplits = byDuration
		}
	}
	if numSplits > len(words) {
		numSplits = len(words)
	}
	if numSplits < 1 {
		numSplits = 1
	}

	wordsPerSplit := (len(words) + numSplits - 1) / numSplits
	durationPerSplit := seg.Duration() / float64(numSplits)

	var cues []Cue
	currentStart := seg.Start

	for i := 0; i < numSplits && len(words) > 0; i++ {
		endIdx := min(wordsPerSplit, len(words))
		splitWords := words[:endIdx]
		words = words[endIdx:]

		currentEnd := currentStart + durationPerSplit
		// last piece ends at the original end time
		if len(words) == 0 {
			currentEnd = seg.End
		}

		cues = append(cues, Cue{
			Start: currentStart,
			End:   currentEnd,
			Text:  g.formatText(strings.Join(splitWords, " ")),
		})

		currentStart = currentEnd
	}

	return cues
}

// wraps text onto two lines at the word break closest to the middle
func (g *Generator) formatText(text string) string {
	runeCount := utf8.RuneCountInString(text)
	if runeCount <= g.MaxCharsPerLine {
		return text
	}

	words := strings.Fields(text)
	if len(words) < 2 {
		return text
	}

	middle := runeCount / 2
	bestSplit := 0
	bestDiff := runeCount

	currentLen := 0
	for i, word := range words[:len(words)-1] {
		currentLen += utf8.RuneCountInString(word)
		if i > 0 {
			currentLen++ // space
		}

		diff := abs(currentLen - middle)
		if diff < bestDiff {
			bestDiff = diff
			bestSplit = i + 1
		}
	}

	if bestSplit > 0 && bestSplit < len(words) {
		return strings.Join(words[:bestSplit], " ") + "\n" +
			strings.Join(words[bestSplit:], " ")
	}

	return text
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
