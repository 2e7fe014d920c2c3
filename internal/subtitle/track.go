package subtitle

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// Track is an immutable, start-ordered sequence of cues for one source
// and language. It is safe for concurrent readers without locking.
type Track struct {
	id       string
	sourceID string
	language string
	format   Format

	cues []Cue
	// maxEnd[i] is the largest End among cues[0..i]
	maxEnd []float64
}

// NewTrack copies cues, drops entries that are not strictly positive in
// length, and orders the rest by start time (stable for equal starts).
func NewTrack(sourceID, language string, format Format, cues []Cue) *Track {
	kept := make([]Cue, 0, len(cues))
	for _, c := range cues {
		if c.valid() {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Start < kept[j].Start
	})

	maxEnd := make([]float64, len(kept))
	running := math.Inf(-1)
	for i, c := range kept {
		running = math.Max(running, c.End)
		maxEnd[i] = running
	}

	return &Track{
		id:       uuid.NewString(),
		sourceID: sourceID,
		language: language,
		format:   format,
		cues:     kept,
		maxEnd:   maxEnd,
	}
}

// track with no cues
func EmptyTrack(sourceID, language string) *Track {
	return NewTrack(sourceID, language, FormatNone, nil)
}

// unique per constructed track; a rebuilt track gets a new ID
func (t *Track) ID() string       { return t.id }
func (t *Track) SourceID() string { return t.sourceID }
func (t *Track) Language() string { return t.language }
func (t *Track) Format() Format   { return t.format }
func (t *Track) Len() int         { return len(t.cues) }
func (t *Track) IsEmpty() bool    { return len(t.cues) == 0 }

// copy of the cues in start order
func (t *Track) Cues() []Cue {
	out := make([]Cue, len(t.cues))
	copy(out, t.cues)
	return out
}

// end time of the latest-ending cue, zero for an empty track
func (t *Track) Duration() float64 {
	if len(t.maxEnd) == 0 {
		return 0
	}
	return t.maxEnd[len(t.maxEnd)-1]
}

// ActiveCueAt returns the first cue, in start order, whose
// [Start, End] range contains at. Both edges are inclusive, so for
// adjacent cues [0,2] and [2,4] the cue [0,2] is returned at 2.
func (t *Track) ActiveCueAt(at float64) (Cue, bool) {
	if t == nil || len(t.cues) == 0 || math.IsNaN(at) {
		return Cue{}, false
	}

	// cues[:upper] start at or before `at`
	upper := sort.Search(len(t.cues), func(i int) bool {
		return t.cues[i].Start > at
	})

	match := -1
	for i := upper - 1; i >= 0 && t.maxEnd[i] >= at; i-- {
		if t.cues[i].End >= at {
			match = i
		}
	}
	if match < 0 {
		return Cue{}, false
	}
	return t.cues[match], true
}

// all cues overlapping [from, to], in start order
func (t *Track) CuesBetween(from, to float64) []Cue {
	if t == nil || to < from {
		return nil
	}

	upper := sort.Search(len(t.cues), func(i int) bool {
		return t.cues[i].Start > to
	})

	var out []Cue
	for _, c := range t.cues[:upper] {
		if c.End >= from {
			out = append(out, c)
		}
	}
	return out
}
