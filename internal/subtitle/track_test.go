package subtitle

import (
	"math"
	"testing"
)

func TestActiveCueAt(t *testing.T) {
	track := NewTrack("movie.mp4", "en", FormatSRT, []Cue{
		{Start: 1, End: 3, Text: "first"},
		{Start: 5, End: 7, Text: "second"},
		{Start: 7, End: 9, Text: "third"},
	})

	tests := []struct {
		name   string
		at     float64
		want   string
		wantOK bool
	}{
		{"before first", 0.5, "", false},
		{"negative", -1, "", false},
		{"first start edge", 1, "first", true},
		{"inside first", 2, "first", true},
		{"first end edge", 3, "first", true},
		{"gap", 4, "", false},
		{"adjacent boundary picks earlier", 7, "second", true},
		{"inside third", 8.5, "third", true},
		{"last end edge", 9, "third", true},
		{"after last", 9.001, "", false},
		{"far past end", 1e9, "", false},
		{"nan", math.NaN(), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cue, ok := track.ActiveCueAt(tt.at)
			if ok != tt.wantOK {
				t.Fatalf("ActiveCueAt(%v) ok = %v, want %v", tt.at, ok, tt.wantOK)
			}
			if cue.Text != tt.want {
				t.Errorf("ActiveCueAt(%v) = %q, want %q", tt.at, cue.Text, tt.want)
			}
		})
	}
}

func TestActiveCueAtAdjacentZeroBased(t *testing.T) {
	track := NewTrack("a", "en", FormatSRT, []Cue{
		{Start: 0, End: 2, Text: "a"},
		{Start: 2, End: 4, Text: "b"},
	})
	cue, ok := track.ActiveCueAt(2)
	if !ok || cue.Text != "a" {
		t.Errorf("ActiveCueAt(2) = %+v, %v; want cue a", cue, ok)
	}
}

func TestActiveCueAtOverlapping(t *testing.T) {
	track := NewTrack("a", "en", FormatASS, []Cue{
		{Start: 0, End: 10, Text: "long"},
		{Start: 2, End: 3, Text: "short"},
		{Start: 4, End: 5, Text: "later"},
	})

	cue, ok := track.ActiveCueAt(4.5)
	if !ok || cue.Text != "long" {
		t.Errorf("ActiveCueAt(4.5) = %+v, %v; want the earliest covering cue", cue, ok)
	}

	cue, ok = track.ActiveCueAt(9)
	if !ok || cue.Text != "long" {
		t.Errorf("ActiveCueAt(9) = %+v, %v; want long", cue, ok)
	}
}

func TestEmptyTrack(t *testing.T) {
	track := EmptyTrack("movie.mp4", "en")
	if !track.IsEmpty() || track.Len() != 0 {
		t.Fatalf("expected empty track, got %d cues", track.Len())
	}
	if _, ok := track.ActiveCueAt(1); ok {
		t.Error("empty track returned a cue")
	}
	if track.Duration() != 0 {
		t.Errorf("Duration() = %v, want 0", track.Duration())
	}

	var nilTrack *Track
	if _, ok := nilTrack.ActiveCueAt(1); ok {
		t.Error("nil track returned a cue")
	}
}

func TestNewTrackSortsAndFilters(t *testing.T) {
	input := []Cue{
		{Start: 5, End: 6, Text: "c"},
		{Start: 1, End: 2, Text: "a"},
		{Start: 3, End: 3, Text: "zero length"},
		{Start: -1, End: 2, Text: "negative"},
		{Start: 1, End: 4, Text: "b"},
		{Start: math.NaN(), End: 4, Text: "nan"},
	}
	track := NewTrack("x", "en", FormatExternal, input)

	got := track.Cues()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %d cues, got %+v", len(want), got)
	}
	for i := range want {
		if got[i].Text != want[i] {
			t.Errorf("cue %d = %q, want %q", i, got[i].Text, want[i])
		}
	}

	if track.Duration() != 6 {
		t.Errorf("Duration() = %v, want 6", track.Duration())
	}

	// input slice untouched
	if input[0].Text != "c" {
		t.Error("NewTrack reordered the caller's slice")
	}
}

func TestTrackIsImmutable(t *testing.T) {
	track := NewTrack("x", "en", FormatSRT, []Cue{{Start: 1, End: 2, Text: "original"}})

	cues := track.Cues()
	cues[0].Text = "changed"

	cue, _ := track.ActiveCueAt(1.5)
	if cue.Text != "original" {
		t.Errorf("mutating Cues() result changed the track: %q", cue.Text)
	}
}

func TestTrackIDsAreUnique(t *testing.T) {
	a := NewTrack("x", "en", FormatSRT, nil)
	b := NewTrack("x", "en", FormatSRT, nil)
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("expected distinct non-empty IDs, got %q and %q", a.ID(), b.ID())
	}
}

func TestCuesBetween(t *testing.T) {
	track := NewTrack("x", "en", FormatSRT, []Cue{
		{Start: 0, End: 1, Text: "a"},
		{Start: 2, End: 3, Text: "b"},
		{Start: 4, End: 5, Text: "c"},
	})

	got := track.CuesBetween(1, 4)
	if len(got) != 3 {
		t.Fatalf("CuesBetween(1, 4) returned %d cues, want 3", len(got))
	}

	got = track.CuesBetween(1.5, 1.9)
	if len(got) != 0 {
		t.Errorf("CuesBetween(1.5, 1.9) = %+v, want none", got)
	}

	if got := track.CuesBetween(5, 1); got != nil {
		t.Errorf("inverted window returned %+v", got)
	}
}
