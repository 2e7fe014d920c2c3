package transcribe

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/mgpai22/cuetrack/internal/subtitle"
)

func TestGeminiReplyToCues(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []subtitle.Cue
	}{
		{
			name:  "bare array",
			reply: `[{"start": 0.0, "end": 2.5, "text": "Hello world"}, {"start": 2.5, "end": 5.0, "text": "How are you"}]`,
			want: []subtitle.Cue{
				{Start: 0, End: 2.5, Text: "Hello world"},
				{Start: 2.5, End: 5, Text: "How are you"},
			},
		},
		{
			name: "prose around the array",
			reply: `Sure, here is the transcript:
			[{"start": 1.0, "end": 3.0, "text": "Only line"}]
			Let me know if you need changes.`,
			want: []subtitle.Cue{{Start: 1, End: 3, Text: "Only line"}},
		},
		{
			name:  "segments wrapper",
			reply: `{"segments": [{"start": 4.25, "end": 6, "text": "wrapped"}]}`,
			want:  []subtitle.Cue{{Start: 4.25, End: 6, Text: "wrapped"}},
		},
		{
			name:  "wrapper nested under an unknown key",
			reply: `{"response": {"transcript": [{"start": 0, "end": 1, "text": "deep"}]}}`,
			want:  []subtitle.Cue{{Start: 0, End: 1, Text: "deep"}},
		},
		{
			name: "status object skipped before the transcript",
			reply: `{"status": "ok"}
			[{"start": 7, "end": 8, "text": "after status"}]`,
			want: []subtitle.Cue{{Start: 7, End: 8, Text: "after status"}},
		},
		{
			name: "all-zero array rejected, later array used",
			reply: `[{"start": 0, "end": 0, "text": ""}]
			[{"start": 2, "end": 3, "text": "real"}]`,
			want: []subtitle.Cue{{Start: 2, End: 3, Text: "real"}},
		},
		{
			name:  "ASS line break survives invalid escape",
			reply: `[{"start": 0, "end": 2, "text": "top\N bottom"}]`,
			want:  []subtitle.Cue{{Start: 0, End: 2, Text: "top\nbottom"}},
		},
		{
			name:  "markup and entities cleaned",
			reply: `[{"start": 1, "end": 2, "text": "<i>Tom &amp; Jerry</i>"}]`,
			want:  []subtitle.Cue{{Start: 1, End: 2, Text: "Tom & Jerry"}},
		},
		{
			name: "blank-text segment dropped",
			reply: `[{"start": 1, "end": 2, "text": "  "},
				{"start": 2, "end": 3, "text": "kept"}]`,
			want: []subtitle.Cue{{Start: 2, End: 3, Text: "kept"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := extractTranscriptSegments(tt.reply)
			if err != nil {
				t.Fatalf("extractTranscriptSegments() error = %v", err)
			}
			if got := segmentsToCues(segments); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("cues = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestGeminiReplyWithoutTranscript(t *testing.T) {
	replies := map[string]string{
		"empty array":    `[]`,
		"plain prose":    `I could not hear any speech in this recording.`,
		"truncated JSON": `[{"start": 0.0, "end": 2.0, "text": "cut off"`,
		"all-zero":       `[{"start": 0, "end": 0, "text": ""}]`,
		"numbers only":   `[1, 2, 3]`,
	}
	for name, reply := range replies {
		t.Run(name, func(t *testing.T) {
			_, err := extractTranscriptSegments(reply)
			if !errors.Is(err, errNoTranscript) {
				t.Errorf("error = %v, want errNoTranscript", err)
			}
		})
	}
}

func TestValidateSegments(t *testing.T) {
	tests := []struct {
		name     string
		segments []transcriptSegment
		want     bool
	}{
		{"nil", nil, false},
		{"only zero values", []transcriptSegment{{}, {}}, false},
		{"text without timing", []transcriptSegment{{Text: "hi"}}, true},
		{"timing without text", []transcriptSegment{{Start: 0, End: 1.5}}, true},
		{"zero first, usable second", []transcriptSegment{{}, {Start: 1, End: 2, Text: "ok"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validateSegments(tt.segments); got != tt.want {
				t.Errorf("validateSegments() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGeminiPrompt(t *testing.T) {
	tr := &GeminiTranscriber{options: Options{Language: "fr", TranscriptLanguage: "english", Prompt: "Speaker is a chef."}}
	prompt := tr.prompt()
	for _, want := range []string{"The audio is in fr.", "Output the transcript in english.", "Speaker is a chef."} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	native := (&GeminiTranscriber{options: Options{TranscriptLanguage: "native"}}).prompt()
	if strings.Contains(native, "Output the transcript in") {
		t.Error("native transcript should not ask for a translation")
	}
}
