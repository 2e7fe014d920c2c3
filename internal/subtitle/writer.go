package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SubRip format
type SRTWriter struct{}

// WebVTT format
type VTTWriter struct{}

// Advanced SubStation Alpha format
type ASSWriter struct {
	Title    string
	FontName string
	FontSize int
}

func NewWriter(format Format) (Writer, error) {
	switch format {
	case FormatSRT:
		return &SRTWriter{}, nil
	case FormatVTT:
		return &VTTWriter{}, nil
	case FormatASS:
		return &ASSWriter{
			Title:    "cuetrack export",
			FontName: "Arial",
			FontSize: 20,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// writes the track to an SRT file
func (w *SRTWriter) Write(track *Track, path string) error {
	return writeFile(path, w.Render(track))
}

func (w *SRTWriter) Render(track *Track) string {
	var sb strings.Builder
	for i, cue := range track.cues {
		// index (1-based)
		fmt.Fprintf(&sb, "%d\n", i+1)

		// timestamps: 00:00:00,000 --> 00:00:00,000
		fmt.Fprintf(&sb, "%s --> %s\n",
			FormatTimestamp(cue.Start, FormatSRT),
			FormatTimestamp(cue.End, FormatSRT))

		sb.WriteString(compactLines(cue.Text))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// writes the track to a VTT file
func (w *VTTWriter) Write(track *Track, path string) error {
	return writeFile(path, w.Render(track))
}

func (w *VTTWriter) Render(track *Track) string {
	var sb strings.Builder

	sb.WriteString("WEBVTT\n\n")

	for i, cue := range track.cues {
		// optional cue identifier
		fmt.Fprintf(&sb, "%d\n", i+1)

		// timestamps: 00:00:00.000 --> 00:00:00.000
		fmt.Fprintf(&sb, "%s --> %s\n",
			FormatTimestamp(cue.Start, FormatVTT),
			FormatTimestamp(cue.End, FormatVTT))

		sb.WriteString(escapeVTTText(compactLines(cue.Text)))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// writes the track to an ASS file
func (w *ASSWriter) Write(track *Track, path string) error {
	return writeFile(path, w.Render(track))
}

func (w *ASSWriter) Render(track *Track) string {
	var sb strings.Builder

	// script info section
	sb.WriteString("[Script Info]\n")
	fmt.Fprintf(&sb, "Title: %s\n", w.Title)
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString("Collisions: Normal\n")
	sb.WriteString("PlayDepth: 0\n\n")

	// v4+ styles section
	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&sb, "Style: Default,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,2,2,2,10,10,10,1\n\n",
		w.FontName, w.FontSize)

	// events section
	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, cue := range track.cues {
		fmt.Fprintf(&sb, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			FormatTimestamp(cue.Start, FormatASS),
			FormatTimestamp(cue.End, FormatASS),
			escapeASSText(cue.Text))
	}
	return sb.String()
}

func escapeASSText(text string) string {
	return strings.ReplaceAll(text, "\n", "\\N")
}

// cue text must not contain "-->" or markup openers in WebVTT
func escapeVTTText(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	return strings.ReplaceAll(text, ">", "&gt;")
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}
