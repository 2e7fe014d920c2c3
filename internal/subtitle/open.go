package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// parser for a format
func ParserFor(format Format) (Parser, error) {
	switch format {
	case FormatSRT:
		return SRTParser{}, nil
	case FormatVTT:
		return VTTParser{}, nil
	case FormatASS:
		return ASSParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// subtitle format based on file extension
func FormatFromExtension(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".srt":
		return FormatSRT, nil
	case ".vtt":
		return FormatVTT, nil
	case ".ass", ".ssa":
		return FormatASS, nil
	default:
		return FormatNone, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// file extension for a format
func ExtensionForFormat(format Format) string {
	switch format {
	case FormatVTT:
		return ".vtt"
	case FormatASS:
		return ".ass"
	default:
		return ".srt"
	}
}

// parses format-specific content into a track
func ParseContent(
	content string,
	format Format,
	sourceID, language string,
) (*Track, error) {
	parser, err := ParserFor(format)
	if err != nil {
		return nil, err
	}
	return NewTrack(sourceID, language, format, parser.Parse(content)), nil
}

// reads and parses a subtitle file, picking the parser by extension
func Open(path, language string) (*Track, error) {
	format, err := FormatFromExtension(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}

	return ParseContent(string(data), format, path, language)
}
