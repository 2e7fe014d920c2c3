package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mgpai22/cuetrack/internal/media"
	"github.com/mgpai22/cuetrack/internal/subtitle"
)

// Transcriber backed by the OpenAI audio API
type OpenAITranscriber struct {
	client  openai.Client
	model   string
	options Options
}

type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// verbose_json response body
type whisperVerboseResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

func NewOpenAITranscriber(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*OpenAITranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	model := opts.Model
	if model == "" {
		model = "whisper-1"
	}

	return &OpenAITranscriber{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		options: opts,
	}, nil
}

func (t *OpenAITranscriber) Transcribe(
	ctx context.Context,
	audioPath string,
) (*Result, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	// only a fallback end time when the response carries no timing
	duration, _ := media.Duration(ctx, audioPath)

	if t.translatesToEnglish() {
		return t.translate(ctx, file, duration)
	}
	return t.transcribe(ctx, file, duration)
}

// the translations endpoint always produces English
func (t *OpenAITranscriber) translatesToEnglish() bool {
	lang := strings.ToLower(strings.TrimSpace(t.options.TranscriptLanguage))
	return lang == "english" || lang == "en"
}

func (t *OpenAITranscriber) translate(
	ctx context.Context,
	file *os.File,
	duration float64,
) (*Result, error) {
	params := openai.AudioTranslationNewParams{
		File:           file,
		Model:          openai.AudioModel(t.model),
		ResponseFormat: openai.AudioTranslationNewParamsResponseFormatVerboseJSON,
	}
	if t.options.Prompt != "" {
		params.Prompt = openai.String(t.options.Prompt)
	}

	resp, err := t.client.Audio.Translations.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("translation failed: %w", err)
	}

	return &Result{
		Cues:     cuesOrWhole(resp.RawJSON(), resp.Text, duration),
		Language: "en",
		Duration: duration,
	}, nil
}

func (t *OpenAITranscriber) transcribe(
	ctx context.Context,
	file *os.File,
	duration float64,
) (*Result, error) {
	params := openai.AudioTranscriptionNewParams{
		File:                   file,
		Model:                  openai.AudioModel(t.model),
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"segment"},
	}
	if t.options.Language != "" {
		params.Language = openai.String(t.options.Language)
	}
	if t.options.Prompt != "" {
		params.Prompt = openai.String(t.options.Prompt)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	return &Result{
		Cues:     cuesOrWhole(resp.RawJSON(), resp.Text, duration),
		Language: t.options.Language,
		Duration: duration,
	}, nil
}

// segment cues when the body parses, otherwise one cue over the whole
// audio
func cuesOrWhole(rawJSON, text string, duration float64) []subtitle.Cue {
	cues, err := parseVerboseJSON(rawJSON, duration)
	if err == nil {
		return cues
	}
	text = strings.TrimSpace(text)
	if text == "" || duration <= 0 {
		return nil
	}
	return []subtitle.Cue{{Start: 0, End: duration, Text: text}}
}

func parseVerboseJSON(rawJSON string, fallbackDuration float64) ([]subtitle.Cue, error) {
	if rawJSON == "" {
		return nil, fmt.Errorf("empty response")
	}

	var resp whisperVerboseResponse
	if err := json.Unmarshal([]byte(rawJSON), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse verbose_json response: %w", err)
	}

	if len(resp.Segments) == 0 {
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return nil, fmt.Errorf("no segments or text in response")
		}
		end := fallbackDuration
		if resp.Duration > 0 {
			end = resp.Duration
		}
		return []subtitle.Cue{{Start: 0, End: end, Text: text}}, nil
	}

	cues := make([]subtitle.Cue, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		cues = append(cues, subtitle.Cue{Start: seg.Start, End: seg.End, Text: text})
	}
	return cues, nil
}
