package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/mgpai22/cuetrack/internal/llmjson"
	"github.com/mgpai22/cuetrack/internal/media"
	"github.com/mgpai22/cuetrack/internal/subtitle"
)

// Transcriber backed by Gemini audio understanding
type GeminiTranscriber struct {
	client  *genai.Client
	model   string
	options Options
}

// one entry of the JSON transcript the model is asked for
type transcriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

var errNoTranscript = errors.New("no transcript segments in response")

// keys models commonly wrap the transcript array in, checked first
var transcriptKeys = []string{"segments", "transcript", "data"}

func NewGeminiTranscriber(ctx context.Context, apiKey string, opts Options) (*GeminiTranscriber, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiTranscriber{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (t *GeminiTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	uploaded, err := t.client.Files.UploadFromPath(ctx, audioPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upload audio file: %w", err)
	}
	defer func() {
		_, _ = t.client.Files.Delete(context.WithoutCancel(ctx), uploaded.Name, nil)
	}()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(t.prompt()),
			genai.NewPartFromURI(uploaded.URI, uploaded.MIMEType),
		}, genai.RoleUser),
	}

	resp, err := t.client.Models.GenerateContent(ctx, t.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	segments, err := extractTranscriptSegments(llmjson.Clean(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse transcription: %w (response: %s)", err, llmjson.Truncate(text, 200))
	}

	duration, _ := media.Duration(ctx, audioPath)

	return &Result{
		Cues:     segmentsToCues(segments),
		Language: t.options.Language,
		Duration: duration,
	}, nil
}

func (t *GeminiTranscriber) prompt() string {
	var sb strings.Builder

	sb.WriteString("Generate a detailed transcript of this audio. ")
	sb.WriteString("For each sentence or phrase, provide the start timestamp, end timestamp, and the exact text spoken. ")
	sb.WriteString("Format your response as a JSON array with objects containing 'start', 'end', and 'text' fields, ")
	sb.WriteString("where 'start' and 'end' are timestamps in seconds (as numbers). ")

	if t.options.Language != "" {
		fmt.Fprintf(&sb, "The audio is in %s. ", t.options.Language)
	}
	if t.options.TranscriptLanguage != "" && t.options.TranscriptLanguage != "native" {
		fmt.Fprintf(&sb, "Output the transcript in %s. ", t.options.TranscriptLanguage)
	}
	if t.options.Prompt != "" {
		sb.WriteString(t.options.Prompt)
		sb.WriteString(" ")
	}

	sb.WriteString("Return ONLY the JSON array, no other text or markdown formatting.")
	return sb.String()
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text in Gemini response")
	}
	return sb.String(), nil
}

// extractTranscriptSegments finds the first JSON value in s that holds a
// usable transcript: a bare array, or an array nested anywhere inside an
// object. Prose before and after the JSON is ignored.
func extractTranscriptSegments(s string) ([]transcriptSegment, error) {
	var segments []transcriptSegment
	accept := func(raw json.RawMessage) bool {
		var candidate []transcriptSegment
		if err := json.Unmarshal(raw, &candidate); err != nil || !validateSegments(candidate) {
			return false
		}
		segments = candidate
		return true
	}

	found := llmjson.Find(llmjson.FixInvalidEscapes(s), func(raw json.RawMessage) bool {
		return llmjson.Unwrap(raw, transcriptKeys, accept)
	})
	if !found {
		return nil, errNoTranscript
	}
	return segments, nil
}

// at least one segment carries timing or text
func validateSegments(segments []transcriptSegment) bool {
	for _, s := range segments {
		if s.Start != 0 || s.End != 0 || s.Text != "" {
			return true
		}
	}
	return false
}

// segments with no text left after normalization are dropped; an ASS
// style \N line break becomes a newline
func segmentsToCues(segments []transcriptSegment) []subtitle.Cue {
	cues := make([]subtitle.Cue, 0, len(segments))
	for _, s := range segments {
		text := subtitle.NormalizeText(strings.ReplaceAll(s.Text, `\N`, "\n"))
		if text == "" {
			continue
		}
		cues = append(cues, subtitle.Cue{Start: s.Start, End: s.End, Text: text})
	}
	return cues
}
