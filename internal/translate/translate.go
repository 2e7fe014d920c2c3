// Package translate produces a caption track in another language by
// sending batches of cue text to a chat model. Timings are carried over
// unchanged.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mgpai22/cuetrack/internal/subtitle"
)

const (
	DefaultBatchSize   = 50
	DefaultConcurrency = 3
)

// one cue's text, keyed by its position in the track
type Item struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// interface for a single translation request
type Translator interface {
	TranslateBatch(ctx context.Context, items []Item) ([]Item, error)
}

// translation service provider
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

type Options struct {
	InputLanguage  string
	TargetLanguage string
	Model          string
	Prompt         string
}

// creates Translator based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Translator, error) {
	if opts.TargetLanguage == "" {
		return nil, fmt.Errorf("target language is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	switch provider {
	case ProviderGemini:
		return NewGeminiTranslator(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAITranslator(apiKey, opts), nil
	case ProviderAnthropic:
		return NewAnthropicTranslator(apiKey, opts), nil
	default:
		return nil, fmt.Errorf("unsupported translation provider: %s", provider)
	}
}

// batching for TranslateTrack
type BatchOptions struct {
	BatchSize   int
	Concurrency int
}

// TranslateTrack translates every cue of track and returns a new track
// tagged with language. Batches run concurrently; the first failure
// cancels the others.
func TranslateTrack(
	ctx context.Context,
	t Translator,
	track *subtitle.Track,
	language string,
	opts BatchOptions,
) (*subtitle.Track, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	cues := track.Cues()
	items := make([]Item, len(cues))
	for i, c := range cues {
		items[i] = Item{Index: i, Text: c.Text}
	}

	translated := make([]string, len(cues))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for start := 0; start < len(items); start += opts.BatchSize {
		batch := items[start:min(start+opts.BatchSize, len(items))]
		g.Go(func() error {
			results, err := t.TranslateBatch(gctx, batch)
			if err != nil {
				return fmt.Errorf("batch at cue %d failed: %w", batch[0].Index, err)
			}
			if err := checkBatch(batch, results); err != nil {
				return fmt.Errorf("batch at cue %d: %w", batch[0].Index, err)
			}
			// indices are confined to this batch, so writes never overlap
			for _, r := range results {
				translated[r.Index] = r.Text
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]subtitle.Cue, len(cues))
	for i, c := range cues {
		out[i] = c
		if text := subtitle.NormalizeText(translated[i]); text != "" {
			out[i].Text = text
		}
	}
	return subtitle.NewTrack(track.SourceID(), language, track.Format(), out), nil
}

// every sent index comes back exactly once
func checkBatch(sent, got []Item) error {
	if len(got) != len(sent) {
		return fmt.Errorf("expected %d results, got %d", len(sent), len(got))
	}
	want := make(map[int]bool, len(sent))
	for _, it := range sent {
		want[it.Index] = true
	}
	for _, r := range got {
		if !want[r.Index] {
			return fmt.Errorf("unexpected or repeated index %d", r.Index)
		}
		delete(want, r.Index)
	}
	return nil
}

// BuildPrompt creates the translation prompt for LLM providers
func BuildPrompt(opts Options, items []Item) string {
	var sb strings.Builder

	if opts.InputLanguage != "" {
		fmt.Fprintf(&sb, "Translate the following %s subtitle texts to %s.\n\n", opts.InputLanguage, opts.TargetLanguage)
	} else {
		fmt.Fprintf(&sb, "Translate the following subtitle texts to %s.\n\n", opts.TargetLanguage)
	}

	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString("1. Translate ONLY the text content, preserving the meaning.\n")
	sb.WriteString("2. Preserve line breaks (\\n) in the same positions.\n")
	sb.WriteString("3. Return ONLY a JSON array with the same structure.\n")
	sb.WriteString("4. Each object must have 'index' and 'text' fields.\n")
	sb.WriteString("5. The 'index' values must match the input indices exactly.\n")
	sb.WriteString("6. Do not add any explanation or markdown formatting.\n\n")

	if opts.Prompt != "" {
		fmt.Fprintf(&sb, "Additional instructions: %s\n\n", opts.Prompt)
	}

	sb.WriteString("Input JSON:\n")
	inputJSON, _ := json.MarshalIndent(items, "", "  ")
	sb.Write(inputJSON)
	sb.WriteString("\n\nOutput the translated JSON array only:")

	return sb.String()
}
