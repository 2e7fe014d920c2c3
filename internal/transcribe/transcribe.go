// Package transcribe turns audio into timed cues using hosted
// speech-to-text models.
package transcribe

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mgpai22/cuetrack/internal/media"
	"github.com/mgpai22/cuetrack/internal/subtitle"
)

// transcription result, times in seconds
type Result struct {
	Cues     []subtitle.Cue
	Language string
	Duration float64
}

// interface for audio transcription
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}

// transcription service provider
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// transcription options
type Options struct {
	Language           string // Source language of audio
	TranscriptLanguage string // Output language for transcript (default: "native")
	Model              string
	Prompt             string
}

// creates transcriber based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Transcriber, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiTranscriber(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAITranscriber(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// TranscribeChunks runs t over every chunk, at most concurrency at a
// time, and merges the cues onto the timeline of the original audio.
// The first failing chunk cancels the rest.
func TranscribeChunks(
	ctx context.Context,
	t Transcriber,
	chunks []media.Chunk,
	language string,
	concurrency int,
) (*Result, error) {
	if len(chunks) == 0 {
		return &Result{Language: language}, nil
	}
	if concurrency <= 0 {
		concurrency = 3
	}

	perChunk := make([][]subtitle.Cue, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			res, err := t.Transcribe(gctx, chunk.Path)
			if err != nil {
				return fmt.Errorf("chunk %d failed: %w", chunk.Index, err)
			}
			perChunk[i] = offsetCues(res.Cues, chunk.Start)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var cues []subtitle.Cue
	for _, c := range perChunk {
		cues = append(cues, c...)
	}

	return &Result{
		Cues:     cues,
		Language: language,
		Duration: chunks[len(chunks)-1].End,
	}, nil
}

// shifts chunk-relative cue times onto the full timeline
func offsetCues(cues []subtitle.Cue, offset float64) []subtitle.Cue {
	out := make([]subtitle.Cue, len(cues))
	for i, c := range cues {
		out[i] = subtitle.Cue{
			Start: c.Start + offset,
			End:   c.End + offset,
			Text:  c.Text,
		}
	}
	return out
}
