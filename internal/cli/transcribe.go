package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/cuetrack/internal/loader"
	"github.com/mgpai22/cuetrack/internal/media"
	"github.com/mgpai22/cuetrack/internal/subtitle"
	"github.com/mgpai22/cuetrack/internal/transcribe"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe [media_file]",
	Short: "Create a caption track for an audio or video file",
	Long: `Transcribe the speech in an audio or video file and write a caption
file next to it, named so that "cuetrack show" picks it up.

Audio is extracted and compressed with ffmpeg, split into chunks and the
chunks are transcribed in parallel. Cue times are shifted back onto the
timeline of the full file.

Examples:
  cuetrack transcribe movie.mkv
  cuetrack transcribe podcast.mp3 --provider openai -f vtt
  cuetrack transcribe lecture.mp4 -l fr --chunk-duration 2 --concurrency 5`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

func init() {
	rootCmd.AddCommand(transcribeCmd)

	transcribeCmd.Flags().
		String("provider", "gemini", "Transcription provider (gemini, openai)")
	transcribeCmd.Flags().
		StringP("api-key", "k", "", "API key (or set GEMINI_API_KEY/OPENAI_API_KEY env var)")
	transcribeCmd.Flags().
		Float64P("chunk-duration", "d", 1, "Chunk duration in minutes for splitting audio")
	transcribeCmd.Flags().
		StringP("format", "f", "srt", "Output subtitle format (srt, vtt, ass)")
	transcribeCmd.Flags().
		Int("concurrency", 3, "Number of parallel transcription requests")
	transcribeCmd.Flags().
		String("model", "", "Model to use (provider-specific, uses sensible defaults)")
	transcribeCmd.Flags().
		String("transcript-language", "native", "Output language for the transcript ('native' keeps the spoken language)")
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	mediaPath := args[0]
	ctx := context.Background()

	if _, err := os.Stat(mediaPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", mediaPath)
	}
	if !media.IsMediaFile(mediaPath) {
		return fmt.Errorf("unsupported file type: %s (expected audio or video file)", filepath.Ext(mediaPath))
	}

	providerStr, _ := cmd.Flags().GetString("provider")
	apiKey, _ := cmd.Flags().GetString("api-key")
	chunkMinutes, _ := cmd.Flags().GetFloat64("chunk-duration")
	formatStr, _ := cmd.Flags().GetString("format")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	model, _ := cmd.Flags().GetString("model")
	outputPath, _ := cmd.Flags().GetString("output")
	language, _ := cmd.Flags().GetString("language")
	transcriptLang, _ := cmd.Flags().GetString("transcript-language")

	provider := transcribe.Provider(strings.ToLower(providerStr))
	if provider != transcribe.ProviderGemini && provider != transcribe.ProviderOpenAI {
		return fmt.Errorf("unsupported provider %q: use gemini or openai", providerStr)
	}
	if provider == transcribe.ProviderOpenAI && !isValidOpenAITranscriptLanguage(transcriptLang) {
		return fmt.Errorf(
			"openai can only transcribe natively or into English, got transcript language %q",
			transcriptLang,
		)
	}
	if chunkMinutes <= 0 {
		return fmt.Errorf("chunk-duration must be positive, got %v", chunkMinutes)
	}
	if concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}

	apiKey, err := resolveAPIKey(apiKey, string(provider))
	if err != nil {
		return err
	}
	if model == "" {
		model = providerConfig(string(provider)).TranscribeModel
	}

	format, err := parseFormatFlag(formatStr)
	if err != nil {
		return err
	}

	language = loader.NormalizeLanguage(language)
	if outputPath == "" {
		outputPath = captionPath(mediaPath, language, format)
	}

	logger.Infow("Starting transcription",
		"input", mediaPath,
		"output", outputPath,
		"provider", provider,
		"format", format,
		"chunk_minutes", chunkMinutes,
		"concurrency", concurrency,
	)

	tempDir, err := os.MkdirTemp("", "cuetrack-*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	audioPath := filepath.Join(tempDir, "audio.mp3")
	logger.Infow("Preparing audio", "video", media.IsVideoFile(mediaPath))
	if err := media.ExtractAudio(ctx, mediaPath, audioPath, media.DefaultAudioOptions()); err != nil {
		return fmt.Errorf("failed to prepare audio: %w", err)
	}

	chunks, err := media.ChunkAudio(ctx, audioPath, chunkMinutes*60, filepath.Join(tempDir, "chunks"), concurrency)
	if err != nil {
		return fmt.Errorf("failed to split audio: %w", err)
	}
	logger.Infow("Created audio chunks", "count", len(chunks))

	transcriber, err := transcribe.Factory(ctx, provider, apiKey, transcribe.Options{
		Language:           language,
		TranscriptLanguage: transcriptLang,
		Model:              model,
	})
	if err != nil {
		return fmt.Errorf("failed to create transcriber: %w", err)
	}

	result, err := transcribe.TranscribeChunks(ctx, transcriber, chunks, language, concurrency)
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}
	logger.Infow("Transcription complete", "cues", len(result.Cues))

	cues := subtitle.NewGenerator().Generate(result.Cues)
	track := subtitle.NewTrack(mediaPath, language, format, cues)
	if track.IsEmpty() {
		return fmt.Errorf("transcription produced no cues")
	}

	writer, err := subtitle.NewWriter(format)
	if err != nil {
		return fmt.Errorf("failed to create subtitle writer: %w", err)
	}
	if err := writer.Write(track, outputPath); err != nil {
		return fmt.Errorf("failed to write subtitles: %w", err)
	}
	invalidateCachedBase(strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)), language)

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Subtitles generated successfully: %s\n", absOutput)
	fmt.Printf("  Cues: %d\n", track.Len())
	fmt.Printf("  Duration: %s\n", subtitle.FormatTimestamp(result.Duration, subtitle.FormatVTT))

	return nil
}

// the translations endpoint only targets English
func isValidOpenAITranscriptLanguage(lang string) bool {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "", "native", "english", "en":
		return true
	default:
		return false
	}
}

// co-located caption path the loader resolves: movie.mkv -> movie.en.srt,
// or movie.srt when no language is known
func captionPath(mediaPath, language string, format subtitle.Format) string {
	base := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath))
	if language != "" {
		base += "." + language
	}
	return base + subtitle.ExtensionForFormat(format)
}
