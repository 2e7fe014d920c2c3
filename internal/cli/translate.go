package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/mgpai22/cuetrack/internal/loader"
	"github.com/mgpai22/cuetrack/internal/subtitle"
	"github.com/mgpai22/cuetrack/internal/translate"
)

var translateCmd = &cobra.Command{
	Use:   "translate [subtitle_file]",
	Short: "Translate a caption file to another language using AI",
	Long: `Translate an existing caption file to another language.

Supports SRT, VTT, and ASS/SSA input. Cue timings are kept; only the text
is translated. The result is written as <base>.<lang><ext> so the loader
resolves it when that language is requested.

The --overlay flag creates bilingual captions with the translated text
first, followed by the original text on the next line.

Examples:
  cuetrack translate movie.srt -t ja
  cuetrack translate movie.en.ass -t es --overlay
  cuetrack translate movie.vtt -l en -t de --provider anthropic -o movie.de.vtt`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().
		StringP("target-language", "t", "", "Target language for translation (required)")
	translateCmd.Flags().
		Bool("overlay", false, "Overlay translated text with original (bilingual captions)")
	translateCmd.Flags().
		StringP("api-key", "k", "", "API key (or set GEMINI_API_KEY/OPENAI_API_KEY/ANTHROPIC_API_KEY)")
	translateCmd.Flags().
		String("model", "", "Model to use for translation (provider-specific, uses sensible defaults)")
	translateCmd.Flags().
		String("provider", "gemini", "Translation provider (gemini, openai, anthropic)")
	translateCmd.Flags().
		Int("concurrency", translate.DefaultConcurrency, "Number of parallel translation requests")
	translateCmd.Flags().
		Int("batch-size", translate.DefaultBatchSize, "Number of cues per API request")

	_ = translateCmd.MarkFlagRequired("target-language")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	subtitlePath := args[0]
	ctx := context.Background()

	targetLang, _ := cmd.Flags().GetString("target-language")
	overlay, _ := cmd.Flags().GetBool("overlay")
	apiKey, _ := cmd.Flags().GetString("api-key")
	model, _ := cmd.Flags().GetString("model")
	providerStr, _ := cmd.Flags().GetString("provider")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	outputPath, _ := cmd.Flags().GetString("output")
	inputLang, _ := cmd.Flags().GetString("language")

	if _, err := os.Stat(subtitlePath); os.IsNotExist(err) {
		return fmt.Errorf("subtitle file not found: %s", subtitlePath)
	}

	targetTag := loader.NormalizeLanguage(targetLang)
	if targetTag == "" {
		return fmt.Errorf("target language is required")
	}
	inputTag := loader.NormalizeLanguage(inputLang)
	if inputTag != "" && inputTag == targetTag {
		return fmt.Errorf(
			"input language %q and target language %q cannot be the same",
			inputLang,
			targetLang,
		)
	}

	if concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be positive, got %d", batchSize)
	}

	provider := translate.Provider(strings.ToLower(providerStr))
	apiKey, err := resolveAPIKey(apiKey, string(provider))
	if err != nil {
		return err
	}
	if model == "" {
		model = providerConfig(string(provider)).Model
	}

	if outputPath == "" {
		outputPath = translationPath(subtitlePath, inputTag, targetTag, overlay)
	}

	logger.Infow("Starting subtitle translation",
		"input", subtitlePath,
		"output", outputPath,
		"target_language", targetTag,
		"input_language", inputTag,
		"provider", provider,
		"overlay", overlay,
	)

	source, err := subtitle.Open(subtitlePath, inputTag)
	if err != nil {
		return fmt.Errorf("failed to parse subtitle file: %w", err)
	}
	if source.IsEmpty() {
		return fmt.Errorf("subtitle file contains no cues")
	}

	logger.Infow("Parsed subtitle file",
		"cues", source.Len(),
		"format", source.Format(),
	)

	translator, err := translate.Factory(ctx, provider, apiKey, translate.Options{
		InputLanguage:  inputLang,
		TargetLanguage: targetLang,
		Model:          model,
	})
	if err != nil {
		return fmt.Errorf("failed to create translator: %w", err)
	}

	translated, err := translate.TranslateTrack(ctx, translator, source, targetTag, translate.BatchOptions{
		BatchSize:   batchSize,
		Concurrency: concurrency,
	})
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}

	if overlay {
		translated = overlayTrack(translated, source)
	}

	writer, err := subtitle.NewWriter(source.Format())
	if err != nil {
		return fmt.Errorf("failed to create subtitle writer: %w", err)
	}
	if err := writer.Write(translated, outputPath); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if !overlay {
		invalidateCachedBase(captionBase(outputPath), targetTag)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Subtitles translated successfully: %s\n", absOutput)
	fmt.Printf("  Cues: %d\n", translated.Len())
	fmt.Printf("  Target language: %s\n", targetTag)
	if overlay {
		fmt.Printf("  Mode: bilingual overlay\n")
	}

	return nil
}

// translated text above the original, cue for cue
func overlayTrack(translated, original *subtitle.Track) *subtitle.Track {
	orig := original.Cues()
	cues := translated.Cues()
	for i := range cues {
		if i < len(orig) && orig[i].Text != cues[i].Text {
			cues[i].Text += "\n" + orig[i].Text
		}
	}
	return subtitle.NewTrack(translated.SourceID(), translated.Language(), translated.Format(), cues)
}

// <base>.<target><ext>; a trailing input-language tag on the base is
// replaced rather than stacked (movie.en.srt -> movie.es.srt)
func translationPath(inputPath, inputLang, targetLang string, overlay bool) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)

	if tagExt := filepath.Ext(base); tagExt != "" {
		tag := loader.NormalizeLanguage(tagExt[1:])
		if inputLang != "" && tag == inputLang {
			base = strings.TrimSuffix(base, tagExt)
		}
	}

	if overlay {
		return fmt.Sprintf("%s.%s.overlay%s", base, targetLang, ext)
	}
	return fmt.Sprintf("%s.%s%s", base, targetLang, ext)
}

// media base name a caption path belongs to: movie.es.srt -> movie
func captionBase(path string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for {
		tagExt := filepath.Ext(base)
		if tagExt == "" || !isLanguageTag(tagExt[1:]) {
			return base
		}
		base = strings.TrimSuffix(base, tagExt)
	}
}

func isLanguageTag(s string) bool {
	_, err := language.Parse(s)
	return err == nil
}
