package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/cuetrack/internal/config"
	"github.com/mgpai22/cuetrack/internal/loader"
	"github.com/mgpai22/cuetrack/internal/logging"
	"github.com/mgpai22/cuetrack/internal/trackstore"
)

var (
	verbose    bool
	configPath string
	noCache    bool

	cfg    *config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cuetrack",
	Short: "Subtitle timeline engine",
	Long: `cuetrack loads SRT, WebVTT and ASS/SSA caption files for media,
answers "which cue is on screen at time t", and produces new caption
tracks by transcribing or translating.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = loadConfig(configPath); err != nil {
			return err
		}

		if verbose {
			logger = logging.NewLogger(true)
			return nil
		}
		if logger, err = logging.NewLoggerWithLevel(cfg.LogLevel); err != nil {
			return fmt.Errorf("config log_level: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVar(&configPath, "config", "", "Config file (default ./cuetrack.yaml or ~/.config/cuetrack/config.yaml)")
	rootCmd.PersistentFlags().
		BoolVar(&noCache, "no-cache", false, "Do not read or write the persistent track cache")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path")
	rootCmd.PersistentFlags().
		StringP("language", "l", "", "Language code (e.g., en, es, fr)")
}

func loadConfig(explicit string) (*config.Config, error) {
	path, err := config.FindConfig(explicit)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return config.Default(), nil
	}
	loaded, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return loaded, nil
}

// loader wired to the configured caches; the returned func releases the
// persistent store
func newLoader() (*loader.Loader, func(), error) {
	opts := []loader.Option{loader.WithLogger(logger)}
	closeFn := func() {}

	if !noCache && cfg.Cache.DBPath != "" {
		store, err := trackstore.New(cfg.Cache.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open track cache: %w", err)
		}
		opts = append(opts, loader.WithStore(store))
		closeFn = func() { _ = store.Close() }
	}

	return loader.New(cfg.LoaderOptions(), loader.OSFiles{}, opts...), closeFn, nil
}

// provider settings from the config; unknown names get an empty value
func providerConfig(provider string) config.ProviderConfig {
	switch provider {
	case "openai":
		return cfg.OpenAI
	case "gemini":
		return cfg.Gemini
	case "anthropic":
		return cfg.Anthropic
	default:
		return config.ProviderConfig{}
	}
}

// --api-key wins over the config file, which already folds in the
// provider's environment variable
func resolveAPIKey(flagValue, provider string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if key := providerConfig(provider).APIKey; key != "" {
		return key, nil
	}
	return "", fmt.Errorf(
		"%s API key is required: use --api-key, set %s_API_KEY, or add %s.api_key to the config file",
		provider, strings.ToUpper(provider), provider,
	)
}

// forgets persisted tracks for language whose source shares base, in
// both the given and the absolute path form. Run after a command wrote a
// caption file the loader would now find, so a cached "no captions"
// result does not hide it.
func invalidateCachedBase(base, language string) {
	if language == "" {
		language = cfg.Subtitle.DefaultLanguage
	}
	lang := loader.NormalizeLanguage(language)
	bases := []string{base}
	if abs, err := filepath.Abs(base); err == nil && abs != base {
		bases = append(bases, abs)
	}
	withPersistentStore(func(ctx context.Context, store *trackstore.Store) error {
		for _, b := range bases {
			removed, err := store.DeleteByBase(ctx, b, lang)
			if err != nil {
				return err
			}
			if removed > 0 {
				logger.Debugw("Dropped stale cached tracks", "base", b, "language", lang, "removed", removed)
			}
		}
		return nil
	})
}

// runs fn against the persistent tier unless it is disabled; failures
// are logged, the command's own result stands
func withPersistentStore(fn func(context.Context, *trackstore.Store) error) {
	if noCache || cfg.Cache.DBPath == "" {
		return
	}
	store, err := trackstore.New(cfg.Cache.DBPath)
	if err != nil {
		logger.Warnw("Could not open track cache", "error", err)
		return
	}
	defer store.Close()

	if err := fn(context.Background(), store); err != nil {
		logger.Warnw("Could not update track cache", "error", err)
	}
}
