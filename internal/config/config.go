// Package config handles cuetrack configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/mgpai22/cuetrack/internal/loader"
)

// DefaultSearchPaths returns the config file search order after an
// explicit --config path: ./cuetrack.yaml, then
// ~/.config/cuetrack/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"cuetrack.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "cuetrack", "config.yaml"))
	}

	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must
// exist. Otherwise the first existing DefaultSearchPaths entry is
// returned, or "" when there is none.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", nil
}

type Config struct {
	LogLevel  string         `yaml:"log_level"`
	Cache     CacheConfig    `yaml:"cache"`
	Subtitle  SubtitleConfig `yaml:"subtitle"`
	OpenAI    ProviderConfig `yaml:"openai"`
	Gemini    ProviderConfig `yaml:"gemini"`
	Anthropic ProviderConfig `yaml:"anthropic"`
}

type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	// SQLite file for the persistent tier; empty disables it
	DBPath string `yaml:"db_path"`
}

type SubtitleConfig struct {
	Extensions      []string `yaml:"extensions"`
	DefaultLanguage string   `yaml:"default_language"`
}

// empty models fall back to each provider's default
type ProviderConfig struct {
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
	TranscribeModel string `yaml:"transcribe_model"`
}

// Load reads a YAML config, expanding ${VAR} references from the
// environment. Unset fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	dbPath := ""
	if dir, err := os.UserCacheDir(); err == nil {
		dbPath = filepath.Join(dir, "cuetrack", "tracks.db")
	}

	opts := loader.DefaultOptions()
	return &Config{
		LogLevel: "info",
		Cache: CacheConfig{
			TTL:        opts.TTL,
			MaxEntries: opts.MaxEntries,
			DBPath:     dbPath,
		},
		Subtitle: SubtitleConfig{
			Extensions: append([]string(nil), opts.Extensions...),
		},
		OpenAI:    ProviderConfig{APIKey: os.Getenv("OPENAI_API_KEY")},
		Gemini:    ProviderConfig{APIKey: os.Getenv("GEMINI_API_KEY")},
		Anthropic: ProviderConfig{APIKey: os.Getenv("ANTHROPIC_API_KEY")},
	}
}

func (c *Config) Validate() error {
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	for _, ext := range c.Subtitle.Extensions {
		if len(ext) < 2 || ext[0] != '.' {
			return fmt.Errorf("subtitle.extensions: %q must start with a dot", ext)
		}
	}
	if c.Subtitle.DefaultLanguage != "" {
		if _, err := language.Parse(c.Subtitle.DefaultLanguage); err != nil {
			return fmt.Errorf("subtitle.default_language: %w", err)
		}
	}
	return nil
}

// LoaderOptions maps the cache and subtitle sections onto loader
// options.
func (c *Config) LoaderOptions() loader.Options {
	return loader.Options{
		TTL:             c.Cache.TTL,
		MaxEntries:      c.Cache.MaxEntries,
		Extensions:      c.Subtitle.Extensions,
		DefaultLanguage: c.Subtitle.DefaultLanguage,
	}
}
