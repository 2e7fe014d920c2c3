// Package loader resolves caption tracks for media sources and keeps
// them in a TTL and size bounded cache.
//
// Resolution never fails for lack of captions: unreadable files and
// unsupported formats are logged and degrade to an empty track, which is
// cached like any other result.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/mgpai22/cuetrack/internal/logging"
	"github.com/mgpai22/cuetrack/internal/subtitle"
)

// a caption file exists but could not be read
var ErrSourceUnreadable = errors.New("subtitle source unreadable")

var errNoSource = errors.New("no subtitle source")

// checked in this order for every media base name
var DefaultExtensions = []string{".srt", ".vtt", ".ass", ".ssa"}

// second-tier cache that survives restarts
type Store interface {
	Get(ctx context.Context, sourceID, language string, maxAge time.Duration) (*subtitle.Track, bool, error)
	Put(ctx context.Context, track *subtitle.Track) error
	Delete(ctx context.Context, sourceID, language string) error
}

type Options struct {
	// entries older than TTL are rebuilt; zero disables expiry
	TTL time.Duration
	// LRU bound on cached tracks; zero means unbounded
	MaxEntries int
	// caption extensions in priority order
	Extensions []string
	// used when Load is called without a language
	DefaultLanguage string
}

func DefaultOptions() Options {
	return Options{
		TTL:        30 * time.Minute,
		MaxEntries: 64,
		Extensions: DefaultExtensions,
	}
}

type Option func(*Loader)

func WithLogger(logger *logging.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithStore(store Store) Option {
	return func(l *Loader) {
		l.store = store
	}
}

type loadOptions struct {
	external []subtitle.Cue
	hasExt   bool
}

type LoadOption func(*loadOptions)

// cues produced outside the loader (transcription, translation), used
// when no co-located caption file exists
func WithExternalTrack(cues []subtitle.Cue) LoadOption {
	return func(o *loadOptions) {
		o.external = cues
		o.hasExt = true
	}
}

// counters since construction
type Stats struct {
	Hits      int64
	Misses    int64
	Loads     int64
	Reads     int64
	Parses    int64
	// callers that joined another caller's in-flight load
	Coalesced int64
	Entries   int
}

type Loader struct {
	opts   Options
	files  FileReader
	store  Store
	logger *logging.Logger

	cache *expirable.LRU[cacheKey, *subtitle.Track]
	group singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	loads     atomic.Int64
	reads     atomic.Int64
	parses    atomic.Int64
	coalesced atomic.Int64
}

func New(opts Options, files FileReader, options ...Option) *Loader {
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.MaxEntries < 0 {
		opts.MaxEntries = 0
	}
	if files == nil {
		files = OSFiles{}
	}
	opts.DefaultLanguage = NormalizeLanguage(opts.DefaultLanguage)

	l := &Loader{
		opts:   opts,
		files:  files,
		logger: logging.Nop(),
	}
	for _, o := range options {
		o(l)
	}

	l.cache = expirable.NewLRU(
		opts.MaxEntries,
		func(key cacheKey, track *subtitle.Track) {
			l.logger.Debugw("Evicted subtitle track",
				"source", key.sourceID,
				"language", key.language,
			)
		},
		opts.TTL,
	)

	return l
}

// Load returns the caption track for a source and language. Concurrent
// calls for the same key share one resolution. The only error is the
// caller's context ending first; the shared resolution keeps running for
// the other callers.
func (l *Loader) Load(
	ctx context.Context,
	sourceID, language string,
	options ...LoadOption,
) (*subtitle.Track, error) {
	if language == "" {
		language = l.opts.DefaultLanguage
	}
	key := newCacheKey(sourceID, language)

	if track, ok := l.cache.Get(key); ok {
		l.hits.Add(1)
		return track, nil
	}
	l.misses.Add(1)

	var lo loadOptions
	for _, o := range options {
		o(&lo)
	}

	resolveCtx := context.WithoutCancel(ctx)
	leader := false
	ch := l.group.DoChan(key.String(), func() (any, error) {
		leader = true
		return l.resolve(resolveCtx, key, lo), nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		// Shared is also set for the caller that ran the flight
		if res.Shared && !leader {
			l.coalesced.Add(1)
		}
		return res.Val.(*subtitle.Track), nil
	}
}

// drops a cached track so the next Load rebuilds it
func (l *Loader) Invalidate(ctx context.Context, sourceID, language string) {
	if language == "" {
		language = l.opts.DefaultLanguage
	}
	key := newCacheKey(sourceID, language)
	l.cache.Remove(key)

	if l.store != nil {
		if err := l.store.Delete(ctx, key.sourceID, key.language); err != nil {
			l.logger.Warnw("Failed to delete persisted track",
				"source", key.sourceID,
				"language", key.language,
				"error", err,
			)
		}
	}
}

// empties the in-memory tier
func (l *Loader) Clear() {
	l.cache.Purge()
}

func (l *Loader) Stats() Stats {
	return Stats{
		Hits:      l.hits.Load(),
		Misses:    l.misses.Load(),
		Loads:     l.loads.Load(),
		Reads:     l.reads.Load(),
		Parses:    l.parses.Load(),
		Coalesced: l.coalesced.Load(),
		Entries:   l.cache.Len(),
	}
}

func (l *Loader) resolve(
	ctx context.Context,
	key cacheKey,
	lo loadOptions,
) *subtitle.Track {
	// a flight that finished just before this one was started
	if track, ok := l.cache.Get(key); ok {
		return track
	}

	l.loads.Add(1)

	if track, ok := l.fromStore(ctx, key); ok {
		l.cache.Add(key, track)
		return track
	}

	track := l.locate(ctx, key, lo)
	l.cache.Add(key, track)

	if l.store != nil {
		if err := l.store.Put(ctx, track); err != nil {
			l.logger.Warnw("Failed to persist subtitle track",
				"source", key.sourceID,
				"language", key.language,
				"error", err,
			)
		}
	}

	return track
}

func (l *Loader) fromStore(ctx context.Context, key cacheKey) (*subtitle.Track, bool) {
	if l.store == nil {
		return nil, false
	}

	track, ok, err := l.store.Get(ctx, key.sourceID, key.language, l.opts.TTL)
	if err != nil {
		l.logger.Warnw("Failed to read persisted track",
			"source", key.sourceID,
			"language", key.language,
			"error", err,
		)
		return nil, false
	}
	if ok {
		l.logger.Debugw("Loaded subtitle track from store",
			"source", key.sourceID,
			"language", key.language,
			"cues", track.Len(),
		)
	}
	return track, ok
}

// co-located file, then the external track, then nothing
func (l *Loader) locate(
	ctx context.Context,
	key cacheKey,
	lo loadOptions,
) *subtitle.Track {
	for _, path := range candidatePaths(key, l.opts.Extensions) {
		track, err := l.readCandidate(ctx, key, path)
		if err == nil {
			l.logger.Infow("Loaded subtitle file",
				"source", key.sourceID,
				"language", key.language,
				"path", path,
				"format", track.Format(),
				"cues", track.Len(),
			)
			return track
		}
		if errors.Is(err, errNoSource) {
			continue
		}
		l.logger.Warnw("Skipping subtitle candidate",
			"source", key.sourceID,
			"path", path,
			"error", err,
		)
	}

	if lo.hasExt {
		track := subtitle.NewTrack(key.sourceID, key.language, subtitle.FormatExternal, normalizeCues(lo.external))
		l.logger.Infow("Using external subtitle track",
			"source", key.sourceID,
			"language", key.language,
			"cues", track.Len(),
		)
		return track
	}

	l.logger.Debugw("No subtitles found",
		"source", key.sourceID,
		"language", key.language,
	)
	return subtitle.EmptyTrack(key.sourceID, key.language)
}

func (l *Loader) readCandidate(
	ctx context.Context,
	key cacheKey,
	path string,
) (*subtitle.Track, error) {
	format, err := subtitle.FormatFromExtension(path)
	if err != nil {
		return nil, err
	}

	exists, err := l.files.Exists(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, path, err)
	}
	if !exists {
		return nil, errNoSource
	}

	l.reads.Add(1)
	data, err := l.files.ReadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, path, err)
	}

	l.parses.Add(1)
	return subtitle.ParseContent(string(data), format, key.sourceID, key.language)
}

func normalizeCues(cues []subtitle.Cue) []subtitle.Cue {
	out := make([]subtitle.Cue, 0, len(cues))
	for _, c := range cues {
		c.Text = subtitle.NormalizeText(c.Text)
		if c.Text != "" {
			out = append(out, c)
		}
	}
	return out
}
