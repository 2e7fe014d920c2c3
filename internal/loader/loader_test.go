package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mgpai22/cuetrack/internal/subtitle"
	"github.com/mgpai22/cuetrack/internal/trackstore"
)

var _ Store = (*trackstore.Store)(nil)

const sampleSRT = "1\n00:00:01,000 --> 00:00:02,500\nHello\n\n2\n00:00:03,000 --> 00:00:04,000\nWorld\n"

// in-memory FileReader; reads block on gate when it is set
type fakeFiles struct {
	mu      sync.Mutex
	files   map[string]string
	failing map[string]error
	gate    chan struct{}
	reads   atomic.Int64
	started chan struct{}
	once    sync.Once
}

func newFakeFiles(files map[string]string) *fakeFiles {
	return &fakeFiles{
		files:   files,
		failing: map[string]error{},
		started: make(chan struct{}),
	}
}

func (f *fakeFiles) Exists(ctx context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.failing[path]; ok {
		return true, nil
	}
	_, ok := f.files[path]
	return ok, nil
}

func (f *fakeFiles) ReadFile(ctx context.Context, path string) ([]byte, error) {
	f.reads.Add(1)
	f.once.Do(func() { close(f.started) })
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failing[path]; ok {
		return nil, err
	}
	content, ok := f.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(content), nil
}

func (f *fakeFiles) set(path, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = content
}

func TestLoadReadsColocatedFile(t *testing.T) {
	files := newFakeFiles(map[string]string{"/media/movie.srt": sampleSRT})
	l := New(DefaultOptions(), files)

	track, err := l.Load(context.Background(), "/media/movie.mp4", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if track.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", track.Len())
	}
	if track.Format() != subtitle.FormatSRT {
		t.Errorf("Format() = %q, want %q", track.Format(), subtitle.FormatSRT)
	}
	if track.SourceID() != "/media/movie.mp4" {
		t.Errorf("SourceID() = %q", track.SourceID())
	}

	cue, ok := track.ActiveCueAt(1.5)
	if !ok || cue.Text != "Hello" {
		t.Errorf("ActiveCueAt(1.5) = %+v, %v", cue, ok)
	}
}

func TestLoadCachesWithinTTL(t *testing.T) {
	files := newFakeFiles(map[string]string{"/media/movie.srt": sampleSRT})
	l := New(DefaultOptions(), files)
	ctx := context.Background()

	first, err := l.Load(ctx, "/media/movie.mp4", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	second, err := l.Load(ctx, "/media/movie.mp4", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if first != second {
		t.Error("second Load returned a different track")
	}
	if got := files.reads.Load(); got != 1 {
		t.Errorf("reads = %d, want 1", got)
	}

	stats := l.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Loads != 1 || stats.Entries != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestConcurrentLoadsShareOneRead(t *testing.T) {
	files := newFakeFiles(map[string]string{"/media/movie.srt": sampleSRT})
	files.gate = make(chan struct{})
	l := New(DefaultOptions(), files)

	const callers = 16
	results := make([]*subtitle.Track, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = l.Load(context.Background(), "/media/movie.mp4", "en")
		}()
	}

	<-files.started
	// give the remaining callers time to join the in-flight load
	time.Sleep(20 * time.Millisecond)
	close(files.gate)
	wg.Wait()

	for i := range callers {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Fatalf("caller %d got a different track", i)
		}
	}
	if got := files.reads.Load(); got != 1 {
		t.Errorf("reads = %d, want 1", got)
	}
	stats := l.Stats()
	if stats.Parses != 1 {
		t.Errorf("parses = %d, want 1", stats.Parses)
	}
	if stats.Loads != 1 {
		t.Errorf("loads = %d, want 1", stats.Loads)
	}
	// every caller but the one that read the file either joined the
	// flight or hit the cache it filled
	if stats.Coalesced+stats.Hits != callers-1 {
		t.Errorf("coalesced = %d, hits = %d, want %d together", stats.Coalesced, stats.Hits, callers-1)
	}
	if stats.Coalesced >= callers {
		t.Errorf("coalesced = %d counts the leading caller", stats.Coalesced)
	}
}

func TestLoadRereadsAfterTTL(t *testing.T) {
	files := newFakeFiles(map[string]string{"/media/movie.srt": sampleSRT})
	opts := DefaultOptions()
	opts.TTL = 50 * time.Millisecond
	l := New(opts, files)
	ctx := context.Background()

	first, err := l.Load(ctx, "/media/movie.mp4", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	files.set("/media/movie.srt", "1\n00:00:05,000 --> 00:00:06,000\nChanged\n")
	time.Sleep(120 * time.Millisecond)

	second, err := l.Load(ctx, "/media/movie.mp4", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := files.reads.Load(); got != 2 {
		t.Errorf("reads = %d, want 2", got)
	}
	if first.ID() == second.ID() {
		t.Error("expired entry was served again")
	}
	if cue, ok := second.ActiveCueAt(5.5); !ok || cue.Text != "Changed" {
		t.Errorf("ActiveCueAt(5.5) = %+v, %v", cue, ok)
	}
}

func TestLoadCandidateOrder(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		language string
		want     string
	}{
		{
			name: "tagged before plain",
			files: map[string]string{
				"/m/movie.en.vtt": "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\ntagged\n",
				"/m/movie.srt":    "1\n00:00:01,000 --> 00:00:02,000\nplain\n",
			},
			language: "en",
			want:     "tagged",
		},
		{
			name: "extension priority",
			files: map[string]string{
				"/m/movie.srt": "1\n00:00:01,000 --> 00:00:02,000\nsrt\n",
				"/m/movie.vtt": "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nvtt\n",
			},
			want: "srt",
		},
		{
			name: "plain when tag missing",
			files: map[string]string{
				"/m/movie.ass": "[Events]\nDialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,ass\n",
			},
			language: "fr",
			want:     "ass",
		},
		{
			name: "language normalized",
			files: map[string]string{
				"/m/movie.pt-BR.srt": "1\n00:00:01,000 --> 00:00:02,000\nbr\n",
			},
			language: "PT-br",
			want:     "br",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(DefaultOptions(), newFakeFiles(tt.files))
			track, err := l.Load(context.Background(), "/m/movie.mkv", tt.language)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			cue, ok := track.ActiveCueAt(1.5)
			if !ok || cue.Text != tt.want {
				t.Errorf("ActiveCueAt(1.5) = %+v, %v; want %q", cue, ok, tt.want)
			}
		})
	}
}

func TestLoadSourceIsCaptionFile(t *testing.T) {
	files := newFakeFiles(map[string]string{"/m/talk.vtt": "WEBVTT\n\n00:01.000 --> 00:02.000\nhi\n"})
	l := New(DefaultOptions(), files)

	track, err := l.Load(context.Background(), "/m/talk.vtt", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if track.Len() != 1 || track.Format() != subtitle.FormatVTT {
		t.Errorf("got %d cues, format %q", track.Len(), track.Format())
	}
}

func TestLoadRemoteSourceUsesExternalTrack(t *testing.T) {
	files := newFakeFiles(map[string]string{})
	l := New(DefaultOptions(), files)

	external := []subtitle.Cue{
		{Start: 3, End: 4, Text: "<b>second</b>"},
		{Start: 1, End: 2, Text: "first"},
		{Start: 5, End: 6, Text: "   "},
	}
	track, err := l.Load(context.Background(), "https://example.com/v.mp4", "en", WithExternalTrack(external))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if track.Format() != subtitle.FormatExternal {
		t.Errorf("Format() = %q", track.Format())
	}
	cues := track.Cues()
	if len(cues) != 2 || cues[0].Text != "first" || cues[1].Text != "second" {
		t.Errorf("Cues() = %+v", cues)
	}
	if got := files.reads.Load(); got != 0 {
		t.Errorf("reads = %d, want 0", got)
	}
}

func TestLoadFileWinsOverExternal(t *testing.T) {
	files := newFakeFiles(map[string]string{"/m/a.srt": sampleSRT})
	l := New(DefaultOptions(), files)

	track, err := l.Load(context.Background(), "/m/a.mp4", "",
		WithExternalTrack([]subtitle.Cue{{Start: 0, End: 1, Text: "external"}}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if track.Format() != subtitle.FormatSRT {
		t.Errorf("Format() = %q, want srt", track.Format())
	}
}

func TestLoadUnreadableFallsThrough(t *testing.T) {
	files := newFakeFiles(map[string]string{"/m/a.vtt": "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nvtt\n"})
	files.failing["/m/a.srt"] = errors.New("permission denied")
	l := New(DefaultOptions(), files)

	track, err := l.Load(context.Background(), "/m/a.mp4", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cue, ok := track.ActiveCueAt(1.5); !ok || cue.Text != "vtt" {
		t.Errorf("ActiveCueAt(1.5) = %+v, %v", cue, ok)
	}
}

func TestLoadNothingFoundCachesEmptyTrack(t *testing.T) {
	files := newFakeFiles(map[string]string{"/m/broken.srt": "not a subtitle"})
	l := New(DefaultOptions(), files)
	ctx := context.Background()

	for range 3 {
		track, err := l.Load(ctx, "/m/broken.mkv", "")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !track.IsEmpty() {
			t.Fatalf("Len() = %d, want 0", track.Len())
		}
		if _, ok := track.ActiveCueAt(1); ok {
			t.Fatal("empty track reported an active cue")
		}
	}

	if got := files.reads.Load(); got != 1 {
		t.Errorf("reads = %d, want 1", got)
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	files := newFakeFiles(map[string]string{"/m/a.srt": sampleSRT})
	l := New(DefaultOptions(), files)
	ctx := context.Background()

	if _, err := l.Load(ctx, "/m/a.mp4", ""); err != nil {
		t.Fatal(err)
	}
	l.Invalidate(ctx, "/m/a.mp4", "")
	if _, err := l.Load(ctx, "/m/a.mp4", ""); err != nil {
		t.Fatal(err)
	}
	if got := files.reads.Load(); got != 2 {
		t.Errorf("reads = %d, want 2", got)
	}

	l.Clear()
	if got := l.Stats().Entries; got != 0 {
		t.Errorf("Entries after Clear = %d, want 0", got)
	}
}

func TestMaxEntriesEvictsOldest(t *testing.T) {
	files := newFakeFiles(map[string]string{})
	opts := DefaultOptions()
	opts.MaxEntries = 2
	l := New(opts, files)
	ctx := context.Background()

	for _, id := range []string{"/m/a.mp4", "/m/b.mp4", "/m/c.mp4"} {
		if _, err := l.Load(ctx, id, ""); err != nil {
			t.Fatal(err)
		}
	}
	if got := l.Stats().Entries; got != 2 {
		t.Errorf("Entries = %d, want 2", got)
	}
}

func TestLoadCanceledContext(t *testing.T) {
	files := newFakeFiles(map[string]string{"/m/a.srt": sampleSRT})
	files.gate = make(chan struct{})
	l := New(DefaultOptions(), files)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := l.Load(ctx, "/m/a.mp4", "")
		done <- err
	}()

	<-files.started
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Load() error = %v, want context.Canceled", err)
	}

	// the shared resolution still completes and is cached
	close(files.gate)
	track, err := l.Load(context.Background(), "/m/a.mp4", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if track.Len() != 2 {
		t.Errorf("Len() = %d, want 2", track.Len())
	}
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "clip.srt"), []byte(sampleSRT), 0644); err != nil {
		t.Fatal(err)
	}

	l := New(DefaultOptions(), nil)
	track, err := l.Load(context.Background(), filepath.Join(dir, "clip.mp4"), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if track.Len() != 2 {
		t.Errorf("Len() = %d, want 2", track.Len())
	}
}

func TestCandidatePaths(t *testing.T) {
	got := candidatePaths(newCacheKey("/m/movie.srt", "en"), []string{".srt", ".vtt"})
	want := []string{"/m/movie.srt", "/m/movie.en.srt", "/m/movie.en.vtt", "/m/movie.vtt"}
	if len(got) != len(want) {
		t.Fatalf("candidatePaths() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidatePaths()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if remote := candidatePaths(newCacheKey("HTTPS://host/v.mp4", ""), DefaultExtensions); remote != nil {
		t.Errorf("remote candidates = %v, want none", remote)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := map[string]string{
		"":        "",
		" EN ":    "en",
		"pt-br":   "pt-BR",
		"zh-hant": "zh-Hant",
		"!!":      "!!",
	}
	for in, want := range tests {
		if got := NormalizeLanguage(in); got != want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadPromotesPersistedTrack(t *testing.T) {
	store, err := trackstore.New(filepath.Join(t.TempDir(), "tracks.db"))
	if err != nil {
		t.Fatalf("trackstore.New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	files := newFakeFiles(map[string]string{"/m/a.srt": sampleSRT})
	first := New(DefaultOptions(), files, WithStore(store))
	if _, err := first.Load(ctx, "/m/a.mp4", "en"); err != nil {
		t.Fatal(err)
	}

	// a fresh loader over the same store, as after a restart
	second := New(DefaultOptions(), files, WithStore(store))
	track, err := second.Load(ctx, "/m/a.mp4", "en")
	if err != nil {
		t.Fatal(err)
	}
	if track.Len() != 2 || track.Format() != subtitle.FormatSRT {
		t.Errorf("got %d cues, format %q", track.Len(), track.Format())
	}
	if got := files.reads.Load(); got != 1 {
		t.Errorf("reads = %d, want 1", got)
	}
	if got := second.Stats().Reads; got != 0 {
		t.Errorf("second loader reads = %d, want 0", got)
	}

	second.Invalidate(ctx, "/m/a.mp4", "en")
	if _, ok, _ := store.Get(ctx, "/m/a.mp4", "en", 0); ok {
		t.Error("Invalidate left the persisted track in place")
	}
}
