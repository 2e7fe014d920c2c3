// Package trackstore persists parsed caption tracks in SQLite so a
// restarted process can skip re-reading and re-parsing caption files.
// Each (source, language) pair holds at most one track.
package trackstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mgpai22/cuetrack/internal/subtitle"
)

// Store is safe for concurrent use (SQLite serializes writes).
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens or creates the track database at dbPath.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tracks (
		source_id  TEXT NOT NULL,
		language   TEXT NOT NULL,
		format     TEXT NOT NULL,
		cues       TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (source_id, language)
	);
	CREATE INDEX IF NOT EXISTS idx_tracks_created_at ON tracks (created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the stored track for a source and language. Rows older
// than maxAge are treated as missing; a zero maxAge accepts any age.
func (s *Store) Get(
	ctx context.Context,
	sourceID, language string,
	maxAge time.Duration,
) (*subtitle.Track, bool, error) {
	var (
		format    string
		payload   string
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT format, cues, created_at FROM tracks WHERE source_id = ? AND language = ?`,
		sourceID, language,
	).Scan(&format, &payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", sourceID, language, err)
	}

	if maxAge > 0 && s.now().Sub(time.UnixMilli(createdAt)) > maxAge {
		return nil, false, nil
	}

	var cues []subtitle.Cue
	if err := json.Unmarshal([]byte(payload), &cues); err != nil {
		return nil, false, fmt.Errorf("decode %s/%s: %w", sourceID, language, err)
	}

	return subtitle.NewTrack(sourceID, language, subtitle.Format(format), cues), true, nil
}

// Put upserts a track, refreshing its creation time.
func (s *Store) Put(ctx context.Context, track *subtitle.Track) error {
	if track == nil {
		return nil
	}

	payload, err := json.Marshal(track.Cues())
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", track.SourceID(), track.Language(), err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tracks (source_id, language, format, cues, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (source_id, language) DO UPDATE
		 SET format = excluded.format, cues = excluded.cues, created_at = excluded.created_at`,
		track.SourceID(), track.Language(), string(track.Format()), string(payload), s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", track.SourceID(), track.Language(), err)
	}
	return nil
}

// Delete removes one track. Missing rows are not an error.
func (s *Store) Delete(ctx context.Context, sourceID, language string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM tracks WHERE source_id = ? AND language = ?`,
		sourceID, language,
	)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", sourceID, language, err)
	}
	return nil
}

// DeleteByBase removes the tracks for language whose source is base
// itself or base followed by an extension ("movie" matches "movie.mkv"
// and "movie.es.srt"). It returns how many were removed.
func (s *Store) DeleteByBase(ctx context.Context, base, language string) (int64, error) {
	prefix := base + "."
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tracks
		 WHERE language = ?
		   AND (source_id = ? OR substr(source_id, 1, length(?)) = ?)`,
		language, base, prefix, prefix,
	)
	if err != nil {
		return 0, fmt.Errorf("delete %s.*/%s: %w", base, language, err)
	}
	return res.RowsAffected()
}

// Prune removes tracks older than maxAge and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM tracks WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tracks`)
	if err != nil {
		return 0, fmt.Errorf("clear: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}
