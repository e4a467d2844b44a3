// Package memory is the SQLite-backed translation memory. Sentences already
// translated in an earlier batch, an earlier book, or an earlier run are
// served from here instead of going back to the LLM endpoint.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"
)

// Store wraps the translation-memory database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the memory database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open translation memory: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate translation memory: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS translation_memory (
		id TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		target_text TEXT NOT NULL,
		book TEXT,
		usage_count INTEGER DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_text)
	);

	CREATE INDEX IF NOT EXISTS idx_memory_source ON translation_memory(source_text);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// normalize is applied to every source sentence used as a lookup key, so that
// NFC/NFD variants of the same text hit the same row.
func normalize(text string) string {
	return norm.NFC.String(text)
}

// Lookup returns the remembered translation for a source sentence.
func (s *Store) Lookup(ctx context.Context, sourceText string) (string, bool, error) {
	var target string
	err := s.db.QueryRowContext(ctx,
		`SELECT target_text FROM translation_memory WHERE source_text = ?`,
		normalize(sourceText)).Scan(&target)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE translation_memory SET usage_count = usage_count + 1, last_used = ? WHERE source_text = ?`,
		time.Now(), normalize(sourceText))
	return target, true, err
}

// Save remembers a translated sentence. An existing entry for the same source
// text is replaced; book records which book first produced the translation.
func (s *Store) Save(ctx context.Context, sourceText, targetText, bookTitle string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO translation_memory (id, source_text, target_text, book, usage_count, created_at, last_used)
		 VALUES (?, ?, ?, ?, 1, ?, ?)
		 ON CONFLICT(source_text) DO UPDATE SET target_text = excluded.target_text, book = excluded.book`,
		uuid.New().String(), normalize(sourceText), targetText, bookTitle, time.Now(), time.Now())
	return err
}

// Stats summarizes memory usage.
type Stats struct {
	Entries    int
	TotalUsage int
	Books      int
}

// Stats returns entry counts and aggregate usage.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(usage_count), 0), COUNT(DISTINCT book) FROM translation_memory`,
	).Scan(&st.Entries, &st.TotalUsage, &st.Books)
	return st, err
}

// Clear removes every entry and returns the number deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_memory`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
