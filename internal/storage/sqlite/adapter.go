// Package sqlite implements the storage contract on a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"synonyms-api/internal/storage"
)

type Adapter struct {
	db *sql.DB
}

// New opens the database, verifies connectivity and applies the schema.
func New(dbPath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	a := &Adapter{db: db}
	if err := a.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return a, nil
}

func (a *Adapter) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS words (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			word TEXT NOT NULL,
			synonyms TEXT NOT NULL DEFAULT '[]',
			antonyms TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS api_keys (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			api_key TEXT NOT NULL UNIQUE,
			description TEXT DEFAULT '',
			is_active BOOLEAN DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_words_word ON words(word)`,
		`CREATE INDEX IF NOT EXISTS idx_api_keys_active ON api_keys(is_active)`,
	}

	for _, query := range queries {
		if _, err := a.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration query: %w", err)
		}
	}

	return nil
}

func (a *Adapter) FindWord(ctx context.Context, term string) (*storage.Word, error) {
	row := a.db.QueryRowContext(ctx,
		`SELECT id, word, synonyms, antonyms FROM words WHERE LOWER(TRIM(word)) = ? LIMIT 1`,
		term)
	return scanWord(row)
}

func (a *Adapter) FindBySynonym(ctx context.Context, term string) (*storage.Word, error) {
	row := a.db.QueryRowContext(ctx,
		`SELECT id, word, synonyms, antonyms FROM words
		 WHERE EXISTS (SELECT 1 FROM json_each(LOWER(synonyms)) WHERE json_each.value = ?)
		 LIMIT 1`,
		term)
	return scanWord(row)
}

func (a *Adapter) CountWords(ctx context.Context) (int64, error) {
	var total int64
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM words`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count words: %w", err)
	}
	return total, nil
}

func (a *Adapter) RandomWord(ctx context.Context) (*storage.Word, error) {
	total, err := a.CountWords(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, nil
	}

	offset := rand.Int63n(total)
	row := a.db.QueryRowContext(ctx,
		`SELECT id, word, synonyms, antonyms FROM words LIMIT 1 OFFSET ?`,
		offset)
	return scanWord(row)
}

func (a *Adapter) GetAPIKey(ctx context.Context, secret string) (*storage.APIKey, error) {
	var key storage.APIKey
	err := a.db.QueryRowContext(ctx,
		`SELECT id, api_key, description, is_active FROM api_keys
		 WHERE api_key = ? AND is_active = 1 LIMIT 1`,
		secret).Scan(&key.ID, &key.Key, &key.Description, &key.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}
	return &key, nil
}

func (a *Adapter) Close() error {
	return a.db.Close()
}

func scanWord(row *sql.Row) (*storage.Word, error) {
	var (
		word               storage.Word
		synonyms, antonyms string
	)
	err := row.Scan(&word.ID, &word.Word, &synonyms, &antonyms)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan word row: %w", err)
	}

	word.Word = strings.ToLower(strings.TrimSpace(word.Word))
	word.Synonyms = decodeList(synonyms)
	word.Antonyms = decodeList(antonyms)
	return &word, nil
}

func decodeList(raw string) []string {
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return []string{}
	}
	return storage.NormalizeList(values)
}

var _ storage.Store = (*Adapter)(nil)
