package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"article-reader/internal/domain"
)

// OpenDatabase opens the local SQLite database backing the highlight stores
// and the article cache.
func OpenDatabase(path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	return db, nil
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS highlight_stores (
	article_url TEXT PRIMARY KEY,
	version INTEGER NOT NULL,
	payload TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLiteStoreRepository persists one highlight collection per article as a
// single JSON document. Collections are read and written whole, so a saved
// row is always internally consistent.
type SQLiteStoreRepository struct {
	db     *sql.DB
	logger domain.Logger
}

// NewSQLiteStoreRepository creates a highlight store repository on db.
func NewSQLiteStoreRepository(db *sql.DB, logger domain.Logger) *SQLiteStoreRepository {
	return &SQLiteStoreRepository{db: db, logger: logger}
}

// Init creates the highlight store table if it does not exist.
func (r *SQLiteStoreRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, storeSchema); err != nil {
		return fmt.Errorf("init highlight store schema: %w", err)
	}
	return nil
}

// Load returns the stored collection for articleURL. A missing row yields
// an empty collection, not an error. A row with an unknown schema version
// is refused rather than silently reset.
func (r *SQLiteStoreRepository) Load(ctx context.Context, articleURL string) (*domain.HighlightStore, error) {
	if articleURL == "" {
		return nil, errors.New("article url is required")
	}

	var version int
	var payload string
	row := r.db.QueryRowContext(ctx,
		"SELECT version, payload FROM highlight_stores WHERE article_url = ?", articleURL)
	if err := row.Scan(&version, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewHighlightStore(articleURL), nil
		}
		return nil, fmt.Errorf("load highlight store: %w", err)
	}

	if version != domain.StoreVersion {
		return nil, fmt.Errorf("%w: %d", domain.ErrStoreVersionUnknown, version)
	}

	var store domain.HighlightStore
	if err := json.Unmarshal([]byte(payload), &store); err != nil {
		return nil, fmt.Errorf("decode highlight store: %w", err)
	}
	if store.Highlights == nil {
		store.Highlights = []*domain.Highlight{}
	}
	store.ArticleURL = articleURL
	return &store, nil
}

// Save writes the full collection back, replacing any previous row.
func (r *SQLiteStoreRepository) Save(ctx context.Context, store *domain.HighlightStore) error {
	if store == nil || store.ArticleURL == "" {
		return errors.New("store with article url is required")
	}
	store.Version = domain.StoreVersion

	payload, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("encode highlight store: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO highlight_stores (article_url, version, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(article_url) DO UPDATE SET
			version = excluded.version,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, store.ArticleURL, store.Version, string(payload), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save highlight store: %w", err)
	}
	return nil
}

// Delete removes the stored collection for articleURL. Deleting a missing
// collection is not an error.
func (r *SQLiteStoreRepository) Delete(ctx context.Context, articleURL string) error {
	if articleURL == "" {
		return errors.New("article url is required")
	}
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM highlight_stores WHERE article_url = ?", articleURL); err != nil {
		return fmt.Errorf("delete highlight store: %w", err)
	}
	return nil
}

// ListArticleURLs returns the article URLs that have a stored collection,
// ordered by most recently written.
func (r *SQLiteStoreRepository) ListArticleURLs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT article_url FROM highlight_stores ORDER BY updated_at DESC, article_url ASC")
	if err != nil {
		return nil, fmt.Errorf("list highlight stores: %w", err)
	}
	defer rows.Close()

	urls := make([]string, 0)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan article url: %w", err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article urls: %w", err)
	}
	return urls, nil
}
