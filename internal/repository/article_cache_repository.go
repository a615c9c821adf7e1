package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"article-reader/internal/domain"
)

const articleCacheSchema = `
CREATE TABLE IF NOT EXISTS article_cache (
	url TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	text TEXT NOT NULL,
	fetched_at INTEGER NOT NULL
);
`

// SQLiteArticleCache stores extracted article text so previously opened
// pages remain readable without connectivity.
type SQLiteArticleCache struct {
	db     *sql.DB
	logger domain.Logger
}

// NewSQLiteArticleCache creates an article cache repository on db.
func NewSQLiteArticleCache(db *sql.DB, logger domain.Logger) *SQLiteArticleCache {
	return &SQLiteArticleCache{db: db, logger: logger}
}

// Init creates the article cache table if it does not exist.
func (r *SQLiteArticleCache) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, articleCacheSchema); err != nil {
		return fmt.Errorf("init article cache schema: %w", err)
	}
	return nil
}

// Load returns the cached article for url, or domain.ErrArticleNotCached.
func (r *SQLiteArticleCache) Load(ctx context.Context, url string) (*domain.Article, error) {
	if url == "" {
		return nil, errors.New("article url is required")
	}

	var article domain.Article
	var fetchedAt int64
	row := r.db.QueryRowContext(ctx,
		"SELECT url, title, text, fetched_at FROM article_cache WHERE url = ?", url)
	if err := row.Scan(&article.URL, &article.Title, &article.Text, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrArticleNotCached
		}
		return nil, fmt.Errorf("load cached article: %w", err)
	}
	article.FetchedAt = time.Unix(fetchedAt, 0).UTC()
	return &article, nil
}

// Save stores or refreshes the cached article.
func (r *SQLiteArticleCache) Save(ctx context.Context, article *domain.Article) error {
	if article == nil || article.URL == "" {
		return errors.New("article with url is required")
	}

	fetchedAt := article.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO article_cache (url, title, text, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			text = excluded.text,
			fetched_at = excluded.fetched_at
	`, article.URL, article.Title, article.Text, fetchedAt.Unix())
	if err != nil {
		return fmt.Errorf("save cached article: %w", err)
	}
	return nil
}

// Delete removes the cached article for url.
func (r *SQLiteArticleCache) Delete(ctx context.Context, url string) error {
	if url == "" {
		return errors.New("article url is required")
	}
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM article_cache WHERE url = ?", url); err != nil {
		return fmt.Errorf("delete cached article: %w", err)
	}
	return nil
}
