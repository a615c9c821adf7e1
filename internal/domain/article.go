package domain

import (
	"context"
	"time"
)

// Article is the readable text extracted from a web page. Text is the
// markdown rendering of the page body; highlight character offsets refer
// to positions within it.
type Article struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ArticleRepository caches extracted articles locally so previously read
// pages stay readable offline.
type ArticleRepository interface {
	Load(ctx context.Context, url string) (*Article, error)
	Save(ctx context.Context, article *Article) error
	Delete(ctx context.Context, url string) error
}

// ArticleService fetches and extracts readable article text.
type ArticleService interface {
	Fetch(ctx context.Context, url string) (*Article, error)
	Cached(ctx context.Context, url string) (*Article, error)
}
