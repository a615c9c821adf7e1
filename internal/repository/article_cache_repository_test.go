package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"article-reader/internal/domain"
)

func newArticleCache(t *testing.T) *SQLiteArticleCache {
	t.Helper()
	db := newTestDB(t)
	repo := NewSQLiteArticleCache(db, &testLogger{})
	if err := repo.Init(context.Background()); err != nil {
		t.Fatalf("init article cache: %v", err)
	}
	return repo
}

func TestArticleCache_LoadMissing(t *testing.T) {
	repo := newArticleCache(t)

	_, err := repo.Load(context.Background(), "https://example.com/missing")
	if err == nil {
		t.Fatal("load of missing article should fail")
	}
	if !errors.Is(err, domain.ErrArticleNotCached) {
		t.Errorf("error = %v, want ErrArticleNotCached", err)
	}
}

func TestArticleCache_SaveLoadRoundTrip(t *testing.T) {
	repo := newArticleCache(t)
	ctx := context.Background()

	fetchedAt := time.Now().UTC().Truncate(time.Second)
	article := &domain.Article{
		URL:       "https://example.com/story",
		Title:     "A Story",
		Text:      "# A Story\n\nSome extracted body text.",
		FetchedAt: fetchedAt,
	}

	if err := repo.Save(ctx, article); err != nil {
		t.Fatalf("save article: %v", err)
	}

	loaded, err := repo.Load(ctx, "https://example.com/story")
	if err != nil {
		t.Fatalf("load article: %v", err)
	}
	if loaded.Title != "A Story" {
		t.Errorf("Title = %q, want A Story", loaded.Title)
	}
	if loaded.Text != article.Text {
		t.Errorf("Text not preserved")
	}
	if !loaded.FetchedAt.Equal(fetchedAt) {
		t.Errorf("FetchedAt = %v, want %v", loaded.FetchedAt, fetchedAt)
	}
}

func TestArticleCache_SaveRefreshesExisting(t *testing.T) {
	repo := newArticleCache(t)
	ctx := context.Background()

	article := &domain.Article{URL: "https://example.com/story", Title: "Old", Text: "old text"}
	if err := repo.Save(ctx, article); err != nil {
		t.Fatalf("first save: %v", err)
	}

	article.Title = "New"
	article.Text = "new text"
	if err := repo.Save(ctx, article); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := repo.Load(ctx, "https://example.com/story")
	if err != nil {
		t.Fatalf("load article: %v", err)
	}
	if loaded.Title != "New" || loaded.Text != "new text" {
		t.Errorf("refresh did not replace cached copy: title=%q", loaded.Title)
	}
}

func TestArticleCache_Delete(t *testing.T) {
	repo := newArticleCache(t)
	ctx := context.Background()

	article := &domain.Article{URL: "https://example.com/story", Title: "T", Text: "body"}
	if err := repo.Save(ctx, article); err != nil {
		t.Fatalf("save article: %v", err)
	}
	if err := repo.Delete(ctx, "https://example.com/story"); err != nil {
		t.Fatalf("delete article: %v", err)
	}
	if _, err := repo.Load(ctx, "https://example.com/story"); !errors.Is(err, domain.ErrArticleNotCached) {
		t.Errorf("load after delete = %v, want ErrArticleNotCached", err)
	}
}
