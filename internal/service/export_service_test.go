package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"article-reader/internal/domain"
	apperrors "article-reader/pkg/errors"
)

func TestExportService_Markdown(t *testing.T) {
	repo := NewMockStoreRepository()
	articles := NewMockArticleRepository()
	svc := NewExportService(repo, articles, NewMockLogger())

	one := int64(1)
	two := int64(2)
	three := int64(3)
	st := domain.NewHighlightStore(testArticle)
	st.Highlights = []*domain.Highlight{
		{
			ServerID:        &two,
			ClientID:        "c2",
			ArticleURL:      testArticle,
			HighlightedText: "quoted",
			CharacterStart:  40,
			CharacterEnd:    46,
			Note:            "remember this",
			SyncStatus:      domain.SyncSynced,
			PendingOp:       domain.OpNone,
		},
		{
			ServerID:        &one,
			ClientID:        "c1",
			ArticleURL:      testArticle,
			HighlightedText: "line one\nline two",
			CharacterStart:  10,
			CharacterEnd:    27,
			SyncStatus:      domain.SyncSynced,
			PendingOp:       domain.OpNone,
		},
		{
			ServerID:   &three,
			ClientID:   "c3",
			ArticleURL: testArticle,
			Deleted:    true,
			SyncStatus: domain.SyncPending,
			PendingOp:  domain.OpDelete,
		},
	}
	repo.Put(st)

	articles.Save(context.Background(), &domain.Article{
		URL:       testArticle,
		Title:     "The Story",
		Text:      "# The Story",
		FetchedAt: time.Now().UTC(),
	})

	got, err := svc.ExportMarkdown(context.Background(), testArticle)
	if err != nil {
		t.Fatalf("ExportMarkdown() error = %v", err)
	}

	want := "# Highlights: The Story\n\n" +
		"Source: " + testArticle + "\n\n" +
		"> line one\n" +
		"> line two\n\n" +
		"> quoted\n\n" +
		"Note: remember this\n\n"
	if got != want {
		t.Errorf("ExportMarkdown() =\n%q\nwant\n%q", got, want)
	}
}

func TestExportService_TitleFallsBackToURL(t *testing.T) {
	repo := NewMockStoreRepository()
	svc := NewExportService(repo, NewMockArticleRepository(), NewMockLogger())

	st := domain.NewHighlightStore(testArticle)
	st.Highlights = []*domain.Highlight{pendingCreate("c1", "text", time.Now().UTC())}
	repo.Put(st)

	got, err := svc.ExportMarkdown(context.Background(), testArticle)
	if err != nil {
		t.Fatalf("ExportMarkdown() error = %v", err)
	}
	if !strings.HasPrefix(got, "# Highlights: "+testArticle+"\n") {
		t.Errorf("export does not open with the url fallback title:\n%s", got)
	}
}

func TestExportService_NoHighlights(t *testing.T) {
	repo := NewMockStoreRepository()
	svc := NewExportService(repo, NewMockArticleRepository(), NewMockLogger())

	_, err := svc.ExportMarkdown(context.Background(), testArticle)
	if err == nil {
		t.Fatal("ExportMarkdown() succeeded for an article with no highlights")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("error type = %v, want not found", err)
	}
}

func TestExportService_OnlyTombstonesIsEmpty(t *testing.T) {
	repo := NewMockStoreRepository()
	svc := NewExportService(repo, NewMockArticleRepository(), NewMockLogger())

	id := int64(1)
	st := domain.NewHighlightStore(testArticle)
	st.Highlights = []*domain.Highlight{{
		ServerID:   &id,
		ClientID:   "c1",
		ArticleURL: testArticle,
		Deleted:    true,
		SyncStatus: domain.SyncPending,
		PendingOp:  domain.OpDelete,
	}}
	repo.Put(st)

	_, err := svc.ExportMarkdown(context.Background(), testArticle)
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("error = %v, want not found when only tombstones remain", err)
	}
}
