package service

import (
	"context"
	"fmt"
	"strings"

	"article-reader/internal/domain"
	apperrors "article-reader/pkg/errors"
)

// ExportService renders an article's highlights as a markdown document.
type ExportService struct {
	store    domain.StoreRepository
	articles domain.ArticleRepository
	logger   domain.Logger
}

// NewExportService creates the highlight exporter.
func NewExportService(store domain.StoreRepository, articles domain.ArticleRepository, logger domain.Logger) *ExportService {
	return &ExportService{
		store:    store,
		articles: articles,
		logger:   logger,
	}
}

// ExportMarkdown renders the article's visible highlights in reading
// order. Tombstones and sync bookkeeping never appear in the output.
func (s *ExportService) ExportMarkdown(ctx context.Context, articleURL string) (string, error) {
	if articleURL == "" {
		return "", apperrors.NewValidationError("article_url is required")
	}

	st, err := s.store.Load(ctx, articleURL)
	if err != nil {
		return "", err
	}

	visible := st.Visible()
	if len(visible) == 0 {
		return "", apperrors.NewNotFoundError("no highlights for article")
	}
	sortHighlights(visible)

	title := articleURL
	if cached, err := s.articles.Load(ctx, articleURL); err == nil && cached.Title != "" {
		title = cached.Title
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Highlights: %s\n\n", title)
	fmt.Fprintf(&b, "Source: %s\n\n", articleURL)

	for _, h := range visible {
		for _, line := range strings.Split(h.HighlightedText, "\n") {
			fmt.Fprintf(&b, "> %s\n", line)
		}
		if h.Note != "" {
			fmt.Fprintf(&b, "\nNote: %s\n", h.Note)
		}
		b.WriteString("\n")
	}

	s.logger.Info("highlights exported", "article_url", articleURL, "count", len(visible))
	return b.String(), nil
}
