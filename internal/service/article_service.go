package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"article-reader/internal/domain"
	apperrors "article-reader/pkg/errors"
)

// Pages larger than this are cut off before conversion.
const maxArticleBytes = 5 << 20

// ArticleService fetches web pages, extracts their readable text as
// markdown and caches the result so articles stay readable offline.
type ArticleService struct {
	cache     domain.ArticleRepository
	client    *http.Client
	converter *md.Converter
	logger    domain.Logger
}

// NewArticleService creates the article extraction service.
func NewArticleService(cache domain.ArticleRepository, timeout time.Duration, logger domain.Logger) *ArticleService {
	return &ArticleService{
		cache:     cache,
		client:    &http.Client{Timeout: timeout},
		converter: md.NewConverter("", true, nil),
		logger:    logger,
	}
}

// Fetch returns the extracted article for rawURL. A fresh fetch is
// attempted first; when it fails and a cached copy exists, the stale copy
// is served instead of an error.
func (s *ArticleService) Fetch(ctx context.Context, rawURL string) (*domain.Article, error) {
	if rawURL == "" {
		return nil, apperrors.NewValidationError("url is required")
	}

	article, err := s.extract(ctx, rawURL)
	if err != nil {
		cached, cacheErr := s.cache.Load(ctx, rawURL)
		if cacheErr == nil {
			s.logger.Warn("serving cached article after fetch failure",
				"url", rawURL, "error", err.Error())
			return cached, nil
		}
		return nil, err
	}

	if err := s.cache.Save(ctx, article); err != nil {
		s.logger.Error("failed to cache article", err, "url", rawURL)
	}
	return article, nil
}

// Cached returns the cached copy of an article without touching the
// network.
func (s *ArticleService) Cached(ctx context.Context, rawURL string) (*domain.Article, error) {
	if rawURL == "" {
		return nil, apperrors.NewValidationError("url is required")
	}
	return s.cache.Load(ctx, rawURL)
}

func (s *ArticleService) extract(ctx context.Context, rawURL string) (*domain.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid url", rawURL)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("article fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewRemoteError("article fetch failed",
			fmt.Errorf("status %d for %s", resp.StatusCode, rawURL))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxArticleBytes))
	if err != nil {
		return nil, apperrors.NewNetworkError("article read failed", err)
	}

	markdown, err := s.converter.ConvertString(string(body))
	if err != nil {
		return nil, apperrors.NewInternalError("converting HTML to markdown", err)
	}

	return &domain.Article{
		URL:       rawURL,
		Title:     articleTitle(markdown, rawURL),
		Text:      markdown,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// articleTitle takes the first heading of the extracted markdown, falling
// back to the page's host name.
func articleTitle(markdown, rawURL string) string {
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "# "); ok {
			if title := strings.TrimSpace(rest); title != "" {
				return title
			}
		}
	}
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return rawURL
}
