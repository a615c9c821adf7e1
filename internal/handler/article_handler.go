package handler

import (
	"net/http"

	"article-reader/internal/config"
	"article-reader/internal/domain"
)

// ArticleHandler serves extracted article text for reader mode.
type ArticleHandler struct {
	container *config.Container
	logger    domain.Logger
	articles  domain.ArticleService
}

func NewArticleHandler(container *config.Container, logger domain.Logger) *ArticleHandler {
	return &ArticleHandler{
		container: container,
		logger:    logger,
		articles:  container.ArticleService,
	}
}

// GetArticle handles GET /articles?url=...
//
// The extracted text is fetched fresh when possible; a cached copy is
// served when the page cannot be reached.
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	article, err := h.articles.Fetch(r.Context(), rawURL)
	if err != nil {
		h.logger.Error("Failed to fetch article", err, "url", rawURL)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}
