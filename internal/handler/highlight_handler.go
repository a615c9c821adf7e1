package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"article-reader/internal/config"
	"article-reader/internal/domain"
)

// HighlightHandler handles highlight-related HTTP requests.
type HighlightHandler struct {
	container  *config.Container
	logger     domain.Logger
	highlights domain.HighlightService
	exporter   domain.HighlightExporter
}

func NewHighlightHandler(container *config.Container, logger domain.Logger) *HighlightHandler {
	return &HighlightHandler{
		container:  container,
		logger:     logger,
		highlights: container.HighlightService,
		exporter:   container.ExportService,
	}
}

type createHighlightRequest struct {
	ArticleURL      string `json:"article_url"`
	HighlightedText string `json:"highlighted_text"`
	CharacterStart  int    `json:"character_start"`
	CharacterEnd    int    `json:"character_end"`
	Color           string `json:"color,omitempty"`
	Note            string `json:"note,omitempty"`
}

type updateHighlightRequest struct {
	Note            *string `json:"note,omitempty"`
	Color           *string `json:"color,omitempty"`
	HighlightedText *string `json:"highlighted_text,omitempty"`
	CharacterStart  *int    `json:"character_start,omitempty"`
	CharacterEnd    *int    `json:"character_end,omitempty"`
}

// OpenArticle handles GET /highlights?article_url=...
//
// Opening an article merges the server's highlights into the local
// collection and kicks off a sync pass for anything pending.
func (h *HighlightHandler) OpenArticle(w http.ResponseWriter, r *http.Request) {
	articleURL := r.URL.Query().Get("article_url")
	if articleURL == "" {
		writeError(w, http.StatusBadRequest, "article_url is required")
		return
	}

	state, err := h.highlights.Open(r.Context(), articleURL)
	if err != nil {
		h.logger.Error("Failed to open article", err, "article_url", articleURL)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// CreateHighlight handles POST /highlights
func (h *HighlightHandler) CreateHighlight(w http.ResponseWriter, r *http.Request) {
	var req createHighlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ArticleURL == "" {
		writeError(w, http.StatusBadRequest, "article_url is required")
		return
	}
	if req.HighlightedText == "" {
		writeError(w, http.StatusBadRequest, "highlighted_text is required")
		return
	}

	created, err := h.highlights.Create(r.Context(), &domain.Selection{
		ArticleURL:      req.ArticleURL,
		HighlightedText: req.HighlightedText,
		CharacterStart:  req.CharacterStart,
		CharacterEnd:    req.CharacterEnd,
		Color:           domain.Color(req.Color),
		Note:            req.Note,
	})
	if err != nil {
		h.logger.Error("Failed to create highlight", err, "article_url", req.ArticleURL)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateHighlight handles PATCH /highlights/{id}?article_url=...
//
// The id is a stable id, "server:<n>" or "client:<uuid>".
func (h *HighlightHandler) UpdateHighlight(w http.ResponseWriter, r *http.Request) {
	articleURL := r.URL.Query().Get("article_url")
	if articleURL == "" {
		writeError(w, http.StatusBadRequest, "article_url is required")
		return
	}
	stableID := mux.Vars(r)["id"]
	if stableID == "" {
		writeError(w, http.StatusBadRequest, "highlight id is required")
		return
	}

	var req updateHighlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	patch := &domain.HighlightPatch{
		Note:            req.Note,
		HighlightedText: req.HighlightedText,
		CharacterStart:  req.CharacterStart,
		CharacterEnd:    req.CharacterEnd,
	}
	if req.Color != nil {
		color := domain.Color(*req.Color)
		patch.Color = &color
	}

	updated, err := h.highlights.Update(r.Context(), articleURL, stableID, patch)
	if err != nil {
		h.logger.Error("Failed to update highlight", err, "article_url", articleURL, "id", stableID)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteHighlight handles DELETE /highlights/{id}?article_url=...
func (h *HighlightHandler) DeleteHighlight(w http.ResponseWriter, r *http.Request) {
	articleURL := r.URL.Query().Get("article_url")
	if articleURL == "" {
		writeError(w, http.StatusBadRequest, "article_url is required")
		return
	}
	stableID := mux.Vars(r)["id"]
	if stableID == "" {
		writeError(w, http.StatusBadRequest, "highlight id is required")
		return
	}

	if err := h.highlights.Delete(r.Context(), articleURL, stableID); err != nil {
		h.logger.Error("Failed to delete highlight", err, "article_url", articleURL, "id", stableID)
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RetrySync handles POST /sync/retry?article_url=...
func (h *HighlightHandler) RetrySync(w http.ResponseWriter, r *http.Request) {
	articleURL := r.URL.Query().Get("article_url")
	if articleURL == "" {
		writeError(w, http.StatusBadRequest, "article_url is required")
		return
	}

	state := h.highlights.Retry(r.Context(), articleURL)
	writeJSON(w, http.StatusAccepted, state)
}

// ExportHighlights handles GET /highlights/export?article_url=...
func (h *HighlightHandler) ExportHighlights(w http.ResponseWriter, r *http.Request) {
	articleURL := r.URL.Query().Get("article_url")
	if articleURL == "" {
		writeError(w, http.StatusBadRequest, "article_url is required")
		return
	}

	markdown, err := h.exporter.ExportMarkdown(r.Context(), articleURL)
	if err != nil {
		h.logger.Error("Failed to export highlights", err, "article_url", articleURL)
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(markdown))
}

// ListAnnotated handles GET /annotated
func (h *HighlightHandler) ListAnnotated(w http.ResponseWriter, r *http.Request) {
	articles, err := h.highlights.AnnotatedArticles(r.Context())
	if err != nil {
		h.logger.Error("Failed to list annotated articles", err)
		writeServiceError(w, err)
		return
	}
	if articles == nil {
		articles = make([]*domain.AnnotatedArticle, 0)
	}
	writeJSON(w, http.StatusOK, articles)
}
