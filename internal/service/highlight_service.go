package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"article-reader/internal/domain"
	apperrors "article-reader/pkg/errors"
)

// HighlightService implements the optimistic highlight operations. Every
// mutation lands in the local store first and is acknowledged immediately;
// a sync pass is kicked off afterwards to reconcile with the server.
type HighlightService struct {
	store  domain.StoreRepository
	api    domain.HighlightAPI
	engine domain.SyncEngine
	hub    *StateHub
	logger domain.Logger
}

// NewHighlightService creates the highlight use-case service.
func NewHighlightService(
	store domain.StoreRepository,
	api domain.HighlightAPI,
	engine domain.SyncEngine,
	hub *StateHub,
	logger domain.Logger,
) domain.HighlightService {
	return &HighlightService{
		store:  store,
		api:    api,
		engine: engine,
		hub:    hub,
		logger: logger,
	}
}

// Open prepares an article for reading: it merges the server's highlights
// into the local collection when the server answers, publishes the result
// and kicks off a sync pass for anything still pending. When the server is
// unreachable the local collection is served as-is.
func (s *HighlightService) Open(ctx context.Context, articleURL string) (*domain.HighlightState, error) {
	if articleURL == "" {
		return nil, apperrors.NewValidationError("article_url is required")
	}

	// Fetch outside the store lock; the merge itself is quick and local.
	server, listErr := s.api.List(ctx, articleURL)

	s.hub.LockStore()
	st, err := s.store.Load(ctx, articleURL)
	if err != nil {
		s.hub.UnlockStore()
		return nil, err
	}
	if listErr == nil {
		st.Highlights = MergeHighlights(articleURL, st.Highlights, server)
		if err := s.store.Save(ctx, st); err != nil {
			s.hub.UnlockStore()
			return nil, err
		}
	}
	visible := st.Visible()
	s.hub.UnlockStore()

	if listErr != nil {
		s.logger.Warn("opening article with local highlights only",
			"article_url", articleURL, "error", listErr.Error())
	} else {
		s.logger.Info("article opened", "article_url", articleURL, "highlights", len(visible))
	}

	s.hub.Update(articleURL, visible)
	go s.engine.Sync(context.Background(), articleURL)

	return s.hub.Snapshot(articleURL), nil
}

// Create stores a new highlight from a selection. The highlight is visible
// and addressable immediately; the server acknowledgment arrives via sync.
func (s *HighlightService) Create(ctx context.Context, sel *domain.Selection) (*domain.Highlight, error) {
	if sel == nil {
		return nil, apperrors.NewValidationError("selection is required")
	}
	if sel.ArticleURL == "" {
		return nil, apperrors.NewValidationError("article_url is required")
	}
	if sel.HighlightedText == "" {
		return nil, apperrors.NewValidationError("highlighted_text is required")
	}
	if sel.CharacterStart < 0 || sel.CharacterEnd <= sel.CharacterStart {
		return nil, apperrors.NewValidationError("invalid selection range")
	}

	color := sel.Color
	if color == "" {
		color = domain.DefaultColor
	}
	if !color.Valid() {
		return nil, apperrors.NewValidationError("unknown color", string(sel.Color))
	}

	h := &domain.Highlight{
		ClientID:        uuid.New().String(),
		ArticleURL:      sel.ArticleURL,
		HighlightedText: sel.HighlightedText,
		CharacterStart:  sel.CharacterStart,
		CharacterEnd:    sel.CharacterEnd,
		Color:           color,
		Note:            sel.Note,
		SyncStatus:      domain.SyncPending,
		PendingOp:       domain.OpCreate,
		LocalUpdatedAt:  time.Now().UTC(),
	}

	s.hub.LockStore()
	st, err := s.store.Load(ctx, sel.ArticleURL)
	if err != nil {
		s.hub.UnlockStore()
		return nil, err
	}
	st.Highlights = append(st.Highlights, h)
	if err := s.store.Save(ctx, st); err != nil {
		s.hub.UnlockStore()
		return nil, err
	}
	visible := st.Visible()
	s.hub.UnlockStore()

	s.logger.Info("highlight created", "article_url", sel.ArticleURL, "client_id", h.ClientID)

	s.hub.Update(sel.ArticleURL, visible)
	go s.engine.Sync(context.Background(), sel.ArticleURL)

	return h.Clone(), nil
}

// Update edits a highlight addressed by its stable id.
func (s *HighlightService) Update(ctx context.Context, articleURL, stableID string, patch *domain.HighlightPatch) (*domain.Highlight, error) {
	if articleURL == "" {
		return nil, apperrors.NewValidationError("article_url is required")
	}
	if stableID == "" {
		return nil, apperrors.NewValidationError("highlight id is required")
	}
	if patch == nil {
		return nil, apperrors.NewValidationError("no fields to update")
	}
	if patch.Color != nil && !patch.Color.Valid() {
		return nil, apperrors.NewValidationError("unknown color", string(*patch.Color))
	}

	s.hub.LockStore()
	st, err := s.store.Load(ctx, articleURL)
	if err != nil {
		s.hub.UnlockStore()
		return nil, err
	}
	h := st.Find(stableID)
	if h == nil {
		s.hub.UnlockStore()
		return nil, apperrors.NewNotFoundError("highlight not found: " + stableID)
	}

	start, end := h.CharacterStart, h.CharacterEnd
	if patch.CharacterStart != nil {
		start = *patch.CharacterStart
	}
	if patch.CharacterEnd != nil {
		end = *patch.CharacterEnd
	}
	if start < 0 || end <= start {
		s.hub.UnlockStore()
		return nil, apperrors.NewValidationError("invalid selection range")
	}

	if patch.Note != nil {
		h.Note = *patch.Note
	}
	if patch.Color != nil {
		h.Color = *patch.Color
	}
	if patch.HighlightedText != nil {
		h.HighlightedText = *patch.HighlightedText
	}
	h.CharacterStart = start
	h.CharacterEnd = end

	// A highlight the server has never seen keeps its pending create; the
	// eventual create carries the edited content.
	if h.PendingOp != domain.OpCreate {
		h.PendingOp = domain.OpUpdate
	}
	h.SyncStatus = domain.SyncPending
	h.LastError = ""
	h.LocalUpdatedAt = time.Now().UTC()

	if err := s.store.Save(ctx, st); err != nil {
		s.hub.UnlockStore()
		return nil, err
	}
	visible := st.Visible()
	updated := h.Clone()
	s.hub.UnlockStore()

	s.logger.Info("highlight updated", "article_url", articleURL, "id", stableID)

	s.hub.Update(articleURL, visible)
	go s.engine.Sync(context.Background(), articleURL)

	return updated, nil
}

// Delete removes a highlight addressed by its stable id. A highlight the
// server has never seen is dropped outright with no remote call owed; a
// synced one becomes a tombstone until the remote delete is confirmed.
func (s *HighlightService) Delete(ctx context.Context, articleURL, stableID string) error {
	if articleURL == "" {
		return apperrors.NewValidationError("article_url is required")
	}
	if stableID == "" {
		return apperrors.NewValidationError("highlight id is required")
	}

	s.hub.LockStore()
	st, err := s.store.Load(ctx, articleURL)
	if err != nil {
		s.hub.UnlockStore()
		return err
	}
	h := st.Find(stableID)
	if h == nil {
		s.hub.UnlockStore()
		return apperrors.NewNotFoundError("highlight not found: " + stableID)
	}

	if h.ServerID == nil {
		st.Remove(h.ClientID)
	} else {
		h.Deleted = true
		h.PendingOp = domain.OpDelete
		h.SyncStatus = domain.SyncPending
		h.LastError = ""
		h.LocalUpdatedAt = time.Now().UTC()
	}

	if err := s.store.Save(ctx, st); err != nil {
		s.hub.UnlockStore()
		return err
	}
	visible := st.Visible()
	s.hub.UnlockStore()

	s.logger.Info("highlight deleted", "article_url", articleURL, "id", stableID)

	s.hub.Update(articleURL, visible)
	go s.engine.Sync(context.Background(), articleURL)

	return nil
}

// Retry kicks off a fresh sync pass, typically after the user saw a failed
// status.
func (s *HighlightService) Retry(ctx context.Context, articleURL string) *domain.HighlightState {
	s.logger.Info("sync retry requested", "article_url", articleURL)
	go s.engine.Sync(context.Background(), articleURL)
	return s.hub.Snapshot(articleURL)
}

// State returns the current highlight state for an article from the store.
func (s *HighlightService) State(ctx context.Context, articleURL string) (*domain.HighlightState, error) {
	if articleURL == "" {
		return nil, apperrors.NewValidationError("article_url is required")
	}

	s.hub.LockStore()
	st, err := s.store.Load(ctx, articleURL)
	s.hub.UnlockStore()
	if err != nil {
		return nil, err
	}

	return &domain.HighlightState{
		ArticleURL: articleURL,
		Highlights: st.Visible(),
		SyncStatus: s.hub.Status(articleURL),
	}, nil
}

// AnnotatedArticles lists the articles that have stored highlights.
func (s *HighlightService) AnnotatedArticles(ctx context.Context) ([]*domain.AnnotatedArticle, error) {
	urls, err := s.store.ListArticleURLs(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.AnnotatedArticle, 0, len(urls))
	for _, u := range urls {
		s.hub.LockStore()
		st, err := s.store.Load(ctx, u)
		s.hub.UnlockStore()
		if err != nil {
			s.logger.Error("failed to load highlight store", err, "article_url", u)
			continue
		}
		if len(st.Highlights) == 0 {
			continue
		}
		out = append(out, &domain.AnnotatedArticle{
			ArticleURL:     u,
			HighlightCount: len(st.Visible()),
			PendingCount:   st.PendingCount(),
		})
	}
	return out, nil
}
