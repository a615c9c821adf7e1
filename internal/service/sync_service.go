package service

import (
	"context"
	"sync"

	"article-reader/internal/domain"
	apperrors "article-reader/pkg/errors"
)

// SyncService drains pending highlight operations to the remote service,
// one record at a time, persisting after every outcome so an interrupted
// pass never loses more than the operation in flight.
//
// Every pass takes a token from a monotonic counter and records itself as
// the latest pass for its article. A pass that discovers a newer token
// stops claiming the queue: its failure write-backs are dropped, and its
// success write-backs are applied conservatively so a late response can
// never overwrite state a newer pass or the user has since produced.
type SyncService struct {
	store  domain.StoreRepository
	api    domain.HighlightAPI
	conn   domain.Connectivity
	hub    *StateHub
	logger domain.Logger

	mu     sync.Mutex
	seq    uint64
	latest map[string]uint64
}

// NewSyncService creates the sync engine.
func NewSyncService(
	store domain.StoreRepository,
	api domain.HighlightAPI,
	conn domain.Connectivity,
	hub *StateHub,
	logger domain.Logger,
) *SyncService {
	return &SyncService{
		store:  store,
		api:    api,
		conn:   conn,
		hub:    hub,
		logger: logger,
		latest: make(map[string]uint64),
	}
}

// Sync runs one full pass over the article's pending operations. It is safe
// to call from any goroutine; overlapping passes for the same article
// resolve through the token check.
func (s *SyncService) Sync(ctx context.Context, articleURL string) {
	token := s.begin(articleURL)
	s.logger.Debug("sync pass started", "article_url", articleURL, "token", token)

	ids, ok := s.actionableIDs(ctx, articleURL)
	if !ok {
		if s.isLatest(articleURL, token) {
			s.hub.SetStatus(articleURL, domain.EngineFailed)
		}
		return
	}
	if len(ids) == 0 {
		s.finish(ctx, articleURL, token)
		return
	}

	if s.isLatest(articleURL, token) {
		s.hub.SetStatus(articleURL, domain.EngineSyncing)
	}

	for _, clientID := range ids {
		if !s.isLatest(articleURL, token) {
			s.logger.Debug("sync pass superseded", "article_url", articleURL, "token", token)
			return
		}
		s.flushOne(ctx, articleURL, token, clientID)
	}

	s.finish(ctx, articleURL, token)
}

// begin allocates a token and records it as the latest pass for the article.
func (s *SyncService) begin(articleURL string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.latest[articleURL] = s.seq
	return s.seq
}

func (s *SyncService) isLatest(articleURL string, token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[articleURL] == token
}

// actionableIDs snapshots the client ids of pending records, in collection
// order.
func (s *SyncService) actionableIDs(ctx context.Context, articleURL string) ([]string, bool) {
	s.hub.LockStore()
	defer s.hub.UnlockStore()

	st, err := s.store.Load(ctx, articleURL)
	if err != nil {
		s.logger.Error("failed to load highlight store", err, "article_url", articleURL)
		return nil, false
	}

	ids := make([]string, 0, len(st.Highlights))
	for _, h := range st.Highlights {
		if h.Pending() {
			ids = append(ids, h.ClientID)
		}
	}
	return ids, true
}

// flushOne dispatches the pending operation of a single record against its
// current state and applies the outcome.
func (s *SyncService) flushOne(ctx context.Context, articleURL string, token uint64, clientID string) {
	snap := s.snapshotRecord(ctx, articleURL, clientID)
	if snap == nil || !snap.Pending() {
		return
	}

	switch snap.PendingOp {
	case domain.OpCreate:
		s.flushCreate(ctx, articleURL, token, snap)
	case domain.OpUpdate:
		s.flushUpdate(ctx, articleURL, token, snap)
	case domain.OpDelete:
		s.flushDelete(ctx, articleURL, token, snap)
	}
}

// snapshotRecord returns a clone of the record's current state, or nil if
// it no longer exists.
func (s *SyncService) snapshotRecord(ctx context.Context, articleURL, clientID string) *domain.Highlight {
	s.hub.LockStore()
	defer s.hub.UnlockStore()

	st, err := s.store.Load(ctx, articleURL)
	if err != nil {
		s.logger.Error("failed to load highlight store", err, "article_url", articleURL)
		return nil
	}
	h := st.FindClientID(clientID)
	if h == nil {
		return nil
	}
	return h.Clone()
}

func (s *SyncService) flushCreate(ctx context.Context, articleURL string, token uint64, snap *domain.Highlight) {
	created, err := s.api.Create(ctx, &domain.ServerHighlight{
		ArticleURL:      snap.ArticleURL,
		HighlightedText: snap.HighlightedText,
		CharacterStart:  snap.CharacterStart,
		CharacterEnd:    snap.CharacterEnd,
		Color:           snap.Color,
		Note:            snap.Note,
	})
	if err != nil {
		s.recordFailure(ctx, articleURL, token, snap.ClientID, "create", err)
		return
	}
	if created == nil || created.ID == 0 {
		s.recordFailure(ctx, articleURL, token, snap.ClientID, "create",
			apperrors.NewRemoteError("create returned no highlight id", nil))
		return
	}

	// The server row exists now, whether or not this pass is still the
	// latest. The identity must land in the store; everything else is
	// merged against whatever happened since dispatch.
	var orphanID int64
	s.mutate(ctx, articleURL, func(st *domain.HighlightStore) {
		cur := st.FindClientID(snap.ClientID)
		if cur == nil {
			// Deleted locally while the create was in flight.
			orphanID = created.ID
			return
		}
		if cur.ServerID != nil && *cur.ServerID != created.ID {
			// A newer pass already created this highlight; this row is a
			// duplicate.
			orphanID = created.ID
			return
		}

		id := created.ID
		cur.ServerID = &id
		if cur.Deleted {
			// The pending delete finally has a target.
			return
		}
		if cur.LocalUpdatedAt.After(snap.LocalUpdatedAt) {
			// Edited since dispatch: keep the local content and turn the
			// remaining create into an update now that an id exists.
			if cur.PendingOp == domain.OpCreate {
				cur.PendingOp = domain.OpUpdate
			}
			return
		}
		applyServerCopy(cur, created)
		cur.SyncStatus = domain.SyncSynced
		cur.PendingOp = domain.OpNone
		cur.LastError = ""
	})

	if orphanID != 0 {
		s.logger.Warn("removing orphaned server highlight", "article_url", articleURL, "server_id", orphanID)
		if err := s.api.Delete(ctx, orphanID); err != nil {
			s.logger.Error("failed to remove orphaned server highlight", err, "server_id", orphanID)
		}
	}
}

func (s *SyncService) flushUpdate(ctx context.Context, articleURL string, token uint64, snap *domain.Highlight) {
	if snap.ServerID == nil {
		s.recordFailure(ctx, articleURL, token, snap.ClientID, "update", domain.ErrMissingServerID)
		return
	}

	updated, err := s.api.Update(ctx, *snap.ServerID, &domain.HighlightPatch{
		Note:            &snap.Note,
		Color:           &snap.Color,
		HighlightedText: &snap.HighlightedText,
		CharacterStart:  &snap.CharacterStart,
		CharacterEnd:    &snap.CharacterEnd,
	})
	if err != nil {
		s.recordFailure(ctx, articleURL, token, snap.ClientID, "update", err)
		return
	}

	s.mutate(ctx, articleURL, func(st *domain.HighlightStore) {
		cur := st.FindClientID(snap.ClientID)
		if cur == nil || cur.Deleted {
			return
		}
		if cur.LocalUpdatedAt.After(snap.LocalUpdatedAt) {
			// Newer local edits are queued; they will flush on their own.
			return
		}
		if updated != nil {
			applyServerCopy(cur, updated)
		}
		cur.SyncStatus = domain.SyncSynced
		cur.PendingOp = domain.OpNone
		cur.LastError = ""
	})
}

func (s *SyncService) flushDelete(ctx context.Context, articleURL string, token uint64, snap *domain.Highlight) {
	if snap.ServerID != nil {
		if err := s.api.Delete(ctx, *snap.ServerID); err != nil {
			s.recordFailure(ctx, articleURL, token, snap.ClientID, "delete", err)
			return
		}
	}

	s.mutate(ctx, articleURL, func(st *domain.HighlightStore) {
		cur := st.FindClientID(snap.ClientID)
		if cur == nil || !cur.Deleted {
			return
		}
		st.Remove(snap.ClientID)
	})
}

// recordFailure marks a record failed or offline. Failures from superseded
// passes are dropped; the newer pass owns the record's status.
func (s *SyncService) recordFailure(ctx context.Context, articleURL string, token uint64, clientID, op string, cause error) {
	if !s.isLatest(articleURL, token) {
		s.logger.Debug("dropping superseded sync failure", "article_url", articleURL, "op", op)
		return
	}

	status := domain.SyncFailed
	if !s.conn.Online(ctx) {
		status = domain.SyncOffline
	}

	s.mutate(ctx, articleURL, func(st *domain.HighlightStore) {
		cur := st.FindClientID(clientID)
		if cur == nil || !cur.Pending() {
			return
		}
		cur.SyncStatus = status
		cur.LastError = cause.Error()
	})

	s.logger.Warn("highlight sync attempt failed",
		"article_url", articleURL, "op", op, "status", string(status), "error", cause.Error())
}

// finish recomputes the aggregate status from the record states left in
// the store. Superseded passes leave the status to their successor.
func (s *SyncService) finish(ctx context.Context, articleURL string, token uint64) {
	if !s.isLatest(articleURL, token) {
		return
	}

	s.hub.LockStore()
	st, err := s.store.Load(ctx, articleURL)
	s.hub.UnlockStore()
	if err != nil {
		s.logger.Error("failed to load highlight store", err, "article_url", articleURL)
		s.hub.SetStatus(articleURL, domain.EngineFailed)
		return
	}

	status := domain.EngineIdle
	for _, h := range st.Highlights {
		switch h.SyncStatus {
		case domain.SyncFailed:
			status = domain.EngineFailed
		case domain.SyncOffline:
			if status != domain.EngineFailed {
				status = domain.EngineOffline
			}
		}
	}

	s.hub.SetStatus(articleURL, status)
	s.logger.Info("sync pass finished", "article_url", articleURL, "token", token, "status", string(status))
}

// mutate applies fn to the freshly loaded collection, persists the result
// and publishes the new state. Reloading inside the lock keeps write-backs
// merging into current state instead of overwriting it with stale copies.
func (s *SyncService) mutate(ctx context.Context, articleURL string, fn func(*domain.HighlightStore)) {
	s.hub.LockStore()
	st, err := s.store.Load(ctx, articleURL)
	if err != nil {
		s.hub.UnlockStore()
		s.logger.Error("failed to load highlight store", err, "article_url", articleURL)
		return
	}
	fn(st)
	if err := s.store.Save(ctx, st); err != nil {
		s.hub.UnlockStore()
		s.logger.Error("failed to save highlight store", err, "article_url", articleURL)
		return
	}
	visible := st.Visible()
	s.hub.UnlockStore()

	s.hub.Update(articleURL, visible)
}

// applyServerCopy overwrites a record's content with the server's copy.
func applyServerCopy(h *domain.Highlight, sh *domain.ServerHighlight) {
	h.HighlightedText = sh.HighlightedText
	h.CharacterStart = sh.CharacterStart
	h.CharacterEnd = sh.CharacterEnd
	if sh.Color.Valid() {
		h.Color = sh.Color
	}
	h.Note = sh.Note
	if !sh.UpdatedAt.IsZero() {
		h.LocalUpdatedAt = sh.UpdatedAt
	}
}
