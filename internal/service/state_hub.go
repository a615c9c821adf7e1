package service

import (
	"sync"

	"article-reader/internal/domain"
)

// StateHub owns the shared view of per-article highlight state: the last
// published snapshot, the aggregate sync status, and the subscribers that
// want to hear about changes.
//
// It also carries the lock that serializes read-modify-write cycles on the
// local store. Collections are loaded, mutated and written back whole, so
// every writer must hold the lock for its full cycle.
type StateHub struct {
	storeMu sync.Mutex

	mu      sync.Mutex
	status  map[string]domain.EngineStatus
	last    map[string][]*domain.Highlight
	subs    map[string]map[int]func(*domain.HighlightState)
	nextSub int
}

// NewStateHub creates an empty hub.
func NewStateHub() *StateHub {
	return &StateHub{
		status: make(map[string]domain.EngineStatus),
		last:   make(map[string][]*domain.Highlight),
		subs:   make(map[string]map[int]func(*domain.HighlightState)),
	}
}

// LockStore takes the store read-modify-write lock.
func (h *StateHub) LockStore() {
	h.storeMu.Lock()
}

// UnlockStore releases the store read-modify-write lock.
func (h *StateHub) UnlockStore() {
	h.storeMu.Unlock()
}

// Status returns the aggregate sync status for an article. Articles with
// no recorded status are idle.
func (h *StateHub) Status(articleURL string) domain.EngineStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	if st, ok := h.status[articleURL]; ok {
		return st
	}
	return domain.EngineIdle
}

// Snapshot returns the last published state for an article.
func (h *StateHub) Snapshot(articleURL string) *domain.HighlightState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked(articleURL)
}

// Update publishes a new highlight collection for an article, keeping the
// current status.
func (h *StateHub) Update(articleURL string, visible []*domain.Highlight) {
	h.mu.Lock()
	h.last[articleURL] = visible
	state := h.snapshotLocked(articleURL)
	fns := h.subscribersLocked(articleURL)
	h.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// SetStatus publishes a new aggregate status for an article, keeping the
// current highlight collection.
func (h *StateHub) SetStatus(articleURL string, status domain.EngineStatus) {
	h.mu.Lock()
	h.status[articleURL] = status
	state := h.snapshotLocked(articleURL)
	fns := h.subscribersLocked(articleURL)
	h.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// Subscribe registers fn for an article's state changes and invokes it
// once with the current state. The returned function unsubscribes.
func (h *StateHub) Subscribe(articleURL string, fn func(*domain.HighlightState)) func() {
	h.mu.Lock()
	if h.subs[articleURL] == nil {
		h.subs[articleURL] = make(map[int]func(*domain.HighlightState))
	}
	h.nextSub++
	id := h.nextSub
	h.subs[articleURL][id] = fn
	state := h.snapshotLocked(articleURL)
	h.mu.Unlock()

	fn(state)

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[articleURL], id)
	}
}

// snapshotLocked builds the current state pair. Caller holds h.mu.
func (h *StateHub) snapshotLocked(articleURL string) *domain.HighlightState {
	highlights := h.last[articleURL]
	if highlights == nil {
		highlights = []*domain.Highlight{}
	}
	status, ok := h.status[articleURL]
	if !ok {
		status = domain.EngineIdle
	}
	return &domain.HighlightState{
		ArticleURL: articleURL,
		Highlights: highlights,
		SyncStatus: status,
	}
}

// subscribersLocked snapshots the callbacks so they can run outside h.mu.
// Caller holds h.mu.
func (h *StateHub) subscribersLocked(articleURL string) []func(*domain.HighlightState) {
	fns := make([]func(*domain.HighlightState), 0, len(h.subs[articleURL]))
	for _, fn := range h.subs[articleURL] {
		fns = append(fns, fn)
	}
	return fns
}
