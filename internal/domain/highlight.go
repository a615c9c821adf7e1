package domain

import (
	"context"
	"strconv"
	"time"
)

// Color is one of the fixed highlight colors the reader offers.
type Color string

const (
	ColorYellow Color = "yellow"
	ColorBlue   Color = "blue"
	ColorRed    Color = "red"
	ColorGreen  Color = "green"
	ColorPurple Color = "purple"
)

// DefaultColor is applied when a selection does not specify a color.
const DefaultColor = ColorYellow

// Valid reports whether c is part of the palette.
func (c Color) Valid() bool {
	switch c {
	case ColorYellow, ColorBlue, ColorRed, ColorGreen, ColorPurple:
		return true
	}
	return false
}

// SyncStatus describes how a single highlight relates to the server copy.
type SyncStatus string

const (
	SyncSynced  SyncStatus = "synced"
	SyncPending SyncStatus = "pending"
	SyncFailed  SyncStatus = "failed"
	SyncOffline SyncStatus = "offline"
)

// PendingOp is the remote operation a highlight still owes the server.
type PendingOp string

const (
	OpNone   PendingOp = "none"
	OpCreate PendingOp = "create"
	OpUpdate PendingOp = "update"
	OpDelete PendingOp = "delete"
)

// EngineStatus is the aggregate sync state reported for an article.
type EngineStatus string

const (
	EngineIdle    EngineStatus = "idle"
	EngineSyncing EngineStatus = "syncing"
	EngineFailed  EngineStatus = "failed"
	EngineOffline EngineStatus = "offline"
)

// Highlight is a saved text selection on an article, together with the
// bookkeeping that lets it survive offline creation and later sync.
//
// ServerID is nil until the server has acknowledged a create. ClientID is
// assigned locally at creation time and never changes afterwards, so a
// highlight stays addressable across the create round-trip.
type Highlight struct {
	ServerID        *int64     `json:"server_id,omitempty"`
	ClientID        string     `json:"client_id"`
	ArticleURL      string     `json:"article_url"`
	HighlightedText string     `json:"highlighted_text"`
	CharacterStart  int        `json:"character_start"`
	CharacterEnd    int        `json:"character_end"`
	Color           Color      `json:"color"`
	Note            string     `json:"note,omitempty"`
	SyncStatus      SyncStatus `json:"sync_status"`
	PendingOp       PendingOp  `json:"pending_op"`
	Deleted         bool       `json:"deleted,omitempty"`
	LocalUpdatedAt  time.Time  `json:"local_updated_at"`
	LastError       string     `json:"last_error,omitempty"`
}

// StableID returns the identifier callers address this highlight by:
// the server id when one exists, the client id otherwise.
func (h *Highlight) StableID() string {
	if h.ServerID != nil {
		return "server:" + strconv.FormatInt(*h.ServerID, 10)
	}
	return "client:" + h.ClientID
}

// Pending reports whether the highlight still owes the server an operation.
func (h *Highlight) Pending() bool {
	return h.PendingOp != "" && h.PendingOp != OpNone
}

// Clone returns a deep copy of the highlight.
func (h *Highlight) Clone() *Highlight {
	c := *h
	if h.ServerID != nil {
		id := *h.ServerID
		c.ServerID = &id
	}
	return &c
}

// StoreVersion is the on-disk schema version of a highlight collection.
const StoreVersion = 1

// HighlightStore is the persisted highlight collection for one article.
type HighlightStore struct {
	Version    int          `json:"version"`
	ArticleURL string       `json:"article_url"`
	Highlights []*Highlight `json:"highlights"`
}

// NewHighlightStore returns an empty collection for the given article.
func NewHighlightStore(articleURL string) *HighlightStore {
	return &HighlightStore{
		Version:    StoreVersion,
		ArticleURL: articleURL,
		Highlights: []*Highlight{},
	}
}

// Find returns the highlight with the given stable id, or nil.
// Tombstoned highlights are not addressable.
func (s *HighlightStore) Find(stableID string) *Highlight {
	for _, h := range s.Highlights {
		if h.Deleted {
			continue
		}
		if h.StableID() == stableID {
			return h
		}
	}
	return nil
}

// FindClientID returns the highlight with the given client id, including
// tombstones, or nil.
func (s *HighlightStore) FindClientID(clientID string) *Highlight {
	for _, h := range s.Highlights {
		if h.ClientID == clientID {
			return h
		}
	}
	return nil
}

// Remove drops the highlight with the given client id from the collection.
// It reports whether a highlight was removed.
func (s *HighlightStore) Remove(clientID string) bool {
	for i, h := range s.Highlights {
		if h.ClientID == clientID {
			s.Highlights = append(s.Highlights[:i], s.Highlights[i+1:]...)
			return true
		}
	}
	return false
}

// Visible returns the highlights that should be rendered or exported,
// excluding tombstones awaiting a remote delete.
func (s *HighlightStore) Visible() []*Highlight {
	out := make([]*Highlight, 0, len(s.Highlights))
	for _, h := range s.Highlights {
		if !h.Deleted {
			out = append(out, h)
		}
	}
	return out
}

// PendingCount returns how many highlights still owe the server an operation.
func (s *HighlightStore) PendingCount() int {
	n := 0
	for _, h := range s.Highlights {
		if h.Pending() {
			n++
		}
	}
	return n
}

// ServerHighlight is the server's representation of a highlight. The server
// knows nothing about client ids or sync bookkeeping.
type ServerHighlight struct {
	ID              int64     `json:"id"`
	ArticleURL      string    `json:"article_url"`
	HighlightedText string    `json:"highlighted_text"`
	CharacterStart  int       `json:"character_start"`
	CharacterEnd    int       `json:"character_end"`
	Color           Color     `json:"color"`
	Note            string    `json:"note,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

// Selection is the input for creating a highlight from a text selection.
type Selection struct {
	ArticleURL      string `json:"article_url"`
	HighlightedText string `json:"highlighted_text"`
	CharacterStart  int    `json:"character_start"`
	CharacterEnd    int    `json:"character_end"`
	Color           Color  `json:"color,omitempty"`
	Note            string `json:"note,omitempty"`
}

// HighlightPatch carries the updatable highlight fields. Nil fields are
// left untouched.
type HighlightPatch struct {
	Note            *string `json:"note,omitempty"`
	Color           *Color  `json:"color,omitempty"`
	HighlightedText *string `json:"highlighted_text,omitempty"`
	CharacterStart  *int    `json:"character_start,omitempty"`
	CharacterEnd    *int    `json:"character_end,omitempty"`
}

// HighlightState is the snapshot pushed to readers of an article: the
// renderable highlights plus the aggregate sync status.
type HighlightState struct {
	ArticleURL string       `json:"article_url"`
	Highlights []*Highlight `json:"highlights"`
	SyncStatus EngineStatus `json:"sync_status"`
}

// AnnotatedArticle summarizes one article that has local highlights.
type AnnotatedArticle struct {
	ArticleURL     string `json:"article_url"`
	HighlightCount int    `json:"highlight_count"`
	PendingCount   int    `json:"pending_count"`
}

// StoreRepository persists highlight collections, one per article URL.
type StoreRepository interface {
	Load(ctx context.Context, articleURL string) (*HighlightStore, error)
	Save(ctx context.Context, store *HighlightStore) error
	Delete(ctx context.Context, articleURL string) error
	ListArticleURLs(ctx context.Context) ([]string, error)
}

// HighlightAPI is the remote highlight service the sync engine talks to.
type HighlightAPI interface {
	Create(ctx context.Context, h *ServerHighlight) (*ServerHighlight, error)
	Update(ctx context.Context, serverID int64, patch *HighlightPatch) (*ServerHighlight, error)
	Delete(ctx context.Context, serverID int64) error
	List(ctx context.Context, articleURL string) ([]*ServerHighlight, error)
}

// SyncEngine flushes pending highlight operations for an article.
type SyncEngine interface {
	Sync(ctx context.Context, articleURL string)
}

// HighlightService defines the use-case operations for highlights.
type HighlightService interface {
	Open(ctx context.Context, articleURL string) (*HighlightState, error)
	Create(ctx context.Context, sel *Selection) (*Highlight, error)
	Update(ctx context.Context, articleURL, stableID string, patch *HighlightPatch) (*Highlight, error)
	Delete(ctx context.Context, articleURL, stableID string) error
	Retry(ctx context.Context, articleURL string) *HighlightState
	State(ctx context.Context, articleURL string) (*HighlightState, error)
	AnnotatedArticles(ctx context.Context) ([]*AnnotatedArticle, error)
}

// HighlightExporter renders an article's highlights as a document.
type HighlightExporter interface {
	ExportMarkdown(ctx context.Context, articleURL string) (string, error)
}
