package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"article-reader/internal/domain"
	apperrors "article-reader/pkg/errors"
)

// RESTHighlightAPI implements domain.HighlightAPI against the reader
// backend's REST endpoints. It also implements domain.Connectivity via a
// cheap health probe, so the sync engine can tell an unreachable service
// apart from one that rejected an operation.
type RESTHighlightAPI struct {
	baseURL string
	client  *http.Client
	logger  domain.Logger
}

// NewRESTHighlightAPI creates a client for the highlight endpoints rooted
// at baseURL.
func NewRESTHighlightAPI(baseURL string, logger domain.Logger) *RESTHighlightAPI {
	return &RESTHighlightAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// restHighlight is the wire shape of a server highlight. Timestamps arrive
// as strings because the backend emits naive ISO 8601 without a zone.
type restHighlight struct {
	ID              int64   `json:"id"`
	ArticleURL      string  `json:"article_url"`
	HighlightedText string  `json:"highlighted_text"`
	CharacterStart  int     `json:"character_start"`
	CharacterEnd    int     `json:"character_end"`
	Color           string  `json:"color"`
	Note            *string `json:"note"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func (w *restHighlight) toDomain() *domain.ServerHighlight {
	h := &domain.ServerHighlight{
		ID:              w.ID,
		ArticleURL:      w.ArticleURL,
		HighlightedText: w.HighlightedText,
		CharacterStart:  w.CharacterStart,
		CharacterEnd:    w.CharacterEnd,
		Color:           domain.Color(w.Color),
		CreatedAt:       parseServerTime(w.CreatedAt),
		UpdatedAt:       parseServerTime(w.UpdatedAt),
	}
	if w.Note != nil {
		h.Note = *w.Note
	}
	return h
}

// parseServerTime accepts both RFC 3339 and zone-less ISO 8601 timestamps.
func parseServerTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05.999999", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// Create posts a new highlight and returns the server's copy with its id.
func (a *RESTHighlightAPI) Create(ctx context.Context, h *domain.ServerHighlight) (*domain.ServerHighlight, error) {
	payload := map[string]interface{}{
		"article_url":      h.ArticleURL,
		"highlighted_text": h.HighlightedText,
		"character_start":  h.CharacterStart,
		"character_end":    h.CharacterEnd,
		"color":            string(h.Color),
	}
	if h.Note != "" {
		payload["note"] = h.Note
	}

	resp, err := a.do(ctx, http.MethodPost, a.baseURL+"/api/highlights", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, a.remoteError(resp, "create highlight")
	}

	var row restHighlight
	if err := json.NewDecoder(resp.Body).Decode(&row); err != nil {
		return nil, apperrors.NewRemoteError("decode created highlight", err)
	}
	return row.toDomain(), nil
}

// Update patches the highlight with the given server id.
func (a *RESTHighlightAPI) Update(ctx context.Context, serverID int64, patch *domain.HighlightPatch) (*domain.ServerHighlight, error) {
	endpoint := a.baseURL + "/api/highlights/" + strconv.FormatInt(serverID, 10)
	resp, err := a.do(ctx, http.MethodPatch, endpoint, patch)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, a.remoteError(resp, "update highlight")
	}

	var row restHighlight
	if err := json.NewDecoder(resp.Body).Decode(&row); err != nil {
		return nil, apperrors.NewRemoteError("decode updated highlight", err)
	}
	return row.toDomain(), nil
}

// Delete removes the highlight with the given server id. A highlight the
// server no longer knows counts as deleted.
func (a *RESTHighlightAPI) Delete(ctx context.Context, serverID int64) error {
	endpoint := a.baseURL + "/api/highlights/" + strconv.FormatInt(serverID, 10)
	resp, err := a.do(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		a.logger.Debug("highlight already absent on server", "server_id", serverID)
		return nil
	}
	if resp.StatusCode >= 400 {
		return a.remoteError(resp, "delete highlight")
	}
	return nil
}

// List returns the server's highlights for articleURL.
func (a *RESTHighlightAPI) List(ctx context.Context, articleURL string) ([]*domain.ServerHighlight, error) {
	endpoint := a.baseURL + "/api/highlights?article_url=" + url.QueryEscape(articleURL)
	resp, err := a.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, a.remoteError(resp, "list highlights")
	}

	var rows []restHighlight
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, apperrors.NewRemoteError("decode highlight list", err)
	}

	out := make([]*domain.ServerHighlight, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// Online reports whether the backend answers its health endpoint. Any HTTP
// response counts as reachable; only a transport failure means offline.
func (a *RESTHighlightAPI) Online(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, a.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
	return true
}

// do issues a JSON request. Transport-level failures come back as network
// errors so callers can classify them.
func (a *RESTHighlightAPI) do(ctx context.Context, method, endpoint string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, apperrors.NewInternalError("encode request", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, apperrors.NewInternalError("build request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("highlight service unreachable", err)
	}
	return resp, nil
}

func (a *RESTHighlightAPI) remoteError(resp *http.Response, op string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode == http.StatusNotFound {
		return apperrors.NewNotFoundError(op + ": not found on server")
	}
	appErr := apperrors.NewRemoteError(op+" failed", fmt.Errorf("status %d", resp.StatusCode))
	appErr.Details = strings.TrimSpace(string(body))
	return appErr
}
