package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"article-reader/internal/domain"
	apperrors "article-reader/pkg/errors"
)

// SupabaseHighlightAPI implements domain.HighlightAPI on a Supabase
// highlights table, for deployments that sync straight to Supabase instead
// of running the reader backend.
type SupabaseHighlightAPI struct {
	client   *supabase.Client
	probeURL string
	probe    *http.Client
	logger   domain.Logger
}

// NewSupabaseHighlightAPI creates a Supabase-backed highlight API.
func NewSupabaseHighlightAPI(supabaseURL, supabaseKey string, logger domain.Logger) (*SupabaseHighlightAPI, error) {
	if supabaseURL == "" || supabaseKey == "" {
		return nil, fmt.Errorf("supabase URL and key must be provided")
	}

	client, err := supabase.NewClient(supabaseURL, supabaseKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &SupabaseHighlightAPI{
		client:   client,
		probeURL: strings.TrimRight(supabaseURL, "/") + "/rest/v1/",
		probe:    &http.Client{Timeout: 3 * time.Second},
		logger:   logger,
	}, nil
}

// Create inserts a highlight row and returns the stored representation.
func (a *SupabaseHighlightAPI) Create(ctx context.Context, h *domain.ServerHighlight) (*domain.ServerHighlight, error) {
	row := map[string]interface{}{
		"article_url":      h.ArticleURL,
		"highlighted_text": sanitizeText(h.HighlightedText),
		"character_start":  h.CharacterStart,
		"character_end":    h.CharacterEnd,
		"color":            string(h.Color),
	}
	if h.Note != "" {
		row["note"] = sanitizeText(h.Note)
	}

	// Request "representation" so PostgREST returns the inserted row.
	data, _, err := a.client.From("highlights").
		Insert(row, false, "", "representation", "").
		Execute()
	if err != nil {
		return nil, apperrors.NewRemoteError("failed to create highlight", err)
	}

	rows, err := decodeRows(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewRemoteError("failed to create highlight", fmt.Errorf("empty response"))
	}
	return mapToServerHighlight(rows[0]), nil
}

// Update patches the row with the given id and returns the stored copy.
func (a *SupabaseHighlightAPI) Update(ctx context.Context, serverID int64, patch *domain.HighlightPatch) (*domain.ServerHighlight, error) {
	row := map[string]interface{}{
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	if patch.Note != nil {
		row["note"] = sanitizeText(*patch.Note)
	}
	if patch.Color != nil {
		row["color"] = string(*patch.Color)
	}
	if patch.HighlightedText != nil {
		row["highlighted_text"] = sanitizeText(*patch.HighlightedText)
	}
	if patch.CharacterStart != nil {
		row["character_start"] = *patch.CharacterStart
	}
	if patch.CharacterEnd != nil {
		row["character_end"] = *patch.CharacterEnd
	}

	data, _, err := a.client.From("highlights").
		Update(row, "representation", "").
		Eq("id", strconv.FormatInt(serverID, 10)).
		Execute()
	if err != nil {
		return nil, apperrors.NewRemoteError("failed to update highlight", err)
	}

	rows, err := decodeRows(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNotFoundError("update highlight: not found on server")
	}
	return mapToServerHighlight(rows[0]), nil
}

// Delete removes the row with the given id. Deleting an id the table no
// longer has is not an error.
func (a *SupabaseHighlightAPI) Delete(ctx context.Context, serverID int64) error {
	_, _, err := a.client.From("highlights").
		Delete("", "").
		Eq("id", strconv.FormatInt(serverID, 10)).
		Execute()
	if err != nil {
		return apperrors.NewRemoteError("failed to delete highlight", err)
	}
	return nil
}

// List returns the highlights stored for articleURL, newest first.
func (a *SupabaseHighlightAPI) List(ctx context.Context, articleURL string) ([]*domain.ServerHighlight, error) {
	data, _, err := a.client.From("highlights").
		Select("*", "", false).
		Eq("article_url", articleURL).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, apperrors.NewRemoteError("failed to list highlights", err)
	}

	rows, err := decodeRows(data)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.ServerHighlight, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapToServerHighlight(row))
	}
	return out, nil
}

// Online reports whether the Supabase REST endpoint answers. Any HTTP
// response counts as reachable.
func (a *SupabaseHighlightAPI) Online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, a.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := a.probe.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

func decodeRows(data []byte) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, apperrors.NewRemoteError("failed to unmarshal response", err)
	}
	return rows, nil
}

func mapToServerHighlight(data map[string]interface{}) *domain.ServerHighlight {
	h := &domain.ServerHighlight{
		ID:              getInt64(data, "id"),
		ArticleURL:      getString(data, "article_url"),
		HighlightedText: getString(data, "highlighted_text"),
		CharacterStart:  int(getInt64(data, "character_start")),
		CharacterEnd:    int(getInt64(data, "character_end")),
		Color:           domain.Color(getString(data, "color")),
		Note:            getString(data, "note"),
	}

	if createdAt := getString(data, "created_at"); createdAt != "" {
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			h.CreatedAt = t
		} else if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			h.CreatedAt = t
		}
	}
	if updatedAt := getString(data, "updated_at"); updatedAt != "" {
		if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			h.UpdatedAt = t
		} else if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			h.UpdatedAt = t
		}
	}

	return h
}

// Helper functions for type conversion
func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok && val != nil {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func getInt64(data map[string]interface{}, key string) int64 {
	if val, ok := data[key]; ok && val != nil {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

var reControl = regexp.MustCompile(`[\x00]`)

// sanitizeText removes characters that PostgreSQL rejects in text fields (notably NUL bytes).
func sanitizeText(s string) string {
	if s == "" {
		return s
	}
	// Remove any NUL bytes.
	s = reControl.ReplaceAllString(s, "")
	// Also remove escaped unicode NUL sequences that can appear in some extracted content.
	s = strings.ReplaceAll(s, "\\u0000", "")
	s = strings.ReplaceAll(s, "\u0000", "")
	return s
}
