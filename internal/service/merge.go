package service

import (
	"sort"
	"strconv"

	"github.com/google/uuid"

	"article-reader/internal/domain"
)

// MergeHighlights reconciles a local highlight collection with the server's
// list for the same article and returns the new collection. It is a pure
// function: inputs are never mutated, and the same inputs always produce
// the same output, so re-running a merge is harmless.
//
// The rules, in order:
//   - a local highlight with a pending operation wins over the server copy
//   - a local synced highlight is replaced by the server copy, keeping its
//     client id
//   - a local synced highlight whose server copy is gone was deleted
//     elsewhere and is dropped
//   - a server highlight with no local counterpart is adopted as synced
func MergeHighlights(articleURL string, local []*domain.Highlight, server []*domain.ServerHighlight) []*domain.Highlight {
	serverByID := make(map[int64]*domain.ServerHighlight, len(server))
	for _, sh := range server {
		serverByID[sh.ID] = sh
	}

	out := make([]*domain.Highlight, 0, len(local)+len(server))
	claimed := make(map[int64]bool, len(local))

	for _, lh := range local {
		switch {
		case lh.Pending():
			if lh.ServerID != nil {
				claimed[*lh.ServerID] = true
			}
			out = append(out, lh.Clone())
		case lh.ServerID != nil:
			sh, ok := serverByID[*lh.ServerID]
			if !ok {
				continue
			}
			claimed[*lh.ServerID] = true
			out = append(out, adoptServerHighlight(articleURL, sh, lh.ClientID))
		default:
			// Neither a server identity nor a pending operation: nothing
			// ties this record to anything, so it cannot be reconciled.
			continue
		}
	}

	for _, sh := range server {
		if claimed[sh.ID] {
			continue
		}
		out = append(out, adoptServerHighlight(articleURL, sh, adoptedClientID(articleURL, sh.ID)))
	}

	sortHighlights(out)
	return out
}

// adoptServerHighlight converts a server copy into a local synced highlight
// under the given client id.
func adoptServerHighlight(articleURL string, sh *domain.ServerHighlight, clientID string) *domain.Highlight {
	id := sh.ID
	color := sh.Color
	if !color.Valid() {
		color = domain.DefaultColor
	}
	ts := sh.UpdatedAt
	if ts.IsZero() {
		ts = sh.CreatedAt
	}
	return &domain.Highlight{
		ServerID:        &id,
		ClientID:        clientID,
		ArticleURL:      articleURL,
		HighlightedText: sh.HighlightedText,
		CharacterStart:  sh.CharacterStart,
		CharacterEnd:    sh.CharacterEnd,
		Color:           color,
		Note:            sh.Note,
		SyncStatus:      domain.SyncSynced,
		PendingOp:       domain.OpNone,
		LocalUpdatedAt:  ts,
	}
}

// adoptedClientID derives the client id for a server highlight adopted
// without a local counterpart. The id is a name-based UUID, so adopting the
// same server highlight twice yields the same client id and keeps the merge
// deterministic.
func adoptedClientID(articleURL string, serverID int64) string {
	name := articleURL + "#highlight-" + strconv.FormatInt(serverID, 10)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// sortHighlights orders a collection by position in the article, breaking
// ties by stable id.
func sortHighlights(hs []*domain.Highlight) {
	sort.SliceStable(hs, func(i, j int) bool {
		a, b := hs[i], hs[j]
		if a.CharacterStart != b.CharacterStart {
			return a.CharacterStart < b.CharacterStart
		}
		if a.CharacterEnd != b.CharacterEnd {
			return a.CharacterEnd < b.CharacterEnd
		}
		return a.StableID() < b.StableID()
	})
}
