package service

import (
	"reflect"
	"testing"
	"time"

	"article-reader/internal/domain"
)

func serverRow(id int64, text string, start, end int) *domain.ServerHighlight {
	return &domain.ServerHighlight{
		ID:              id,
		ArticleURL:      testArticle,
		HighlightedText: text,
		CharacterStart:  start,
		CharacterEnd:    end,
		Color:           domain.ColorYellow,
		CreatedAt:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC),
	}
}

func syncedLocal(id int64, clientID, text string, start, end int) *domain.Highlight {
	return &domain.Highlight{
		ServerID:        &id,
		ClientID:        clientID,
		ArticleURL:      testArticle,
		HighlightedText: text,
		CharacterStart:  start,
		CharacterEnd:    end,
		Color:           domain.ColorYellow,
		SyncStatus:      domain.SyncSynced,
		PendingOp:       domain.OpNone,
		LocalUpdatedAt:  time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC),
	}
}

func TestMergeHighlights_AdoptsUnknownServerRows(t *testing.T) {
	server := []*domain.ServerHighlight{
		serverRow(2, "second", 40, 50),
		serverRow(1, "first", 10, 20),
	}

	merged := MergeHighlights(testArticle, nil, server)

	if len(merged) != 2 {
		t.Fatalf("merged %d highlights, want 2", len(merged))
	}
	if merged[0].HighlightedText != "first" || merged[1].HighlightedText != "second" {
		t.Errorf("order = %q, %q, want position order", merged[0].HighlightedText, merged[1].HighlightedText)
	}
	for _, h := range merged {
		if h.SyncStatus != domain.SyncSynced || h.PendingOp != domain.OpNone {
			t.Errorf("adopted row %s state = %s/%s, want synced/none", h.StableID(), h.SyncStatus, h.PendingOp)
		}
		if h.ClientID == "" {
			t.Errorf("adopted row %s missing client id", h.StableID())
		}
		if h.ArticleURL != testArticle {
			t.Errorf("adopted row article = %q, want %q", h.ArticleURL, testArticle)
		}
	}
}

func TestMergeHighlights_AdoptedClientIDIsDeterministic(t *testing.T) {
	server := []*domain.ServerHighlight{serverRow(7, "text", 0, 4)}

	first := MergeHighlights(testArticle, nil, server)
	second := MergeHighlights(testArticle, nil, server)

	if first[0].ClientID != second[0].ClientID {
		t.Errorf("client ids differ across runs: %q vs %q", first[0].ClientID, second[0].ClientID)
	}
	if other := MergeHighlights("https://example.com/other", nil, server); other[0].ClientID == first[0].ClientID {
		t.Error("client id should depend on the article url")
	}
}

func TestMergeHighlights_PendingLocalWinsVerbatim(t *testing.T) {
	id := int64(1)
	local := []*domain.Highlight{{
		ServerID:        &id,
		ClientID:        "c1",
		ArticleURL:      testArticle,
		HighlightedText: "edited locally",
		CharacterStart:  10,
		CharacterEnd:    24,
		Color:           domain.ColorRed,
		Note:            "my note",
		SyncStatus:      domain.SyncPending,
		PendingOp:       domain.OpUpdate,
		LocalUpdatedAt:  time.Now().UTC(),
	}}
	server := []*domain.ServerHighlight{serverRow(1, "server copy", 10, 21)}

	merged := MergeHighlights(testArticle, local, server)

	if len(merged) != 1 {
		t.Fatalf("merged %d highlights, want 1", len(merged))
	}
	got := merged[0]
	if got.HighlightedText != "edited locally" || got.Note != "my note" || got.Color != domain.ColorRed {
		t.Errorf("pending local content clobbered by server copy: %+v", got)
	}
	if got.PendingOp != domain.OpUpdate || got.SyncStatus != domain.SyncPending {
		t.Errorf("pending bookkeeping lost: %s/%s", got.SyncStatus, got.PendingOp)
	}
}

func TestMergeHighlights_PendingCreateKeptNextToServerRows(t *testing.T) {
	local := []*domain.Highlight{{
		ClientID:        "c1",
		ArticleURL:      testArticle,
		HighlightedText: "not yet created",
		CharacterStart:  10,
		CharacterEnd:    25,
		Color:           domain.ColorYellow,
		SyncStatus:      domain.SyncPending,
		PendingOp:       domain.OpCreate,
		LocalUpdatedAt:  time.Now().UTC(),
	}}
	server := []*domain.ServerHighlight{serverRow(1, "from server", 40, 51)}

	merged := MergeHighlights(testArticle, local, server)

	if len(merged) != 2 {
		t.Fatalf("merged %d highlights, want pending create plus adopted row", len(merged))
	}
	pending := merged[0]
	if pending.ClientID != "c1" || pending.PendingOp != domain.OpCreate {
		t.Errorf("pending create not kept verbatim: %+v", pending)
	}
	if pending.ServerID != nil {
		t.Errorf("pending create gained a server id in merge: %v", *pending.ServerID)
	}
	if merged[1].StableID() != "server:1" {
		t.Errorf("adopted row = %q, want server:1", merged[1].StableID())
	}
}

func TestMergeHighlights_SyncedLocalFollowsServer(t *testing.T) {
	local := []*domain.Highlight{syncedLocal(1, "c1", "old text", 10, 18)}
	server := []*domain.ServerHighlight{serverRow(1, "fresh text", 12, 22)}

	merged := MergeHighlights(testArticle, local, server)

	if len(merged) != 1 {
		t.Fatalf("merged %d highlights, want 1", len(merged))
	}
	got := merged[0]
	if got.HighlightedText != "fresh text" || got.CharacterStart != 12 {
		t.Errorf("synced record should take server content, got %+v", got)
	}
	if got.ClientID != "c1" {
		t.Errorf("ClientID = %q, want c1 preserved across refresh", got.ClientID)
	}
}

func TestMergeHighlights_RemovesOrphanedSyncedRecords(t *testing.T) {
	local := []*domain.Highlight{
		syncedLocal(1, "c1", "kept", 0, 4),
		syncedLocal(2, "c2", "deleted elsewhere", 10, 27),
	}
	server := []*domain.ServerHighlight{serverRow(1, "kept", 0, 4)}

	merged := MergeHighlights(testArticle, local, server)

	if len(merged) != 1 {
		t.Fatalf("merged %d highlights, want orphan removed", len(merged))
	}
	if merged[0].ClientID != "c1" {
		t.Errorf("survivor = %q, want c1", merged[0].ClientID)
	}
}

func TestMergeHighlights_KeepsPendingTombstone(t *testing.T) {
	id := int64(1)
	local := []*domain.Highlight{{
		ServerID:       &id,
		ClientID:       "c1",
		ArticleURL:     testArticle,
		Deleted:        true,
		SyncStatus:     domain.SyncPending,
		PendingOp:      domain.OpDelete,
		LocalUpdatedAt: time.Now().UTC(),
	}}
	server := []*domain.ServerHighlight{serverRow(1, "still on server", 0, 15)}

	merged := MergeHighlights(testArticle, local, server)

	if len(merged) != 1 {
		t.Fatalf("merged %d highlights, want 1", len(merged))
	}
	got := merged[0]
	if !got.Deleted || got.PendingOp != domain.OpDelete {
		t.Errorf("tombstone lost in merge: %+v", got)
	}
	// The server row is claimed by the tombstone, not resurrected as a
	// second visible highlight.
	for _, h := range merged {
		if !h.Deleted {
			t.Errorf("server copy of a pending delete resurrected: %+v", h)
		}
	}
}

func TestMergeHighlights_DropsUnreconcilableRecords(t *testing.T) {
	// No server id and nothing pending: the record cannot be matched to
	// anything and owes no sync work.
	local := []*domain.Highlight{{
		ClientID:        "c1",
		ArticleURL:      testArticle,
		HighlightedText: "limbo",
		SyncStatus:      domain.SyncSynced,
		PendingOp:       domain.OpNone,
	}}

	merged := MergeHighlights(testArticle, local, nil)

	if len(merged) != 0 {
		t.Errorf("merged %d highlights, want unreconcilable record dropped", len(merged))
	}
}

func TestMergeHighlights_Idempotent(t *testing.T) {
	id := int64(3)
	local := []*domain.Highlight{
		{
			ClientID:        "c-pending",
			ArticleURL:      testArticle,
			HighlightedText: "pending",
			CharacterStart:  100,
			CharacterEnd:    107,
			Color:           domain.ColorGreen,
			SyncStatus:      domain.SyncPending,
			PendingOp:       domain.OpCreate,
			LocalUpdatedAt:  time.Now().UTC(),
		},
		syncedLocal(id, "c-synced", "synced", 0, 6),
	}
	server := []*domain.ServerHighlight{
		serverRow(3, "synced", 0, 6),
		serverRow(9, "from server", 40, 51),
	}

	once := MergeHighlights(testArticle, local, server)
	twice := MergeHighlights(testArticle, once, server)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge is not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMergeHighlights_DoesNotMutateInputs(t *testing.T) {
	id := int64(1)
	local := []*domain.Highlight{{
		ServerID:        &id,
		ClientID:        "c1",
		ArticleURL:      testArticle,
		HighlightedText: "original",
		SyncStatus:      domain.SyncSynced,
		PendingOp:       domain.OpNone,
	}}
	server := []*domain.ServerHighlight{serverRow(1, "changed on server", 0, 17)}

	merged := MergeHighlights(testArticle, local, server)

	if local[0].HighlightedText != "original" {
		t.Errorf("input slice mutated: %q", local[0].HighlightedText)
	}
	if merged[0] == local[0] {
		t.Error("merge returned the input pointer instead of a copy")
	}
}

func TestMergeHighlights_CanonicalOrder(t *testing.T) {
	server := []*domain.ServerHighlight{
		serverRow(1, "bbb", 50, 53),
		serverRow(2, "aaa", 10, 13),
		serverRow(3, "mid", 10, 20),
	}

	merged := MergeHighlights(testArticle, nil, server)

	if len(merged) != 3 {
		t.Fatalf("merged %d highlights, want 3", len(merged))
	}
	if merged[0].CharacterStart != 10 || merged[0].CharacterEnd != 13 {
		t.Errorf("first = (%d,%d), want (10,13)", merged[0].CharacterStart, merged[0].CharacterEnd)
	}
	if merged[1].CharacterStart != 10 || merged[1].CharacterEnd != 20 {
		t.Errorf("second = (%d,%d), want (10,20)", merged[1].CharacterStart, merged[1].CharacterEnd)
	}
	if merged[2].CharacterStart != 50 {
		t.Errorf("third start = %d, want 50", merged[2].CharacterStart)
	}
}
