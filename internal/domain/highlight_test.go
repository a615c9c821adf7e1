package domain

import (
	"testing"
	"time"
)

func TestHighlight_StableID(t *testing.T) {
	serverID := int64(42)

	tests := []struct {
		name      string
		highlight Highlight
		want      string
	}{
		{
			name: "Synced highlight uses server id",
			highlight: Highlight{
				ServerID: &serverID,
				ClientID: "c0ffee",
			},
			want: "server:42",
		},
		{
			name: "Unsynced highlight falls back to client id",
			highlight: Highlight{
				ClientID: "c0ffee",
			},
			want: "client:c0ffee",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.highlight.StableID(); got != tt.want {
				t.Errorf("StableID() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHighlight_StableID_SwitchesAfterCreateAck(t *testing.T) {
	h := &Highlight{ClientID: "abc", SyncStatus: SyncPending, PendingOp: OpCreate}

	before := h.StableID()
	if before != "client:abc" {
		t.Fatalf("StableID() before ack = %v, want client:abc", before)
	}

	id := int64(7)
	h.ServerID = &id
	h.SyncStatus = SyncSynced
	h.PendingOp = OpNone

	if got := h.StableID(); got != "server:7" {
		t.Errorf("StableID() after ack = %v, want server:7", got)
	}
	if h.ClientID != "abc" {
		t.Errorf("ClientID changed to %v after ack, want abc", h.ClientID)
	}
}

func TestHighlight_Pending(t *testing.T) {
	tests := []struct {
		name string
		op   PendingOp
		want bool
	}{
		{"none", OpNone, false},
		{"zero value", PendingOp(""), false},
		{"create", OpCreate, true},
		{"update", OpUpdate, true},
		{"delete", OpDelete, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Highlight{PendingOp: tt.op}
			if got := h.Pending(); got != tt.want {
				t.Errorf("Pending() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHighlight_Clone(t *testing.T) {
	id := int64(9)
	h := &Highlight{
		ServerID:        &id,
		ClientID:        "abc",
		ArticleURL:      "https://example.com/a",
		HighlightedText: "some text",
		Color:           ColorBlue,
		SyncStatus:      SyncSynced,
		PendingOp:       OpNone,
		LocalUpdatedAt:  time.Now(),
	}

	c := h.Clone()
	*c.ServerID = 99
	c.Note = "changed"

	if *h.ServerID != 9 {
		t.Errorf("Clone shares ServerID pointer: original changed to %d", *h.ServerID)
	}
	if h.Note != "" {
		t.Errorf("Clone shares struct state: original note = %q", h.Note)
	}
}

func TestColor_Valid(t *testing.T) {
	valid := []Color{ColorYellow, ColorBlue, ColorRed, ColorGreen, ColorPurple}
	for _, c := range valid {
		if !c.Valid() {
			t.Errorf("Color %q should be valid", c)
		}
	}

	invalid := []Color{"", "orange", "YELLOW", "cyan"}
	for _, c := range invalid {
		if c.Valid() {
			t.Errorf("Color %q should be invalid", c)
		}
	}
}

func TestHighlightStore_Find(t *testing.T) {
	serverID := int64(3)
	store := &HighlightStore{
		Version:    StoreVersion,
		ArticleURL: "https://example.com/a",
		Highlights: []*Highlight{
			{ClientID: "c1"},
			{ClientID: "c2", ServerID: &serverID},
			{ClientID: "c3", Deleted: true, PendingOp: OpDelete},
		},
	}

	if got := store.Find("client:c1"); got == nil || got.ClientID != "c1" {
		t.Errorf("Find(client:c1) = %v, want highlight c1", got)
	}
	if got := store.Find("server:3"); got == nil || got.ClientID != "c2" {
		t.Errorf("Find(server:3) = %v, want highlight c2", got)
	}
	if got := store.Find("client:c3"); got != nil {
		t.Errorf("Find on tombstone returned %v, want nil", got)
	}
	if got := store.Find("server:999"); got != nil {
		t.Errorf("Find(server:999) = %v, want nil", got)
	}
}

func TestHighlightStore_FindClientID_IncludesTombstones(t *testing.T) {
	store := &HighlightStore{
		Highlights: []*Highlight{
			{ClientID: "c1", Deleted: true, PendingOp: OpDelete},
		},
	}

	if got := store.FindClientID("c1"); got == nil {
		t.Error("FindClientID(c1) = nil, want tombstoned highlight")
	}
}

func TestHighlightStore_Remove(t *testing.T) {
	store := &HighlightStore{
		Highlights: []*Highlight{
			{ClientID: "c1"},
			{ClientID: "c2"},
			{ClientID: "c3"},
		},
	}

	if !store.Remove("c2") {
		t.Fatal("Remove(c2) = false, want true")
	}
	if len(store.Highlights) != 2 {
		t.Fatalf("len(Highlights) after remove = %d, want 2", len(store.Highlights))
	}
	if store.Highlights[0].ClientID != "c1" || store.Highlights[1].ClientID != "c3" {
		t.Error("Remove did not preserve order of remaining highlights")
	}
	if store.Remove("missing") {
		t.Error("Remove(missing) = true, want false")
	}
}

func TestHighlightStore_Visible(t *testing.T) {
	store := &HighlightStore{
		Highlights: []*Highlight{
			{ClientID: "c1"},
			{ClientID: "c2", Deleted: true, PendingOp: OpDelete},
			{ClientID: "c3", SyncStatus: SyncFailed, PendingOp: OpUpdate},
		},
	}

	visible := store.Visible()
	if len(visible) != 2 {
		t.Fatalf("len(Visible()) = %d, want 2", len(visible))
	}
	for _, h := range visible {
		if h.Deleted {
			t.Errorf("Visible() returned tombstone %v", h.ClientID)
		}
	}
}

func TestHighlightStore_PendingCount(t *testing.T) {
	store := &HighlightStore{
		Highlights: []*Highlight{
			{ClientID: "c1", PendingOp: OpCreate},
			{ClientID: "c2", PendingOp: OpNone},
			{ClientID: "c3", PendingOp: OpDelete, Deleted: true},
		},
	}

	if got := store.PendingCount(); got != 2 {
		t.Errorf("PendingCount() = %d, want 2", got)
	}
}
