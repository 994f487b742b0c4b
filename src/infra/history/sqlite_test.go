package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cadenzadl/cadenza/src/features/downloading"
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()
	store, err := NewSqliteStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := downloading.HistoryEntry{
		ID:              "id-1",
		Artist:          "A",
		Album:           "First",
		Status:          downloading.StatusComplete,
		CompletedTracks: 10,
		TotalTracks:     10,
		FinishedAt:      time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	newer := downloading.HistoryEntry{
		ID:          "id-2",
		Artist:      "A",
		Album:       "Second",
		Status:      downloading.StatusError,
		TotalTracks: 8,
		Error:       "no release found",
		FinishedAt:  time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.Record(ctx, older); err != nil {
		t.Fatal(err)
	}
	if err := store.Record(ctx, newer); err != nil {
		t.Fatal(err)
	}

	entries, err := store.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "id-2" {
		t.Errorf("expected newest entry first, got %s", entries[0].ID)
	}
	if entries[0].Status != downloading.StatusError || entries[0].Error != "no release found" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
	if !entries[1].FinishedAt.Equal(older.FinishedAt) {
		t.Errorf("expected finished_at %v, got %v", older.FinishedAt, entries[1].FinishedAt)
	}
}

func TestList_RespectsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		entry := downloading.HistoryEntry{
			ID:         string(rune('a' + i)),
			Artist:     "A",
			Album:      "Album",
			Status:     downloading.StatusComplete,
			FinishedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}
		if err := store.Record(ctx, entry); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := store.List(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 entries, got %d", len(entries))
	}
}

func TestRecord_ReplacesSameID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := downloading.HistoryEntry{
		ID: "id-1", Artist: "A", Album: "Album",
		Status: downloading.StatusError, FinishedAt: time.Now(),
	}
	if err := store.Record(ctx, entry); err != nil {
		t.Fatal(err)
	}
	entry.Status = downloading.StatusComplete
	if err := store.Record(ctx, entry); err != nil {
		t.Fatal(err)
	}

	entries, err := store.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after replace, got %d", len(entries))
	}
	if entries[0].Status != downloading.StatusComplete {
		t.Errorf("expected replaced status, got %s", entries[0].Status)
	}
}
