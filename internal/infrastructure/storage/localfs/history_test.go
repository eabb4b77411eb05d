package localfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sahajseva/seva-gateway/internal/core/domain"
)

func newTestStore(t *testing.T, limit int) *HistoryStore {
	t.Helper()
	store, err := NewHistoryStore(t.TempDir(), limit, nil)
	if err != nil {
		t.Fatalf("NewHistoryStore: %v", err)
	}
	return store
}

func entryN(n int) domain.HistoryEntry {
	return domain.HistoryEntry{
		ID:              fmt.Sprintf("id-%d", n),
		Type:            domain.HistoryScheme,
		Title:           fmt.Sprintf("entry %d", n),
		TimestampMillis: int64(n),
	}
}

func TestPrependOrdersNewestFirst(t *testing.T) {
	store := newTestStore(t, 10)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := store.Prepend(ctx, entryN(i)); err != nil {
			t.Fatalf("Prepend: %v", err)
		}
	}

	got, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ID != "id-3" || got[2].ID != "id-1" {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestPrependEvictsOldestAtCap(t *testing.T) {
	store := newTestStore(t, domain.DefaultHistoryLimit)
	ctx := context.Background()

	for i := 1; i <= domain.DefaultHistoryLimit+1; i++ {
		if err := store.Prepend(ctx, entryN(i)); err != nil {
			t.Fatalf("Prepend: %v", err)
		}
	}

	got, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != domain.DefaultHistoryLimit {
		t.Fatalf("len = %d, want %d", len(got), domain.DefaultHistoryLimit)
	}
	for _, e := range got {
		if e.ID == "id-1" {
			t.Fatal("oldest entry survived eviction")
		}
	}
	if got[0].ID != fmt.Sprintf("id-%d", domain.DefaultHistoryLimit+1) {
		t.Fatalf("newest entry not first: %q", got[0].ID)
	}
}

func TestListMalformedFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, historyFile), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	store, err := NewHistoryStore(dir, 10, nil)
	if err != nil {
		t.Fatalf("NewHistoryStore: %v", err)
	}
	got, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty log, got %v", got)
	}
}

func TestClearEmptiesLog(t *testing.T) {
	store := newTestStore(t, 10)
	ctx := context.Background()

	if err := store.Prepend(ctx, entryN(1)); err != nil {
		t.Fatalf("Prepend: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty log after clear, got %v", got)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSettingsStore(dir)
	if err != nil {
		t.Fatalf("NewSettingsStore: %v", err)
	}
	ctx := context.Background()

	lang, err := store.Selected(ctx)
	if err != nil {
		t.Fatalf("Selected before write: %v", err)
	}
	if lang != domain.LanguageUnset {
		t.Fatalf("fresh store language = %q", lang)
	}

	if err := store.Select(ctx, domain.LanguageHindi); err != nil {
		t.Fatalf("Select: %v", err)
	}
	lang, err = store.Selected(ctx)
	if err != nil {
		t.Fatalf("Selected: %v", err)
	}
	if lang != domain.LanguageHindi {
		t.Fatalf("language = %q, want hi", lang)
	}
}
