package store

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "snapshots.db")
	s, err := NewSnapshotStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSnapshotStoreSaveAndLoad(t *testing.T) {
	s := newTestStore(t)

	tree := NewTree()
	if err := tree.Set(12.5, "stats", "cpu"); err != nil {
		t.Fatalf("Failed to set value: %v", err)
	}
	if err := s.Save(7, tree); err != nil {
		t.Fatalf("Failed to save snapshot: %v", err)
	}

	loaded, tick, err := s.LoadLatest()
	if err != nil {
		t.Fatalf("Failed to load snapshot: %v", err)
	}
	if tick != 7 {
		t.Errorf("Expected tick 7, got %d", tick)
	}
	v, ok := loaded.GetFloat("stats", "cpu")
	if !ok || v != 12.5 {
		t.Errorf("Expected cpu 12.5, got %v (ok=%v)", v, ok)
	}
}

func TestSnapshotStoreEmptyDatabase(t *testing.T) {
	s := newTestStore(t)

	tree, tick, err := s.LoadLatest()
	if err != nil {
		t.Fatalf("Failed to load from empty database: %v", err)
	}
	if tick != 0 {
		t.Errorf("Expected tick 0 for empty database, got %d", tick)
	}
	if tree.Len() != 0 {
		t.Errorf("Expected empty tree, got %d keys", tree.Len())
	}
}

func TestSnapshotStoreLoadsNewestTick(t *testing.T) {
	s := newTestStore(t)

	for tick := uint64(1); tick <= 3; tick++ {
		tree := NewTree()
		if err := tree.Set(float64(tick), "tick"); err != nil {
			t.Fatalf("Failed to set value: %v", err)
		}
		if err := s.Save(tick, tree); err != nil {
			t.Fatalf("Failed to save tick %d: %v", tick, err)
		}
	}

	loaded, tick, err := s.LoadLatest()
	if err != nil {
		t.Fatalf("Failed to load snapshot: %v", err)
	}
	if tick != 3 {
		t.Errorf("Expected newest tick 3, got %d", tick)
	}
	v, _ := loaded.GetFloat("tick")
	if v != 3 {
		t.Errorf("Expected tree from tick 3, got %v", v)
	}
}

func TestSnapshotStoreUpsertSameTick(t *testing.T) {
	s := newTestStore(t)

	first := NewTree()
	first.Set("old", "value")
	if err := s.Save(5, first); err != nil {
		t.Fatalf("Failed to save first snapshot: %v", err)
	}

	second := NewTree()
	second.Set("new", "value")
	if err := s.Save(5, second); err != nil {
		t.Fatalf("Failed to overwrite snapshot: %v", err)
	}

	loaded, _, err := s.LoadLatest()
	if err != nil {
		t.Fatalf("Failed to load snapshot: %v", err)
	}
	v, _ := loaded.GetString("value")
	if v != "new" {
		t.Errorf("Expected overwritten value 'new', got %q", v)
	}
}

func TestSnapshotStorePrune(t *testing.T) {
	s := newTestStore(t)

	for tick := uint64(1); tick <= 10; tick++ {
		if err := s.Save(tick, NewTree()); err != nil {
			t.Fatalf("Failed to save tick %d: %v", tick, err)
		}
	}

	if err := s.Prune(3); err != nil {
		t.Fatalf("Failed to prune: %v", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM store_snapshots`).Scan(&count); err != nil {
		t.Fatalf("Failed to count snapshots: %v", err)
	}
	// Ticks 7..10 survive: newest minus keep window.
	if count != 4 {
		t.Errorf("Expected 4 snapshots after prune, got %d", count)
	}
}
