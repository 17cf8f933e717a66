package store

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestDurableRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.json")
	d, err := OpenDurable(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := d.Set("tt_accum_EMP001_abc_2025-01-08", 3600); err != nil {
		t.Fatalf("set: %v", err)
	}

	// A fresh open must see the persisted value.
	d2, err := OpenDurable(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	var seconds int64
	ok, err := d2.Get("tt_accum_EMP001_abc_2025-01-08", &seconds)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if seconds != 3600 {
		t.Fatalf("seconds = %d, want 3600", seconds)
	}
}

func TestDurableKeysPrefix(t *testing.T) {
	d, err := OpenDurable(filepath.Join(t.TempDir(), "portal.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	d.Set("tt_accum_EMP001_a_2025-01-08", 1)
	d.Set("tt_accum_EMP001_b_2025-01-08", 2)
	d.Set("tt_active_EMP001", "x")

	keys := d.Keys("tt_accum_EMP001_")
	if len(keys) != 2 {
		t.Fatalf("keys = %v", keys)
	}
}

func TestDurableSnapshotRestore(t *testing.T) {
	dir := t.TempDir()
	d, _ := OpenDurable(filepath.Join(dir, "a.json"))
	d.Set("auth", map[string]bool{"authenticated": true})

	var buf bytes.Buffer
	if err := d.Snapshot(&buf); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	d2, _ := OpenDurable(filepath.Join(dir, "b.json"))
	if err := d2.Restore(&buf); err != nil {
		t.Fatalf("restore: %v", err)
	}
	var auth map[string]bool
	ok, err := d2.Get("auth", &auth)
	if err != nil || !ok || !auth["authenticated"] {
		t.Fatalf("restored auth missing: ok=%v err=%v %v", ok, err, auth)
	}
}

func TestScratchDeleteByPrefix(t *testing.T) {
	s := NewScratch()
	s.Set("ts_manual_2025-01-06_2025-01-12", []string{"row"})
	s.Set("ts_manual_2025-01-06_2025-01-12_overrides", []int{1})
	s.Set("ts_projects_cache", []string{"p"})

	s.DeleteByPrefix("ts_manual_2025-01-06_2025-01-12")
	if ok, _ := s.Get("ts_manual_2025-01-06_2025-01-12", nil); ok {
		t.Error("manual rows should be gone")
	}
	if ok, _ := s.Get("ts_manual_2025-01-06_2025-01-12_overrides", nil); ok {
		t.Error("overrides should be gone")
	}
	if ok, _ := s.Get("ts_projects_cache", nil); !ok {
		t.Error("projects cache should survive")
	}
}
