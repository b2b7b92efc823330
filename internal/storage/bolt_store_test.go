package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func openTestStore(t *testing.T, opts Options) *boltStore {
	t.Helper()
	storeRaw, err := openBolt(filepath.Join(t.TempDir(), "runs.db"), normalizeOptions(opts))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStoreReturnsNewestRunsFirst(t *testing.T) {
	store := openTestStore(t, Options{})
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		run := RunRecord{
			ID:         id,
			Mode:       "run",
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + 3*time.Second),
			Status:     StatusSucceeded,
			Records:    i,
			Steps:      []StepRecord{{Name: "extract", State: "succeeded", ElapsedMS: 12}},
		}
		if err := store.SaveRun(run); err != nil {
			t.Fatalf("SaveRun(%s): %v", id, err)
		}
	}

	runs, err := store.RecentRuns(2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"c", "b"}, ids); diff != "" {
		t.Fatalf("unexpected run order (-want +got):\n%s", diff)
	}
	if runs[0].Duration() != 3*time.Second {
		t.Fatalf("unexpected duration %s", runs[0].Duration())
	}
	if diff := cmp.Diff([]StepRecord{{Name: "extract", State: "succeeded", ElapsedMS: 12}}, runs[0].Steps); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}

	all, err := store.RecentRuns(0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected all 3 runs, got %d err=%v", len(all), err)
	}
}

func TestBoltStoreExpiresRuns(t *testing.T) {
	store := openTestStore(t, Options{RunTTL: time.Hour, CleanupInterval: time.Minute})
	clock := time.Now()
	store.now = func() time.Time { return clock }

	if err := store.SaveRun(RunRecord{ID: "old", StartedAt: clock, Status: StatusFailed}); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	clock = clock.Add(2 * time.Hour)
	runs, err := store.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns after expiry: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected expired run to be hidden, got %#v", runs)
	}
	if got := store.pruned.Load(); got != 1 {
		t.Fatalf("expected 1 pruned run, got %d", got)
	}
}

func TestBoltStoreRequiresRunID(t *testing.T) {
	store := openTestStore(t, Options{})
	if err := store.SaveRun(RunRecord{}); err == nil {
		t.Fatalf("expected error for missing run id")
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.SaveRun(RunRecord{ID: "x"}); err != nil {
		t.Fatalf("noop store SaveRun: %v", err)
	}
	runs, err := store.RecentRuns(5)
	if err != nil || runs != nil {
		t.Fatalf("noop store RecentRuns = %v, %v", runs, err)
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected unsupported storage error")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected missing path error")
	}
}
