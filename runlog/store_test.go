package runlog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/openfluke/capsnet/nn"
)

func sampleRun(scenario string, createdAt time.Time) Run {
	run := NewRun(scenario, 42)
	run.CreatedAt = createdAt
	run.Config = nn.CapsuleConfig{NumCaps: 4, DimCaps: 16, RoutingIter: 3, InitStdDev: 0.1}
	run.Batch, run.LowerCaps, run.LowerDim = 2, 6, 8
	run.Loss = 0.25
	run.Accuracy = 0.5
	run.Probabilities = [][]float32{{0.1, 0.2, 0.3, 0.4}, {0.4, 0.3, 0.2, 0.1}}
	run.Sweep = map[int]float32{0: 0.31, 1: 0.35, 3: 0.41}
	return run
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	older := sampleRun("e2e", base)
	newer := sampleRun("sweep", base.Add(time.Minute))
	for _, run := range []Run{older, newer} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run: %v", err)
		}
	}

	loaded, ok, err := store.GetRun(ctx, older.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatalf("expected run %s", older.ID)
	}
	if loaded.Scenario != "e2e" || loaded.Seed != 42 || loaded.Config != older.Config {
		t.Fatalf("unexpected run loaded: %+v", loaded)
	}
	if !loaded.CreatedAt.Equal(older.CreatedAt) {
		t.Errorf("created_at: got %v, want %v", loaded.CreatedAt, older.CreatedAt)
	}
	if len(loaded.Probabilities) != 2 || loaded.Probabilities[1][0] != 0.4 {
		t.Errorf("probabilities not preserved: %v", loaded.Probabilities)
	}
	if loaded.Sweep[3] != 0.41 {
		t.Errorf("sweep not preserved: %v", loaded.Sweep)
	}

	if _, ok, err := store.GetRun(ctx, NewRun("x", 0).ID); err != nil || ok {
		t.Errorf("expected missing run, got ok=%t err=%v", ok, err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != newer.ID || runs[1].ID != older.ID {
		t.Fatalf("expected newest first, got %+v", runs)
	}
	runs, err = store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != newer.ID {
		t.Fatalf("limit 1: got %+v", runs)
	}

	updated := older
	updated.Loss = 0.125
	if err := store.SaveRun(ctx, updated); err != nil {
		t.Fatalf("update run: %v", err)
	}
	loaded, _, err = store.GetRun(ctx, older.ID)
	if err != nil || loaded.Loss != 0.125 {
		t.Errorf("expected updated loss 0.125, got %f (err=%v)", loaded.Loss, err)
	}

	bad := sampleRun("e2e", base)
	bad.ID = "not-a-uuid"
	if err := store.SaveRun(ctx, bad); err == nil {
		t.Error("expected invalid run id to be rejected")
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	exerciseStore(t, store)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	exerciseStore(t, store)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	first := NewSQLiteStore(path)
	if err := first.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	run := sampleRun("e2e", time.Now().UTC())
	if err := first.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := NewSQLiteStore(path)
	if err := second.Init(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	if _, ok, err := second.GetRun(ctx, run.ID); err != nil || !ok {
		t.Fatalf("expected run after reopen, ok=%t err=%v", ok, err)
	}
}

func TestStoresRequireInit(t *testing.T) {
	ctx := context.Background()
	for name, store := range map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db")),
	} {
		if _, err := store.ListRuns(ctx, 1); !errors.Is(err, ErrNotInitialized) {
			t.Errorf("%s: expected ErrNotInitialized, got %v", name, err)
		}
	}
	if err := NewSQLiteStore("").Init(ctx); err == nil {
		t.Error("expected empty sqlite path to be rejected")
	}
}
