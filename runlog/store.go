// Package runlog records summaries of capsule routing runs.
//
// A Run holds the configuration, seed and scores of one forward pass or
// iteration sweep. It never holds transform weights.
package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openfluke/capsnet/nn"
)

const CurrentSchemaVersion = 1

var ErrNotInitialized = errors.New("store is not initialized")

// Run is one recorded invocation.
type Run struct {
	ID            string           `json:"id"`
	SchemaVersion int              `json:"schema_version"`
	CreatedAt     time.Time        `json:"created_at"`
	Scenario      string           `json:"scenario"`
	Seed          int64            `json:"seed"`
	Config        nn.CapsuleConfig `json:"config"`
	Batch         int              `json:"batch"`
	LowerCaps     int              `json:"lower_caps"`
	LowerDim      int              `json:"lower_dim"`
	Loss          float32          `json:"loss"`
	Accuracy      float32          `json:"accuracy"`

	// Probabilities holds the final class probabilities per sample.
	Probabilities [][]float32 `json:"probabilities,omitempty"`
	// Sweep maps a routing iteration count to the dominant class probability.
	Sweep map[int]float32 `json:"sweep,omitempty"`
}

// NewRun returns a Run with a fresh ID and timestamp.
func NewRun(scenario string, seed int64) Run {
	return Run{
		ID:            uuid.NewString(),
		SchemaVersion: CurrentSchemaVersion,
		CreatedAt:     time.Now().UTC(),
		Scenario:      scenario,
		Seed:          seed,
	}
}

type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, bool, error)
	// ListRuns returns up to limit runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// Open returns an initialised SQLite store for path, or a memory store when path is empty.
func Open(ctx context.Context, path string) (Store, error) {
	var store Store = NewMemoryStore()
	if path != "" {
		store = NewSQLiteStore(path)
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("open run log %q: %w", path, err)
	}
	return store, nil
}

func validateRun(run Run) error {
	if _, err := uuid.Parse(run.ID); err != nil {
		return fmt.Errorf("run id %q: %w", run.ID, err)
	}
	return nil
}

func encodeRun(run Run) ([]byte, error) {
	return json.Marshal(run)
}

func decodeRun(payload []byte) (Run, error) {
	var run Run
	if err := json.Unmarshal(payload, &run); err != nil {
		return Run{}, err
	}
	if run.SchemaVersion != CurrentSchemaVersion {
		return Run{}, fmt.Errorf("unsupported schema version %d", run.SchemaVersion)
	}
	return run, nil
}
