// Package store keeps finished investigations so they can be listed and
// re-rendered later.
package store

import (
	"time"
)

// Store persists runs by ID.
//
// Implementations must be thread-safe!
type Store interface {
	// Save inserts the run, or replaces a run with the same ID.
	Save(run Run) error
	// Get returns the run with the given ID, along with a boolean
	// indicating whether it exists.
	Get(id string) (Run, bool, error)
	// List returns all runs without their reports, newest first.
	List() ([]RunInfo, error)
}

// RunInfo is the listing form of a run.
type RunInfo struct {
	ID         string    `json:"id"`
	BaseURL    string    `json:"baseUrl"`
	State      string    `json:"state"`
	Confidence string    `json:"confidence,omitempty"`
	Iterations int       `json:"iterations"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

var (
	_ Store = MemStore{}
	_ Store = (*SQLiteStore)(nil)
)

type Run struct {
	RunInfo
	// Report is the JSON report document.
	Report []byte `json:"-"`
}
