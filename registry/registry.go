// Package registry provides an in-memory, versioned store of machine
// snapshots, satisfying engine.Registry for hosts that want to look up
// "the latest snapshot for machine X" without standing up external
// storage.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/statecraft-run/scxml/engine"
)

var (
	ErrNotFound = errors.New("registry: machine or version not found")
	ErrExists   = errors.New("registry: version already exists")
)

// entry pairs a snapshot with the version computed from its content.
type entry struct {
	version  string
	snapshot engine.Snapshot
}

// InMemory is a process-local implementation of engine.Registry.
type InMemory struct {
	mu       sync.Mutex
	versions map[string][]entry // machineID -> versions, oldest first
}

// New returns an empty in-memory registry.
func New() *InMemory {
	return &InMemory{versions: make(map[string][]entry)}
}

// Register computes a content-addressed version for snapshot and
// appends it to machineID's history. Re-registering byte-identical
// content is a no-op rather than an error, since a stable
// configuration legitimately snapshots the same content repeatedly.
func (r *InMemory) Register(ctx context.Context, machineID string, snap engine.Snapshot) error {
	version, err := computeVersion(snap)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	history := r.versions[machineID]
	if len(history) > 0 && history[len(history)-1].version == version {
		return nil
	}
	r.versions[machineID] = append(history, entry{version: version, snapshot: snap})
	return nil
}

// Latest returns the most recently registered snapshot for machineID.
func (r *InMemory) Latest(ctx context.Context, machineID string) (engine.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history, ok := r.versions[machineID]
	if !ok || len(history) == 0 {
		return engine.Snapshot{}, ErrNotFound
	}
	return history[len(history)-1].snapshot, nil
}

// Version returns the snapshot registered under a specific content
// version string for machineID.
func (r *InMemory) Version(ctx context.Context, machineID, version string) (engine.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.versions[machineID] {
		if e.version == version {
			return e.snapshot, nil
		}
	}
	return engine.Snapshot{}, ErrNotFound
}

// ListVersions returns every registered version for machineID, newest
// first.
func (r *InMemory) ListVersions(ctx context.Context, machineID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history, ok := r.versions[machineID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]string, len(history))
	for i, e := range history {
		out[len(history)-1-i] = e.version
	}
	return out, nil
}

// ListMachines returns every machine ID with at least one registered
// snapshot, sorted.
func (r *InMemory) ListMachines(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.versions))
	for id := range r.versions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// computeVersion returns a content-addressed hash of a snapshot: the
// hex SHA256 digest of its JSON encoding, with the capture timestamp
// zeroed so identical configurations hash identically.
func computeVersion(snap engine.Snapshot) (string, error) {
	snap.Timestamp = time.Time{}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
