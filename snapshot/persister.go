// Package snapshot persists engine.Snapshot values to disk, one file
// per machine id, and checks what it loads against the document the
// machine will restore into: a stale or hand-edited file must not be
// able to resurrect state ids the document no longer has.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/statecraft-run/scxml/document"
	"github.com/statecraft-run/scxml/engine"
)

// Format selects the on-disk encoding of a persisted snapshot.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) ext() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

func (f Format) encode(v any) ([]byte, error) {
	if f == FormatYAML {
		return yaml.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

func (f Format) decode(data []byte, v any) error {
	if f == FormatYAML {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

// FilePersister implements engine.Persister with one file per machine
// id under a directory. When constructed with a document, every loaded
// snapshot is passed through Check before being returned.
type FilePersister struct {
	dir    string
	format Format
	doc    *document.Document
}

// NewFilePersister creates dir if needed and returns a persister
// writing snapshots there in the given format. doc may be nil, which
// skips load-time checking; hosts restoring into a known document
// should pass it.
func NewFilePersister(dir string, format Format, doc *document.Document) (*FilePersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create dir %s: %w", dir, err)
	}
	return &FilePersister{dir: dir, format: format, doc: doc}, nil
}

func (p *FilePersister) file(machineID string) string {
	return filepath.Join(p.dir, machineID+p.format.ext())
}

// Save implements engine.Persister.
func (p *FilePersister) Save(ctx context.Context, snap engine.Snapshot) error {
	if snap.MachineID == "" {
		return fmt.Errorf("snapshot: refusing to save a snapshot without a machine id")
	}
	data, err := p.format.encode(snap)
	if err != nil {
		return fmt.Errorf("snapshot: encode %s: %w", snap.MachineID, err)
	}
	if err := os.WriteFile(p.file(snap.MachineID), data, 0o644); err != nil {
		return fmt.Errorf("snapshot: save %s: %w", snap.MachineID, err)
	}
	return nil
}

// Load implements engine.Persister. A missing file surfaces as a
// wrapped os.ErrNotExist so callers can distinguish "never saved"
// from a decode or check failure.
func (p *FilePersister) Load(ctx context.Context, machineID string) (engine.Snapshot, error) {
	data, err := os.ReadFile(p.file(machineID))
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("snapshot: load %s: %w", machineID, err)
	}
	var snap engine.Snapshot
	if err := p.format.decode(data, &snap); err != nil {
		return engine.Snapshot{}, fmt.Errorf("snapshot: decode %s: %w", machineID, err)
	}
	if snap.MachineID == "" {
		snap.MachineID = machineID
	}
	if p.doc != nil {
		if err := Check(snap, p.doc); err != nil {
			return engine.Snapshot{}, fmt.Errorf("snapshot: %s does not fit its document: %w", machineID, err)
		}
	}
	return snap, nil
}

// Check verifies that snap can be restored into a machine running doc:
// every active leaf must resolve to an atomic or final state, and
// every history record must name a history state whose recorded
// entries all resolve. Restoring a snapshot that fails Check would
// break the configuration invariants the interpreter relies on.
func Check(snap engine.Snapshot, doc *document.Document) error {
	for _, id := range snap.Leaves {
		s, ok := doc.FindState(id)
		if !ok {
			return fmt.Errorf("leaf %q is not in the document", id)
		}
		if s.Kind != document.Atomic && s.Kind != document.Final {
			return fmt.Errorf("leaf %q is a %s state, not a leaf", id, s.Kind)
		}
	}
	for histID, recorded := range snap.History {
		h, ok := doc.FindState(histID)
		if !ok || h.Kind != document.History {
			return fmt.Errorf("history record %q does not name a history state", histID)
		}
		for _, id := range recorded {
			if _, ok := doc.FindState(id); !ok {
				return fmt.Errorf("history record %q contains unknown state %q", histID, id)
			}
		}
	}
	return nil
}
