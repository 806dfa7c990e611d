// Package snapshot persists the source index as a checksummed JSON file.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/cascade/internal/core/domain"
	"go.trai.ch/cascade/internal/core/ports"
	"go.trai.ch/zerr"
)

// envelope wraps the snapshot payload with a checksum over the raw payload
// bytes. A load recomputes the checksum before trusting the contents.
type envelope struct {
	Version  int             `json:"version"`
	Checksum string          `json:"checksum"`
	Payload  json.RawMessage `json:"payload"`
}

// formatVersion is bumped whenever the snapshot layout changes.
const formatVersion = 1

// Store implements ports.IndexStore using a single JSON file per project.
type Store struct{}

// NewStore creates a new snapshot Store.
func NewStore() *Store {
	return &Store{}
}

var _ ports.IndexStore = (*Store)(nil)

// Save writes the snapshot to the given path, creating parent directories
// as needed. The write goes through a temp file and rename so a crash never
// leaves a half-written snapshot behind.
func (s *Store) Save(path string, snapshot *ports.IndexSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Join(domain.ErrSnapshotWriteFailed, err)
	}

	data, err := json.MarshalIndent(envelope{
		Version:  formatVersion,
		Checksum: checksum(payload),
		Payload:  payload,
	}, "", "  ")
	if err != nil {
		return errors.Join(domain.ErrSnapshotWriteFailed, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return errors.Join(domain.ErrSnapshotWriteFailed, err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return errors.Join(domain.ErrSnapshotWriteFailed, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Join(domain.ErrSnapshotWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Join(domain.ErrSnapshotWriteFailed, err)
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		_ = os.Remove(tmpName)
		return errors.Join(domain.ErrSnapshotWriteFailed, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Join(domain.ErrSnapshotWriteFailed, err)
	}

	return nil
}

// Load reads a snapshot from the given path. A missing file returns
// ErrSnapshotReadFailed; a present but tampered or truncated file returns
// ErrSnapshotCorrupt. Loads never silently repair.
func (s *Store) Load(path string) (*ports.IndexSnapshot, error) {
	//nolint:gosec // path comes from the resolved project configuration
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(domain.ErrSnapshotReadFailed, "snapshot file missing"), "path", path)
		}
		return nil, zerr.Wrap(errors.Join(domain.ErrSnapshotReadFailed, err), "reading snapshot")
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, zerr.Wrap(errors.Join(domain.ErrSnapshotCorrupt, err), "decoding envelope")
	}
	if env.Version != formatVersion {
		return nil, zerr.With(zerr.Wrap(domain.ErrSnapshotCorrupt, "unsupported format"), "version", env.Version)
	}
	if got := checksum(env.Payload); got != env.Checksum {
		mismatch := zerr.With(zerr.Wrap(domain.ErrSnapshotCorrupt, "checksum mismatch"), "expected", env.Checksum)
		return nil, zerr.With(mismatch, "actual", got)
	}

	var snapshot ports.IndexSnapshot
	if err := json.Unmarshal(env.Payload, &snapshot); err != nil {
		return nil, zerr.Wrap(errors.Join(domain.ErrSnapshotCorrupt, err), "decoding payload")
	}

	return &snapshot, nil
}

func checksum(payload []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(payload))
}
