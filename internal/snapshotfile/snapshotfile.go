// Package snapshotfile reads and writes tournament snapshots on disk.
// Files are YAML; JSON is accepted on read and written for .json paths.
package snapshotfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/barbell/internal/domain/dedupe"
	"github.com/okian/barbell/internal/domain/model"
)

// Load reads the snapshot at path and rejects repeated attempt keys.
func Load(path string) (model.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a YAML or JSON snapshot from r.
func Decode(r io.Reader) (model.Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %w", ErrRead, err)
	}

	var snap model.Snapshot
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, &snap)
	} else {
		err = yaml.Unmarshal(data, &snap)
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if snap.Athletes == nil {
		snap.Athletes = []model.Athlete{}
	}
	if snap.Attempts == nil {
		snap.Attempts = []model.Attempt{}
	}
	if err := dedupe.CheckAttempts(snap.Attempts); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

// Save writes snap to path, as JSON when path ends in .json and YAML
// otherwise. The file is replaced atomically.
func Save(path string, snap model.Snapshot) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(snap, "", "  ")
	} else {
		data, err = yaml.Marshal(snap)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
