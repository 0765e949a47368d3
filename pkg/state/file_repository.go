package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const stateFileName = "status.json"

// FileRepository implements Repository using a JSON file.
type FileRepository struct {
	dir  string
	name string
}

// NewFileRepository creates a new FileRepository for the given directory.
// An empty name selects status.json.
func NewFileRepository(dir, name string) *FileRepository {
	if name == "" {
		name = stateFileName
	}
	return &FileRepository{dir: dir, name: name}
}

// Load retrieves the last saved status from disk.
// Returns an empty status and nil error if no status file exists.
func (r *FileRepository) Load(ctx context.Context) (Status, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return Status{}, nil
		}
		return Status{}, err
	}

	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return Status{}, fmt.Errorf("decode %s: %w", r.name, err)
	}

	return status, nil
}

// Save persists the status atomically.
// Uses atomic write (write to temp file, then rename) to prevent corruption.
func (r *FileRepository) Save(ctx context.Context, status Status) error {
	// Ensure directory exists
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmp, path)
}

// Remove deletes the status file if present.
func (r *FileRepository) Remove() error {
	if err := os.Remove(r.Path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the full path to the status file.
func (r *FileRepository) Path() string {
	return filepath.Join(r.dir, r.name)
}
