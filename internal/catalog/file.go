package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// FileStore persists the catalog as a JSON document.
//
// The current layout is
//
//	{"project_name": "...", "services": [{"name": "LO1", "price": 27.85}, ...]}
//
// Older files stored only prices keyed by position ({"0": 27.85, "1": 14.91});
// those are overlaid onto the default catalog and unknown keys are skipped.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads and decodes the document. A missing file yields ErrNothingPersisted.
func (f *FileStore) Load(_ context.Context) (Catalog, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Catalog{}, ErrNothingPersisted
		}
		return Catalog{}, fmt.Errorf("read catalog file: %w", err)
	}
	return decodeDocument(data)
}

// Save writes the document atomically through a temporary file in the same directory.
func (f *FileStore) Save(_ context.Context, c Catalog) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace catalog file: %w", err)
	}
	return nil
}

func decodeDocument(data []byte) (Catalog, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog document: %w", err)
	}

	if _, ok := raw["services"]; ok {
		var c Catalog
		if err := json.Unmarshal(data, &c); err != nil {
			return Catalog{}, fmt.Errorf("parse catalog document: %w", err)
		}
		return c, nil
	}

	c := DefaultCatalog()
	if name, ok := raw["project_name"]; ok {
		_ = json.Unmarshal(name, &c.ProjectName)
	}
	for key, value := range raw {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(c.Services) {
			continue
		}
		var price float64
		if err := json.Unmarshal(value, &price); err != nil {
			continue
		}
		c.Services[idx].Price = price
	}
	return c, nil
}
