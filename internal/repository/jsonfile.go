package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// jsonFile persists a whole document as indented JSON, the way the flat
// file stores have always done it.  Writers pass a sequence number taken
// under their own state lock; a snapshot older than the last one written is
// dropped, so slow writers never roll the file back.  Writes go through a
// temp file and rename.
type jsonFile struct {
	path    string
	mu      sync.Mutex
	written uint64
}

func newJSONFile(path string) *jsonFile {
	if path == "" {
		return nil
	}
	return &jsonFile{path: path}
}

// load decodes the file into v.  A missing or empty file leaves v untouched.
func (f *jsonFile) load(v any) error {
	if f == nil {
		return nil
	}
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(b) == 0) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", f.path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", f.path, err)
	}
	return nil
}

func (f *jsonFile) save(seq uint64, v any) error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if seq <= f.written {
		return nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(f.path), err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	f.written = seq
	return nil
}
