package cdi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WriteRecord writes rec to path as indented, key-sorted JSON.
// The file is replaced by rename only after its contents were fsynced.
func WriteRecord(path string, rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}

// ReadRecord loads a snapshot written by WriteRecord
func ReadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- snapshot path comes from configuration
	if err != nil {
		return nil, err
	}
	rec := &Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	rec.Source = path
	return rec, nil
}

// Store keeps prefixed snapshots of one logical export in a log directory,
// e.g. Before_DiskInfo.json and After_DiskInfo.json
type Store struct {
	dir      string
	baseName string
}

// NewStore creates a store for <dir>/<prefix><baseName>.json files
func NewStore(dir, baseName string) *Store {
	return &Store{dir: dir, baseName: strings.TrimSuffix(baseName, ".json")}
}

// Dir returns the log directory
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the snapshot file for prefix
func (s *Store) Path(prefix string) string {
	return filepath.Join(s.dir, prefix+s.baseName+".json")
}

// Save persists rec under prefix
func (s *Store) Save(prefix string, rec *Record) (string, error) {
	path := s.Path(prefix)
	if err := WriteRecord(path, rec); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads the snapshot saved under prefix
func (s *Store) Load(prefix string) (*Record, error) {
	return ReadRecord(s.Path(prefix))
}

// Exists reports whether a snapshot exists under prefix
func (s *Store) Exists(prefix string) bool {
	_, err := os.Stat(s.Path(prefix))
	return err == nil
}

// List returns the prefixes with a snapshot in the directory, sorted
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	suffix := s.baseName + ".json"
	var prefixes []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, suffix) || strings.HasPrefix(name, ".") {
			continue
		}
		prefixes = append(prefixes, strings.TrimSuffix(name, suffix))
	}
	sort.Strings(prefixes)
	return prefixes, nil
}

// CompareEquals reloads the snapshot under prefix and runs AssertEquals
func (s *Store) CompareEquals(c *Comparator, prefix, selector string, names []string, expected int64) (bool, string, error) {
	rec, err := s.Load(prefix)
	if err != nil {
		return false, "", err
	}
	return c.AssertEquals(rec, selector, names, expected)
}

// CompareNoIncrease reloads both snapshots and runs AssertNoIncrease
func (s *Store) CompareNoIncrease(c *Comparator, beforePrefix, afterPrefix, selector string, names []string) (bool, string, error) {
	before, after, err := s.loadPair(beforePrefix, afterPrefix)
	if err != nil {
		return false, "", err
	}
	return c.AssertNoIncrease(before, after, selector, names)
}

// CompareDelta reloads both snapshots and runs AssertDelta
func (s *Store) CompareDelta(c *Comparator, beforePrefix, afterPrefix, selector string, names []string, delta int64) (bool, string, error) {
	before, after, err := s.loadPair(beforePrefix, afterPrefix)
	if err != nil {
		return false, "", err
	}
	return c.AssertDelta(before, after, selector, names, delta)
}

func (s *Store) loadPair(beforePrefix, afterPrefix string) (*Record, *Record, error) {
	before, err := s.Load(beforePrefix)
	if err != nil {
		return nil, nil, err
	}
	after, err := s.Load(afterPrefix)
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}
