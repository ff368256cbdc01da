// Package filestore keeps named partitions in memory and persists each one
// as a file in a directory. Mutations only mark partitions dirty; nothing
// reaches disk until Flush.
package filestore

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Codec reads and writes one partition per file.
type Codec[P any] interface {
	// Ext is the file extension without the dot.
	Ext() string
	Decode(r io.Reader) (P, error)
	Encode(w io.Writer, p P) error
	// Empty reports whether p should be removed from disk instead of written.
	Empty(p P) bool
}

// State is the lifecycle state of a store.
type State int

const (
	Unloaded State = iota
	Clean
	Dirty
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	}
	return "unloaded"
}

// Store holds every partition of one directory.
type Store[P any] struct {
	dir    string
	codec  Codec[P]
	log    *slog.Logger
	parts  map[string]P
	dirty  map[string]bool
	loaded bool
}

// Open resolves location and loads every partition file in it. An existing
// directory is used as is, an existing file selects its parent directory,
// and a missing path is created as a directory.
func Open[P any](location string, codec Codec[P], logger *slog.Logger) (*Store[P], error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir, err := resolveDir(location)
	if err != nil {
		return nil, err
	}
	s := &Store[P]{dir: dir, codec: codec, log: logger}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func resolveDir(location string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("empty store location")
	}
	info, err := os.Stat(location)
	switch {
	case err == nil && info.IsDir():
		return location, nil
	case err == nil:
		return filepath.Dir(location), nil
	case os.IsNotExist(err):
		if err := os.MkdirAll(location, 0755); err != nil {
			return "", fmt.Errorf("creating store directory: %w", err)
		}
		return location, nil
	default:
		return "", fmt.Errorf("checking store location: %w", err)
	}
}

func (s *Store[P]) load() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading store directory: %w", err)
	}

	parts := make(map[string]P)
	suffix := "." + s.codec.Ext()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, suffix) || strings.HasPrefix(name, ".tmp-") {
			continue
		}
		p, err := s.readFile(filepath.Join(s.dir, name))
		if err != nil {
			return err
		}
		parts[strings.TrimSuffix(name, suffix)] = p
	}

	s.parts = parts
	s.dirty = make(map[string]bool)
	s.loaded = true
	s.log.Debug("loaded store", "dir", s.dir, "partitions", len(parts))
	return nil
}

func (s *Store[P]) readFile(path string) (P, error) {
	var zero P
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	p, err := s.codec.Decode(f)
	if err != nil {
		return zero, fmt.Errorf("decoding %s: %w", path, err)
	}
	return p, nil
}

// Dir returns the resolved directory.
func (s *Store[P]) Dir() string { return s.dir }

// Path returns the file that holds a partition.
func (s *Store[P]) Path(name string) string {
	return filepath.Join(s.dir, name+"."+s.codec.Ext())
}

// Partitions returns the partition names in sorted order.
func (s *Store[P]) Partitions() []string {
	names := make([]string, 0, len(s.parts))
	for name := range s.parts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the live partition.
func (s *Store[P]) Get(name string) (P, bool) {
	p, ok := s.parts[name]
	return p, ok
}

// Put stores p under name and marks it dirty.
func (s *Store[P]) Put(name string, p P) {
	s.parts[name] = p
	s.dirty[name] = true
}

// Delete drops a partition and marks it dirty so Flush removes its file.
func (s *Store[P]) Delete(name string) bool {
	_, ok := s.parts[name]
	delete(s.parts, name)
	s.dirty[name] = true
	return ok
}

// MarkDirty records that a partition was mutated in place.
func (s *Store[P]) MarkDirty(name string) {
	s.dirty[name] = true
}

// State reports the lifecycle state.
func (s *Store[P]) State() State {
	switch {
	case !s.loaded:
		return Unloaded
	case len(s.dirty) > 0:
		return Dirty
	}
	return Clean
}

// DirtyPartitions returns the names waiting for a flush.
func (s *Store[P]) DirtyPartitions() []string {
	names := make([]string, 0, len(s.dirty))
	for name := range s.dirty {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Flush writes dirty partitions in sorted order. An absent or empty
// partition has its file removed. Partitions flushed before a failure stay
// clean; the rest stay dirty.
func (s *Store[P]) Flush() error {
	for _, name := range s.DirtyPartitions() {
		p, ok := s.parts[name]
		if !ok || s.codec.Empty(p) {
			if err := os.Remove(s.Path(name)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing %s: %w", name, err)
			}
			delete(s.parts, name)
		} else if err := s.writeFile(s.Path(name), p); err != nil {
			return fmt.Errorf("flushing %s: %w", name, err)
		}
		delete(s.dirty, name)
	}
	s.log.Debug("flushed store", "dir", s.dir)
	return nil
}

// writeFile writes through a temp file and renames it over path.
func (s *Store[P]) writeFile(path string, p P) error {
	tmpFile, err := os.CreateTemp(s.dir, ".tmp-*."+s.codec.Ext())
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := s.codec.Encode(tmpFile, p); err != nil {
		tmpFile.Close()
		return fmt.Errorf("encoding: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}

// Reload flushes pending changes and rereads every partition.
func (s *Store[P]) Reload() error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.load()
}

// Clear empties every partition and flushes, which removes their files.
func (s *Store[P]) Clear() error {
	for name := range s.parts {
		s.dirty[name] = true
	}
	s.parts = make(map[string]P)
	if err := s.Flush(); err != nil {
		return err
	}
	s.log.Debug("cleared store", "dir", s.dir)
	return nil
}

// Close flushes pending changes.
func (s *Store[P]) Close() error {
	return s.Flush()
}
