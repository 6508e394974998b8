package snapshot

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrNotMapping is returned when a snapshot's top level is not a mapping.
var ErrNotMapping = errors.New("snapshot is not a mapping")

// File is a YAML snapshot on disk.
type File struct {
	path string

	mu   sync.Mutex
	last [sha256.Size]byte
}

// NewFile returns a File for path. The path is made absolute.
func NewFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &File{path: abs}, nil
}

// Path returns the absolute file path.
func (f *File) Path() string { return f.path }

// Read decodes the file. A missing file yields an error matching
// os.ErrNotExist; an empty file yields an empty tree.
func (f *File) Read() (map[string]any, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Write encodes tree and atomically replaces the file.
func (f *File) Write(tree map[string]any) error {
	data, err := Encode(tree)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := writeAtomic(f.path, data); err != nil {
		return err
	}
	f.last = sha256.Sum256(data)
	return nil
}

// written reports whether data is exactly what this File last wrote.
func (f *File) written(data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last == sha256.Sum256(data)
}

// Decode parses a YAML snapshot.
func Decode(data []byte) (map[string]any, error) {
	tree := make(map[string]any)
	if len(bytes.TrimSpace(data)) == 0 {
		return tree, nil
	}

	var node any
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	switch v := node.(type) {
	case nil:
		return tree, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrNotMapping, node)
	}
}

// Encode renders tree as YAML.
func Encode(tree map[string]any) ([]byte, error) {
	if tree == nil {
		tree = map[string]any{}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
