// Package storage keeps portfolio snapshots as JSON files in a directory.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/etnz/investool"
)

// DefaultDir is the directory used when none is configured.
const DefaultDir = "portfolios"

const ext = ".json"

// Dir stores one indented JSON file per portfolio, named after the portfolio.
type Dir struct {
	path string
}

// NewDir returns a Dir rooted at path. An empty path means DefaultDir.
//
// The directory is created on the first Save.
func NewDir(path string) *Dir {
	if path == "" {
		path = DefaultDir
	}
	return &Dir{path: path}
}

// Path returns the root directory.
func (d *Dir) Path() string { return d.path }

// file returns the file path for name, refusing names that would escape the directory.
func (d *Dir) file(name string) (string, error) {
	if strings.TrimSpace(name) == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("portfolio name %q cannot be used as a file name: %w", name, investool.ErrInvalid)
	}
	return filepath.Join(d.path, name+ext), nil
}

// Load implements investool.Storage.
func (d *Dir) Load(_ context.Context, name string) (*investool.Snapshot, error) {
	file, err := d.file(name)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("portfolio %q: %w", name, investool.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var s investool.Snapshot
	if err := json.Unmarshal(content, &s); err != nil {
		return nil, fmt.Errorf("could not decode portfolio file %q: %w", file, err)
	}
	if s.Name == "" {
		s.Name = name
	}
	return &s, nil
}

// Save implements investool.Storage. The file is replaced atomically.
func (d *Dir) Save(_ context.Context, name string, s *investool.Snapshot, overwrite bool) (bool, error) {
	file, err := d.file(name)
	if err != nil {
		return false, err
	}
	if !overwrite {
		if _, err := os.Stat(file); err == nil {
			return false, nil
		}
	}
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return false, err
	}
	content, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return false, err
	}

	f, err := os.CreateTemp(d.path, "."+name+"-*")
	if err != nil {
		return false, err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(append(content, '\n')); err != nil {
		f.Close()
		return false, err
	}
	if err := f.Close(); err != nil {
		return false, err
	}
	if err := os.Rename(f.Name(), file); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a stored portfolio.
func (d *Dir) Delete(_ context.Context, name string) error {
	file, err := d.file(name)
	if err != nil {
		return err
	}
	err = os.Remove(file)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("portfolio %q: %w", name, investool.ErrNotFound)
	}
	return err
}

// List returns the names of all stored portfolios, sorted.
func (d *Dir) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || filepath.Ext(e.Name()) != ext {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ext))
	}
	slices.Sort(names)
	return names, nil
}
