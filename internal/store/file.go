package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// File naming for the file backend.
const (
	NotebookFilePrefix = "notebook_"
	NotebookFileSuffix = ".txt"
	SharedContentFile  = "shared_content.txt"
)

// FilePersister stores each buffer as a raw UTF-8 text file.
type FilePersister struct {
	dir    string
	single bool
}

// NewFilePersister stores buffer <name> in dir/notebook_<name>.txt.
func NewFilePersister(dir string) *FilePersister {
	return &FilePersister{dir: dir}
}

// NewSharedFilePersister stores the single shared buffer in
// dir/shared_content.txt regardless of its name.
func NewSharedFilePersister(dir string) *FilePersister {
	return &FilePersister{dir: dir, single: true}
}

// Backend implements Persister.
func (p *FilePersister) Backend() string {
	return "file"
}

// Path returns the file that holds name.
func (p *FilePersister) Path(name string) string {
	if p.single {
		return filepath.Join(p.dir, SharedContentFile)
	}
	return filepath.Join(p.dir, NotebookFilePrefix+name+NotebookFileSuffix)
}

// Load implements Persister.
func (p *FilePersister) Load(_ context.Context, name string) (string, bool, error) {
	data, err := os.ReadFile(p.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// Save implements Persister. The record is written to a temporary file in the
// same directory and renamed over the target.
func (p *FilePersister) Save(_ context.Context, name, content string) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(p.dir, ".textsync-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, p.Path(name)); err != nil {
		return fmt.Errorf("replace record: %w", err)
	}
	return nil
}

// List implements Persister. The shared layout has no listable notebooks.
func (p *FilePersister) List(_ context.Context) ([]string, error) {
	if p.single {
		return nil, nil
	}

	entries, err := os.ReadDir(p.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		fn := e.Name()
		if !strings.HasPrefix(fn, NotebookFilePrefix) || !strings.HasSuffix(fn, NotebookFileSuffix) {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(fn, NotebookFilePrefix), NotebookFileSuffix)
		if ValidateName(name) != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
