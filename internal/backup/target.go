package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/starford/devspace/internal/apperr"
	"github.com/starford/devspace/internal/kv"
)

// Target is where backup files are stored.
type Target interface {
	Put(ctx context.Context, name string, data []byte) error
	// Get opens a stored backup. Missing names fail with apperr.ErrNotFound.
	Get(ctx context.Context, name string) (io.ReadCloser, error)
	// List returns stored backups whose names start with prefix, sorted by name.
	List(ctx context.Context, prefix string) ([]Entry, error)
}

// Entry describes a stored backup.
type Entry struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

func validName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("backup: invalid name %q", name)
	}
	return nil
}

// FSTarget stores backups as files in a directory.
type FSTarget struct {
	dir string
}

// NewFSTarget creates the directory if needed.
func NewFSTarget(dir string) (*FSTarget, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("backup: resolve dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("backup: mkdir: %w", err)
	}
	return &FSTarget{dir: abs}, nil
}

func (f *FSTarget) Dir() string { return f.dir }

func (f *FSTarget) Put(_ context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	return kv.WriteFileAtomic(filepath.Join(f.dir, name), data)
}

func (f *FSTarget) Get(_ context.Context, name string) (io.ReadCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(f.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("backup %s: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("backup: open %s: %w", name, err)
	}
	return file, nil
}

func (f *FSTarget) List(_ context.Context, prefix string) ([]Entry, error) {
	dirents, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("backup: list: %w", err)
	}
	out := []Entry{}
	for _, d := range dirents {
		if d.IsDir() || !strings.HasPrefix(d.Name(), prefix) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{Name: d.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
