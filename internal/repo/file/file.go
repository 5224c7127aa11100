// Package file stores each check as one JSON document named <id>.json.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/repo"
)

const suffix = ".json"

type Store struct {
	dir string
}

// New opens (creating if needed) the collection directory base/entity.
func New(base, entity string) (*Store, error) {
	if entity == "" {
		return nil, errors.New("file.New: empty entity")
	}
	dir := filepath.Join(base, entity)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file.New: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id domain.CheckID) (string, error) {
	name := string(id)
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid id %q: %w", name, repo.ErrNotFound)
	}
	return filepath.Join(s.dir, name+suffix), nil
}

func (s *Store) Create(ctx context.Context, c domain.Check) error {
	p, err := s.path(c.ID)
	if err != nil {
		return fmt.Errorf("file.Store.Create: %w", err)
	}
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("file.Store.Create: %w", err)
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("file.Store.Create %s: %w", c.ID, repo.ErrExists)
		}
		return fmt.Errorf("file.Store.Create %s: %w", c.ID, err)
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("file.Store.Create %s: %w", c.ID, err)
	}
	return f.Close()
}

func (s *Store) Read(ctx context.Context, id domain.CheckID) (domain.Check, error) {
	p, err := s.path(id)
	if err != nil {
		return domain.Check{}, fmt.Errorf("file.Store.Read: %w", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Check{}, fmt.Errorf("file.Store.Read %s: %w", id, repo.ErrNotFound)
		}
		return domain.Check{}, fmt.Errorf("file.Store.Read %s: %w: %v", id, repo.ErrCorrupt, err)
	}
	var c domain.Check
	if err := json.Unmarshal(b, &c); err != nil {
		return domain.Check{}, fmt.Errorf("file.Store.Read %s: %w: %v", id, repo.ErrCorrupt, err)
	}
	return c, nil
}

// Update replaces an existing document. The new content is written to a
// temporary file and renamed over the old one.
func (s *Store) Update(ctx context.Context, c domain.Check) error {
	p, err := s.path(c.ID)
	if err != nil {
		return fmt.Errorf("file.Store.Update: %w", err)
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("file.Store.Update %s: %w", c.ID, repo.ErrNotFound)
		}
		return fmt.Errorf("file.Store.Update %s: %w", c.ID, err)
	}
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("file.Store.Update: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+string(c.ID)+"-*")
	if err != nil {
		return fmt.Errorf("file.Store.Update %s: %w", c.ID, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("file.Store.Update %s: %w", c.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file.Store.Update %s: %w", c.ID, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("file.Store.Update %s: %w", c.ID, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, id domain.CheckID) error {
	p, err := s.path(id)
	if err != nil {
		return fmt.Errorf("file.Store.Remove: %w", err)
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("file.Store.Remove %s: %w", id, repo.ErrNotFound)
		}
		return fmt.Errorf("file.Store.Remove %s: %w", id, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]domain.CheckID, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("file.Store.List: %w", err)
	}
	out := make([]domain.CheckID, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, suffix) {
			continue
		}
		out = append(out, domain.CheckID(strings.TrimSuffix(name, suffix)))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

var _ repo.CheckStore = (*Store)(nil)
