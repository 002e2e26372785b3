package galois

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by a ParameterStore that holds nothing for a degree
var ErrNotFound = errors.New("field parameters not found")

// ParameterStore persists field parameters so the generator search runs once
type ParameterStore interface {
	LoadParameters(ctx context.Context, degree uint) (Parameters, error)
	SaveParameters(ctx context.Context, params Parameters) error
}

// FileStore keeps parameters in a text file, one "<degree> <polynomial> <generator>" line per degree
type FileStore struct {
	Path string
}

// NewFileStore creates a file-backed store
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// LoadParameters reads the line for the requested degree
func (s *FileStore) LoadParameters(_ context.Context, degree uint) (Parameters, error) {
	all, err := s.readAll()
	if err != nil {
		return Parameters{}, err
	}
	params, ok := all[degree]
	if !ok {
		return Parameters{}, ErrNotFound
	}
	return params, nil
}

// SaveParameters writes (or replaces) the line for params.Degree
func (s *FileStore) SaveParameters(_ context.Context, params Parameters) error {
	if err := params.Verify(); err != nil {
		return err
	}

	all, err := s.readAll()
	if err != nil {
		return err
	}
	all[params.Degree] = params

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}

	var b strings.Builder
	for _, degree := range []uint{8, 16} {
		if p, ok := all[degree]; ok {
			fmt.Fprintf(&b, "%d %d %d\n", p.Degree, p.Polynomial, p.Generator)
		}
	}
	return os.WriteFile(s.Path, []byte(b.String()), 0o644)
}

func (s *FileStore) readAll() (map[uint]Parameters, error) {
	all := make(map[uint]Parameters)

	content, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return all, nil
	}
	if err != nil {
		return nil, err
	}

	for n, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var p Parameters
		if _, err := fmt.Sscanf(line, "%d %d %d", &p.Degree, &p.Polynomial, &p.Generator); err != nil {
			return nil, fmt.Errorf("%s:%d: malformed field parameters: %w", s.Path, n+1, err)
		}
		if err := p.Verify(); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", s.Path, n+1, err)
		}
		all[p.Degree] = p
	}
	return all, nil
}

// Ensure loads the parameters for a degree from the store, or searches for
// new ones and saves them when the store has none.
func Ensure(ctx context.Context, store ParameterStore, degree uint, rng *rand.Rand) (*Field, error) {
	params, err := store.LoadParameters(ctx, degree)
	if errors.Is(err, ErrNotFound) {
		params, err = FindParameters(degree, rng)
		if err != nil {
			return nil, err
		}
		if err := store.SaveParameters(ctx, params); err != nil {
			return nil, fmt.Errorf("failed to save field parameters: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load field parameters: %w", err)
	}

	return NewField(params)
}
