package model

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"
)

// Loader memoizes the model at a path and reloads it when the file's
// modification time or size changes. It is safe for concurrent use.
type Loader struct {
	path string

	mu      sync.Mutex
	model   *Model
	modTime time.Time
	size    int64
}

// NewLoader creates a Loader for path. Nothing is read until Model is called.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the artifact path.
func (l *Loader) Path() string { return l.path }

// Model returns the current model, or ErrModelUnavailable when no artifact
// exists.
func (l *Loader) Model() (*Model, error) {
	info, err := os.Stat(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		l.mu.Lock()
		l.model = nil
		l.mu.Unlock()
		return nil, ErrModelUnavailable
	}
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model != nil && info.ModTime().Equal(l.modTime) && info.Size() == l.size {
		return l.model, nil
	}
	m, err := Load(l.path)
	if err != nil {
		return nil, err
	}
	l.model, l.modTime, l.size = m, info.ModTime(), info.Size()
	return m, nil
}

// CheckReadiness reports whether a model can be served.
func (l *Loader) CheckReadiness(_ context.Context) error {
	_, err := l.Model()
	return err
}
