package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"modbot/internal/app/infrastructure/config"
	"os"
	"sync"
)

// JSONFile persists a single value of type T as an indented JSON document.
// Every Save rewrites the whole file atomically.
type JSONFile[T any] struct {
	mu   sync.Mutex
	path string
}

func NewJSONFile[T any](path string) *JSONFile[T] {
	return &JSONFile[T]{path: path}
}

func (f *JSONFile[T]) Path() string {
	return f.path
}

// Load returns the zero value of T when the file does not exist yet.
func (f *JSONFile[T]) Load() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var val T
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return val, nil
	}
	if err != nil {
		return val, fmt.Errorf("read %s: %w", f.path, err)
	}
	if len(raw) == 0 {
		return val, nil
	}

	if err := json.Unmarshal(raw, &val); err != nil {
		return val, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return val, nil
}

func (f *JSONFile[T]) Save(val T) error {
	data, err := json.MarshalIndent(val, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", f.path, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := config.WriteAtomic(f.path, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}
