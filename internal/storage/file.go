// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/jeranaias/sumer-tui/internal/util"
)

// FilePerm is the permission of the credentials file. It holds a bearer token.
const FilePerm os.FileMode = 0600

// =============================================================================
// FILE KV
// =============================================================================

// FileKV persists the whole map as one JSON object. Every write rewrites the
// file atomically, so the on-disk state is always a complete snapshot.
type FileKV struct {
	path string

	mu     sync.Mutex
	values map[string]string
	closed bool
}

// NewFileKV loads path if it exists. A missing file is an empty store.
func NewFileKV(path string) (*FileKV, error) {
	if path == "" {
		return nil, errors.New("file store requires a path")
	}
	f := &FileKV{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f.values); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if f.values == nil {
		f.values = make(map[string]string)
	}
	return f, nil
}

// Path returns the backing file.
func (f *FileKV) Path() string {
	return f.path
}

func (f *FileKV) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", false, ErrClosed
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *FileKV) SetMany(values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	next := make(map[string]string, len(f.values)+len(values))
	for k, v := range f.values {
		next[k] = v
	}
	for k, v := range values {
		next[k] = v
	}
	if err := f.flush(next); err != nil {
		return err
	}
	f.values = next
	return nil
}

func (f *FileKV) Delete(keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	next := make(map[string]string, len(f.values))
	for k, v := range f.values {
		next[k] = v
	}
	for _, k := range keys {
		delete(next, k)
	}
	if err := f.flush(next); err != nil {
		return err
	}
	f.values = next
	return nil
}

func (f *FileKV) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// flush must be called with f.mu held.
func (f *FileKV) flush(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}
	if err := util.AtomicWriteFile(f.path, data, FilePerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.path, err)
	}
	return nil
}
