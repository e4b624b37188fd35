package storage

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps files in a map. Used by tests and the CLI dry-run mode.
type Memory struct {
	mu    sync.RWMutex
	files map[string]memoryFile
}

type memoryFile struct {
	contentType string
	data        []byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]memoryFile)}
}

func (m *Memory) Open(ctx context.Context, ref string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return append([]byte(nil), f.data...), nil
}

func (m *Memory) Save(ctx context.Context, dir, name, contentType string, data []byte) (string, error) {
	ref, err := join(dir, name)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	candidate := ref
	for {
		if _, taken := m.files[candidate]; !taken {
			break
		}
		candidate = alternate(ref)
	}
	m.files[candidate] = memoryFile{contentType: contentType, data: append([]byte(nil), data...)}
	return candidate, nil
}

func (m *Memory) URL(ref string) string {
	return "/media/" + ref
}

// ContentType returns the content type a file was saved with.
func (m *Memory) ContentType(ref string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.files[ref].contentType
}

// Refs returns every stored reference.
func (m *Memory) Refs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	refs := make([]string, 0, len(m.files))
	for ref := range m.files {
		refs = append(refs, ref)
	}
	return refs
}
