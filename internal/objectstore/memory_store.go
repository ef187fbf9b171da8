package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps objects in process memory. It backs local runs without
// a blob store; its URLs are only meaningful inside the process.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) GetFileBytes(_ context.Context, objectName string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[objectName]
	if !ok {
		return nil, fmt.Errorf("object '%s': %w", objectName, fs.ErrNotExist)
	}
	return bytes.Clone(data), nil
}

func (m *MemoryStore) GetFileReader(ctx context.Context, objectName string) (io.ReadCloser, int64, error) {
	data, err := m.GetFileBytes(ctx, objectName)
	if err != nil {
		return nil, 0, err
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (m *MemoryStore) UploadFile(ctx context.Context, originalFilename string, reader io.Reader, size int64, contentType string) (string, error) {
	name := UniqueObjectName(originalFilename)
	if err := m.PutNamed(ctx, name, reader, size, contentType); err != nil {
		return "", err
	}
	return name, nil
}

func (m *MemoryStore) PutNamed(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read upload for '%s': %w", objectName, err)
	}
	m.mu.Lock()
	m.objects[objectName] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteFile(_ context.Context, objectName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[objectName]; !ok {
		return fmt.Errorf("object '%s': %w", objectName, fs.ErrNotExist)
	}
	delete(m.objects, objectName)
	return nil
}

func (m *MemoryStore) PresignedURL(_ context.Context, objectName string, _ time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[objectName]; !ok {
		return "", fmt.Errorf("object '%s': %w", objectName, fs.ErrNotExist)
	}
	return "memory:///" + objectName, nil
}

// ListObjects returns the names of objects under prefix in lexical order.
func (m *MemoryStore) ListObjects(_ context.Context, prefix string) ([]string, error) {
	return m.Names(prefix), nil
}

// Names lists stored object names with the given prefix.
func (m *MemoryStore) Names(prefix string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}
