// Package storage stores binary documents (signed contracts) outside the
// document store.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
)

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("object not found")

// Info describes a stored object.
type Info struct {
	Size        int64
	ContentType string
}

// Blobs is implemented by MinIOStorage and MemoryBlobs.
type Blobs interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, Info, error)
	Delete(ctx context.Context, key string) error
}

// ContractKey is the object key of a contrat's document.
func ContractKey(contratID, filename string) string {
	ext := path.Ext(filename)
	if ext == "" {
		ext = ".pdf"
	}
	return fmt.Sprintf("contrats/%s/document%s", contratID, ext)
}

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryBlobs is an in-process Blobs used when MinIO is not configured.
type MemoryBlobs struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryBlobs() *MemoryBlobs {
	return &MemoryBlobs{objects: map[string]memoryObject{}}
}

func (m *MemoryBlobs) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.objects[key] = memoryObject{data: data, contentType: contentType}
	m.mu.Unlock()
	return nil
}

func (m *MemoryBlobs) Get(_ context.Context, key string) (io.ReadCloser, Info, error) {
	m.mu.RLock()
	o, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, Info{}, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(o.data)), Info{Size: int64(len(o.data)), ContentType: o.contentType}, nil
}

func (m *MemoryBlobs) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}
