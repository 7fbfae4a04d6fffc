// Package archive stores generated report payloads in an object store
// for later retrieval. Archival is best-effort and asynchronous; report
// delivery to the caller never waits on it.
package archive

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ObjectStore writes named objects.
type ObjectStore interface {
	// Put stores data under the given object name.
	Put(ctx context.Context, objectName, contentType string, data []byte) error
}

// ObjectName builds the archive object path for a report file generated
// at the given time, e.g. "reports/2024/03/05/account-report-2024-03-05.csv".
func ObjectName(generatedAt time.Time, filename string) string {
	return fmt.Sprintf("reports/%s/%s", generatedAt.Format("2006/01/02"), filename)
}

// Memory is an in-memory ObjectStore for tests.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemory creates an empty in-memory object store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

// Put implements ObjectStore.
func (m *Memory) Put(ctx context.Context, objectName, contentType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[objectName] = cp
	return nil
}

// Get returns a stored object, or nil when absent.
func (m *Memory) Get(objectName string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[objectName]
}

var _ ObjectStore = (*Memory)(nil)
