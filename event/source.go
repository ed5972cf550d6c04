package event

import (
	"context"
	"sync"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

// Source is a columnar event container. Callers fetch the catalog once,
// resolve the fields they need, read them, and close the source.
type Source interface {
	// Fields returns the available fields.
	Fields(ctx context.Context) ([]FieldInfo, error)
	// Read returns a batch holding exactly the requested fields.
	Read(ctx context.Context, fields []string) (*Batch, error)
	// Close releases the source. Further calls fail with ErrClosed.
	Close() error
}

// MemorySource serves an in-memory batch.
type MemorySource struct {
	mu     sync.Mutex
	batch  *Batch
	closed bool
}

// NewMemorySource wraps a batch after validating it.
func NewMemorySource(b *Batch) (*MemorySource, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &MemorySource{batch: b}, nil
}

// Fields implements Source.
func (m *MemorySource) Fields(ctx context.Context) ([]FieldInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.Wrap(errors.ErrClosed, "memory source")
	}
	return m.batch.Catalog(), ctx.Err()
}

// Read implements Source.
func (m *MemorySource) Read(ctx context.Context, fields []string) (*Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.Wrap(errors.ErrClosed, "memory source")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.batch.Project(fields)
}

// Close implements Source.
func (m *MemorySource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MemorySource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
