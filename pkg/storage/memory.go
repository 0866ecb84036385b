package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/retry"
)

// Op names a store operation for fault injection.
type Op string

// Store operations.
const (
	OpDownload Op = "download"
	OpUpload   Op = "upload"
	OpList     Op = "list"
	OpRemove   Op = "remove"
)

// MemoryStore keeps blobs in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	faults  map[Op][]error
	calls   map[Op]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		faults:  make(map[Op][]error),
		calls:   make(map[Op]int),
	}
}

// FailNext makes the next n calls of op fail with a retryable storage error.
func (s *MemoryStore) FailNext(op Op, n int) {
	for range n {
		s.FailWith(op, retry.Retryable(errors.New(errors.ErrCodeStorage, "injected %s failure", op)))
	}
}

// FailWith queues err as the result of the next call of op.
func (s *MemoryStore) FailWith(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = append(s.faults[op], err)
}

// Calls returns how many times op has been invoked, including failures.
func (s *MemoryStore) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// enter records a call and pops a queued fault. Caller holds mu.
func (s *MemoryStore) enter(op Op) error {
	s.calls[op]++
	if q := s.faults[op]; len(q) > 0 {
		s.faults[op] = q[1:]
		return q[0]
	}
	return nil
}

// Download returns a copy of the blob at path.
func (s *MemoryStore) Download(ctx context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpDownload); err != nil {
		return nil, err
	}
	data, ok := s.objects[path]
	if !ok {
		return nil, notFound(path)
	}
	return append([]byte(nil), data...), nil
}

// Upload stores a copy of data at path.
func (s *MemoryStore) Upload(ctx context.Context, path string, data []byte) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpUpload); err != nil {
		return err
	}
	s.objects[path] = append([]byte(nil), data...)
	return nil
}

// List returns stored paths with the prefix.
func (s *MemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpList); err != nil {
		return nil, err
	}
	var out []string
	for p := range s.objects {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Remove deletes stored paths with the prefix.
func (s *MemoryStore) Remove(ctx context.Context, prefix string) error {
	if prefix == "" {
		return errors.New(errors.ErrCodeInvalidPath, "refusing to remove the whole store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpRemove); err != nil {
		return err
	}
	for p := range s.objects {
		if strings.HasPrefix(p, prefix) {
			delete(s.objects, p)
		}
	}
	return nil
}

// Len returns the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Close does nothing for memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
