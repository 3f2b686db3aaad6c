package client

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/hanpama/typeddoc"
)

// ErrMiss is returned by Store.Get for absent keys.
var ErrMiss = errors.New("client: cache miss")

// Store holds serialized operation results and fragments by key.
type Store interface {
	// Get returns ErrMiss when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string][]byte{}}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len reports the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// QueryKey is the store key of the result of doc's selected operation run
// with vars. Variables are hashed in their JSON form with sorted keys.
func QueryKey(doc typeddoc.Node, opName string, vars map[string]any) (string, error) {
	h := xxhash.New()
	h.WriteString(doc.Source())
	h.WriteString("\x00")
	if len(vars) > 0 {
		raw, err := codec.Marshal(vars)
		if err != nil {
			return "", err
		}
		h.Write(raw)
	}
	return "query:" + opName + ":" + strconv.FormatUint(h.Sum64(), 16), nil
}

// FragmentKey is the store key of the entity id as selected by fragment name.
func FragmentKey(name, id string) string {
	return "fragment:" + name + ":" + id
}
