package blob

import (
	"bytes"
	"context"
	"sync"
)

type memoryStore struct {
	sync.RWMutex

	data map[string][]byte
}

func NewMemoryStore() Store {
	return &memoryStore{
		data: make(map[string][]byte),
	}
}

func (s *memoryStore) Put(_ context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	s.data[key] = bytes.Clone(data)

	return nil
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	s.RLock()
	defer s.RUnlock()

	data, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}

	return bytes.Clone(data), nil
}
