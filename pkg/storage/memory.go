package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/absmach/cohort/pkg/errors"
)

// table is a typed in-memory collection kept sorted by the order func.
type table[T any] struct {
	mu    sync.RWMutex
	rows  map[string]T
	key   func(T) string
	order func(a, b T) int
}

func newTable[T any](key func(T) string, order func(a, b T) int) *table[T] {
	if order == nil {
		order = func(a, b T) int { return cmp.Compare(key(a), key(b)) }
	}

	return &table[T]{rows: make(map[string]T), key: key, order: order}
}

func (t *table[T]) insert(_ context.Context, row T) error {
	k := t.key(row)
	if k == "" {
		return errors.ErrEmptyKey
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rows[k]; ok {
		return errors.ErrEntityExists
	}
	t.rows[k] = row

	return nil
}

// put writes row. With mustExist set, a missing row is ErrNotFound.
func (t *table[T]) put(_ context.Context, row T, mustExist bool) error {
	k := t.key(row)
	if k == "" {
		return errors.ErrEmptyKey
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rows[k]; mustExist && !ok {
		return errors.ErrNotFound
	}
	t.rows[k] = row

	return nil
}

func (t *table[T]) get(_ context.Context, k string) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	row, ok := t.rows[k]
	if !ok {
		var zero T

		return zero, errors.ErrNotFound
	}

	return row, nil
}

func (t *table[T]) remove(_ context.Context, k string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rows[k]; !ok {
		return errors.ErrNotFound
	}
	delete(t.rows, k)

	return nil
}

// list returns the matching rows in table order along with their count.
func (t *table[T]) list(_ context.Context, match func(T) bool, offset, limit uint64) ([]T, uint64) {
	t.mu.RLock()
	rows := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		if match == nil || match(row) {
			rows = append(rows, row)
		}
	}
	t.mu.RUnlock()

	slices.SortFunc(rows, t.order)

	return page(rows, offset, limit), uint64(len(rows))
}

func page[T any](items []T, offset, limit uint64) []T {
	total := uint64(len(items))
	if offset >= total {
		return []T{}
	}

	end := total
	if limit < total-offset {
		end = offset + limit
	}

	return items[offset:end]
}
