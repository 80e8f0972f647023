// Package badger keeps clients, runs and round summaries in an embedded
// badger store. Keys are namespaced by prefix so one database serves all
// three repositories.
package badger

import (
	"encoding/json"
	"errors"
	"fmt"

	pkgerrors "github.com/absmach/cohort/pkg/errors"
	"github.com/dgraph-io/badger/v4"
)

var (
	ErrOpen    = errors.New("failed to open badger database")
	ErrRead    = errors.New("failed to read from badger")
	ErrWrite   = errors.New("failed to write to badger")
	ErrEncode  = errors.New("failed to encode record")
	ErrDecode  = errors.New("failed to decode record")
	errNoValue = errors.New("key holds no value")
)

type Database struct {
	db *badger.DB
}

func NewDatabase(path string) (*Database, error) {
	return open(badger.DefaultOptions(path))
}

// NewInMemoryDatabase is used by tests and ephemeral hosts.
func NewInMemoryDatabase() (*Database, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Database, error) {
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// mode controls how write treats an existing key.
type mode int

const (
	upsert mode = iota
	createOnly
	updateOnly
)

func write[T any](d *Database, key []byte, v T, m mode) error {
	if len(key) == 0 {
		return pkgerrors.ErrEmptyKey
	}
	val, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}

	return d.db.Update(func(txn *badger.Txn) error {
		if m != upsert {
			found, err := exists(txn, key)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrRead, err)
			}
			switch {
			case m == createOnly && found:
				return pkgerrors.ErrEntityExists
			case m == updateOnly && !found:
				return pkgerrors.ErrNotFound
			}
		}
		if err := txn.Set(key, val); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}

		return nil
	})
}

func read[T any](d *Database, key []byte) (T, error) {
	var v T
	val, err := d.raw(key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(val, &v); err != nil {
		return v, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return v, nil
}

// scan decodes one page of records under prefix and counts all of them in
// the same read transaction.
func scan[T any](d *Database, prefix []byte, offset, limit uint64) ([]T, uint64, error) {
	items := []T{}
	var total uint64
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			pos := total
			total++
			if pos < offset || uint64(len(items)) >= limit {
				continue
			}
			var v T
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &v)
			}); err != nil {
				return fmt.Errorf("%w: %w", ErrDecode, err)
			}
			items = append(items, v)
		}

		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (d *Database) raw(key []byte) ([]byte, error) {
	var val []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)

		return err
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, pkgerrors.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	case len(val) == 0:
		return nil, errNoValue
	}

	return val, nil
}

func (d *Database) remove(key []byte) error {
	return d.db.Update(func(txn *badger.Txn) error {
		found, err := exists(txn, key)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRead, err)
		}
		if !found {
			return pkgerrors.ErrNotFound
		}

		return txn.Delete(key)
	})
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}
