package blob

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
)

const checksumSuffix = ".b3"

type checksummed struct {
	store Store
}

// Checksummed stores a BLAKE3 digest next to every blob and verifies it on read.
func Checksummed(store Store) Store {
	return &checksummed{store: store}
}

func (c *checksummed) Put(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	sum := blake3.Sum256(data)
	if err := c.store.Put(ctx, key, data); err != nil {
		return err
	}

	return c.store.Put(ctx, key+checksumSuffix, []byte(hex.EncodeToString(sum[:])))
}

func (c *checksummed) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	want, err := c.store.Get(ctx, key+checksumSuffix)
	switch {
	case errors.Is(err, ErrNotFound):
		return data, nil
	case err != nil:
		return nil, err
	}

	sum := blake3.Sum256(data)
	got := []byte(hex.EncodeToString(sum[:]))
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, key)
	}

	return data, nil
}
