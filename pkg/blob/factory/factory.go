package factory

import (
	"context"
	"fmt"
	"io"

	"github.com/absmach/cohort/pkg/blob"
	"github.com/absmach/cohort/pkg/blob/badger"
	"github.com/absmach/cohort/pkg/blob/s3"
)

type Config struct {
	Type     string    `env:"BLOB_TYPE"     envDefault:"fs"`
	Path     string    `env:"BLOB_PATH"     envDefault:"./data/blobs"`
	Checksum bool      `env:"BLOB_CHECKSUM" envDefault:"true"`
	S3       s3.Config `envPrefix:"BLOB_S3_"`
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the configured store. The returned closer is never nil.
func New(ctx context.Context, cfg Config) (blob.Store, io.Closer, error) {
	var (
		store  blob.Store
		closer io.Closer = nopCloser{}
	)

	switch cfg.Type {
	case "memory":
		store = blob.NewMemoryStore()
	case "fs":
		fs, err := blob.NewFSStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		store = fs
	case "badger":
		db, err := badger.NewStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		store, closer = db, db
	case "s3":
		s, err := s3.NewStore(ctx, cfg.S3)
		if err != nil {
			return nil, nil, err
		}
		store = s
	default:
		return nil, nil, fmt.Errorf("unsupported blob store type: %s", cfg.Type)
	}

	if cfg.Checksum {
		store = blob.Checksummed(store)
	}

	return store, closer, nil
}
