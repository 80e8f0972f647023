package storage

import (
	"fmt"
	"io"

	"github.com/absmach/cohort/pkg/storage/badger"
	"github.com/absmach/cohort/pkg/storage/postgres"
	"github.com/absmach/cohort/pkg/storage/sqldb"
	"github.com/absmach/cohort/pkg/storage/sqlite"
)

type Config struct {
	Type string `env:"STORAGE_TYPE" envDefault:"memory"`

	Postgres postgres.Config `envPrefix:"POSTGRES_"`

	SQLitePath string `env:"SQLITE_PATH" envDefault:"./cohort.db"`

	BadgerPath string `env:"BADGER_PATH" envDefault:"./data/badger"`
}

type Repositories struct {
	Clients ClientRepository
	Rounds  RoundRepository
	Runs    RunRepository
	// Closer closes the underlying persistent storage connection.
	// It is nil for the in-memory backend.
	Closer io.Closer
}

func NewRepositories(cfg Config) (*Repositories, error) {
	switch cfg.Type {
	case "postgres":
		db, err := postgres.NewDatabase(cfg.Postgres)
		if err != nil {
			return nil, err
		}

		return FromSQL(db), nil
	case "sqlite":
		db, err := sqlite.NewDatabase(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}

		return FromSQL(db), nil
	case "badger":
		db, err := badger.NewDatabase(cfg.BadgerPath)
		if err != nil {
			return nil, err
		}

		return FromBadger(db), nil
	case "memory":
		return NewMemoryRepositories(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func NewMemoryRepositories() *Repositories {
	return &Repositories{
		Clients: newMemoryClientRepository(),
		Rounds:  newMemoryRoundRepository(),
		Runs:    newMemoryRunRepository(),
	}
}

func FromBadger(db *badger.Database) *Repositories {
	return &Repositories{
		Clients: badger.NewClientRepository(db),
		Rounds:  badger.NewRoundRepository(db),
		Runs:    badger.NewRunRepository(db),
		Closer:  db,
	}
}

// FromSQL wraps an already migrated sqlite or postgres database.
func FromSQL(db *sqldb.Database) *Repositories {
	repos := sqldb.NewRepositories(db)

	return &Repositories{
		Clients: repos.Clients,
		Rounds:  repos.Rounds,
		Runs:    repos.Runs,
		Closer:  db,
	}
}

