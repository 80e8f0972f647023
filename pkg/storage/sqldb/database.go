package sqldb

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
)

var (
	ErrDBConnection = errors.New("database connection error")
	ErrDBQuery      = errors.New("database query error")
	ErrDBScan       = errors.New("database scan error")
	ErrMigration    = errors.New("database migration error")
	ErrCreate       = errors.New("create error")
	ErrUpdate       = errors.New("update error")
	ErrDelete       = errors.New("delete error")
	ErrMarshal      = errors.New("marshal error")
)

// Database wraps a sqlx handle shared by the sqlite and postgres backends.
// Queries are written with ? placeholders and rebound for the driver.
type Database struct {
	*sqlx.DB
}

// Connect opens the database and applies migrations for the given sql-migrate dialect.
func Connect(driver, dsn, dialect string, migrations []*migrate.Migration) (*Database, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBConnection, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	database := &Database{DB: db}
	if err := database.Migrate(dialect, migrations); err != nil {
		db.Close()

		return nil, err
	}

	return database, nil
}

func (db *Database) Migrate(dialect string, migrations []*migrate.Migration) error {
	src := &migrate.MemoryMigrationSource{Migrations: migrations}
	if _, err := migrate.Exec(db.DB.DB, dialect, src, migrate.Up); err != nil {
		return fmt.Errorf("%w: %w", ErrMigration, err)
	}

	return nil
}

type Repositories struct {
	Clients *ClientRepository
	Rounds  *RoundRepository
	Runs    *RunRepository
}

func NewRepositories(db *Database) *Repositories {
	return &Repositories{
		Clients: NewClientRepository(db),
		Rounds:  NewRoundRepository(db),
		Runs:    NewRunRepository(db),
	}
}
