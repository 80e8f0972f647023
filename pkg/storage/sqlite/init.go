package sqlite

import (
	"github.com/absmach/cohort/pkg/storage/sqldb"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"
)

func NewDatabase(path string) (*sqldb.Database, error) {
	return sqldb.Connect("sqlite3", path, "sqlite3", Migrations())
}

func Migrations() []*migrate.Migration {
	return []*migrate.Migration{
		{
			Id: "1_create_tables",
			Up: []string{
				`CREATE TABLE IF NOT EXISTS clients (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					address TEXT NOT NULL DEFAULT '',
					available INTEGER NOT NULL DEFAULT 1,
					last_seen TIMESTAMP NOT NULL,
					registered_at TIMESTAMP NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_clients_available ON clients(available)`,
				`CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					status TEXT NOT NULL,
					started_at TIMESTAMP NOT NULL,
					body TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS rounds (
					id TEXT PRIMARY KEY,
					run_id TEXT NOT NULL,
					number INTEGER NOT NULL,
					attempt INTEGER NOT NULL,
					status TEXT NOT NULL,
					body TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_rounds_run ON rounds(run_id, number, attempt)`,
			},
			Down: []string{
				`DROP INDEX IF EXISTS idx_rounds_run`,
				`DROP TABLE IF EXISTS rounds`,
				`DROP TABLE IF EXISTS runs`,
				`DROP INDEX IF EXISTS idx_clients_available`,
				`DROP TABLE IF EXISTS clients`,
			},
		},
	}
}
