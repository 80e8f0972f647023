package postgres

import (
	"fmt"

	"github.com/absmach/cohort/pkg/storage/sqldb"
	_ "github.com/jackc/pgx/v5/stdlib"
	migrate "github.com/rubenv/sql-migrate"
)

type Config struct {
	Host    string `env:"HOST"    envDefault:"localhost"`
	Port    string `env:"PORT"    envDefault:"5432"`
	User    string `env:"USER"    envDefault:"cohort"`
	Pass    string `env:"PASS"    envDefault:"cohort"`
	Name    string `env:"DB"      envDefault:"cohort"`
	SSLMode string `env:"SSLMODE" envDefault:"disable"`
}

func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s", c.Host, c.Port, c.User, c.Pass, c.Name, c.SSLMode)
}

func NewDatabase(cfg Config) (*sqldb.Database, error) {
	return sqldb.Connect("pgx", cfg.DSN(), "postgres", Migrations())
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
					available BOOLEAN NOT NULL DEFAULT TRUE,
					last_seen TIMESTAMPTZ NOT NULL,
					registered_at TIMESTAMPTZ NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_clients_available ON clients(available)`,
				`CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					status TEXT NOT NULL,
					started_at TIMESTAMPTZ NOT NULL,
					body TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS rounds (
					id TEXT PRIMARY KEY,
					run_id TEXT NOT NULL,
					number BIGINT NOT NULL,
					attempt BIGINT NOT NULL,
					status TEXT NOT NULL,
					body TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_rounds_run ON rounds(run_id, number, attempt)`,
			},
			Down: []string{
				`DROP TABLE IF EXISTS rounds`,
				`DROP TABLE IF EXISTS runs`,
				`DROP TABLE IF EXISTS clients`,
			},
		},
	}
}
