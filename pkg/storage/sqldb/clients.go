package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/absmach/cohort/client"
	pkgerrors "github.com/absmach/cohort/pkg/errors"
)

type ClientRepository struct {
	db *Database
}

func NewClientRepository(db *Database) *ClientRepository {
	return &ClientRepository{db: db}
}

type dbClient struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Address      string    `db:"address"`
	Available    bool      `db:"available"`
	LastSeen     time.Time `db:"last_seen"`
	RegisteredAt time.Time `db:"registered_at"`
}

func (r *ClientRepository) Create(ctx context.Context, c client.Registration) error {
	query := r.db.Rebind(`INSERT INTO clients (id, name, address, available, last_seen, registered_at)
		VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`)

	res, err := r.db.ExecContext(ctx, query, c.ClientID, c.Name, c.Address, c.Available, c.LastSeen.UTC(), c.RegisteredAt.UTC())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return pkgerrors.ErrEntityExists
	}

	return nil
}

func (r *ClientRepository) Get(ctx context.Context, id string) (client.Registration, error) {
	query := r.db.Rebind(`SELECT id, name, address, available, last_seen, registered_at FROM clients WHERE id = ?`)

	var dbc dbClient
	if err := r.db.GetContext(ctx, &dbc, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return client.Registration{}, pkgerrors.ErrNotFound
		}

		return client.Registration{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return dbc.toRegistration(), nil
}

func (r *ClientRepository) Update(ctx context.Context, c client.Registration) error {
	query := r.db.Rebind(`UPDATE clients SET name = ?, address = ?, available = ?, last_seen = ? WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, c.Name, c.Address, c.Available, c.LastSeen.UTC(), c.ClientID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}

	return notFoundIfNone(res)
}

func (r *ClientRepository) List(ctx context.Context, offset, limit uint64) ([]client.Registration, uint64, error) {
	var total uint64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM clients"); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	query := r.db.Rebind(`SELECT id, name, address, available, last_seen, registered_at FROM clients ORDER BY id LIMIT ? OFFSET ?`)

	var rows []dbClient
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBScan, err)
	}

	clients := make([]client.Registration, 0, len(rows))
	for _, row := range rows {
		clients = append(clients, row.toRegistration())
	}

	return clients, total, nil
}

func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM clients WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return notFoundIfNone(res)
}

func (c dbClient) toRegistration() client.Registration {
	return client.Registration{
		ClientID:     c.ID,
		Name:         c.Name,
		Address:      c.Address,
		Available:    c.Available,
		LastSeen:     c.LastSeen,
		RegisteredAt: c.RegisteredAt,
	}
}

func notFoundIfNone(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDBQuery, err)
	}
	if n == 0 {
		return pkgerrors.ErrNotFound
	}

	return nil
}
