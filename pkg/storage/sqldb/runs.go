package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	pkgerrors "github.com/absmach/cohort/pkg/errors"
	"github.com/absmach/cohort/pkg/round"
)

type RunRepository struct {
	db *Database
}

func NewRunRepository(db *Database) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Save(ctx context.Context, run round.Run) error {
	body, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMarshal, err)
	}

	query := r.db.Rebind(`INSERT INTO runs (id, status, started_at, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET status = excluded.status, body = excluded.body`)

	if _, err := r.db.ExecContext(ctx, query, run.ID, run.Status.String(), run.StartedAt.UTC(), string(body)); err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}

	return nil
}

func (r *RunRepository) Get(ctx context.Context, id string) (round.Run, error) {
	var body string
	if err := r.db.GetContext(ctx, &body, r.db.Rebind(`SELECT body FROM runs WHERE id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return round.Run{}, pkgerrors.ErrNotFound
		}

		return round.Run{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return decode[round.Run](body)
}

func (r *RunRepository) List(ctx context.Context, offset, limit uint64) ([]round.Run, uint64, error) {
	var total uint64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM runs"); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	query := r.db.Rebind(`SELECT body FROM runs ORDER BY id LIMIT ? OFFSET ?`)

	var bodies []string
	if err := r.db.SelectContext(ctx, &bodies, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBScan, err)
	}

	runs := make([]round.Run, 0, len(bodies))
	for _, b := range bodies {
		run, err := decode[round.Run](b)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}

	return runs, total, nil
}
