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

type RoundRepository struct {
	db *Database
}

func NewRoundRepository(db *Database) *RoundRepository {
	return &RoundRepository{db: db}
}

func (r *RoundRepository) Save(ctx context.Context, rd round.Round) error {
	body, err := json.Marshal(rd.Summary())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMarshal, err)
	}

	query := r.db.Rebind(`INSERT INTO rounds (id, run_id, number, attempt, status, body)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET status = excluded.status, body = excluded.body`)

	if _, err := r.db.ExecContext(ctx, query, rd.ID, rd.RunID, rd.Number, rd.Attempt, rd.Status.String(), string(body)); err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}

	return nil
}

func (r *RoundRepository) Get(ctx context.Context, id string) (round.Round, error) {
	var body string
	if err := r.db.GetContext(ctx, &body, r.db.Rebind(`SELECT body FROM rounds WHERE id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return round.Round{}, pkgerrors.ErrNotFound
		}

		return round.Round{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return decode[round.Round](body)
}

func (r *RoundRepository) ListByRun(ctx context.Context, runID string, offset, limit uint64) ([]round.Round, uint64, error) {
	var total uint64
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM rounds WHERE run_id = ?`), runID); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	query := r.db.Rebind(`SELECT body FROM rounds WHERE run_id = ? ORDER BY number, attempt LIMIT ? OFFSET ?`)

	var bodies []string
	if err := r.db.SelectContext(ctx, &bodies, query, runID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBScan, err)
	}

	rounds := make([]round.Round, 0, len(bodies))
	for _, b := range bodies {
		rd, err := decode[round.Round](b)
		if err != nil {
			return nil, 0, err
		}
		rounds = append(rounds, rd)
	}

	return rounds, total, nil
}

func decode[T any](body string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return v, fmt.Errorf("%w: %w", ErrDBScan, err)
	}

	return v, nil
}
