package badger

import (
	"context"

	"github.com/absmach/cohort/pkg/round"
)

const runPrefix = "run:"

type RunRepository struct {
	db *Database
}

func NewRunRepository(db *Database) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Save(_ context.Context, run round.Run) error {
	return write(r.db, []byte(runPrefix+run.ID), run, upsert)
}

func (r *RunRepository) Get(_ context.Context, id string) (round.Run, error) {
	return read[round.Run](r.db, []byte(runPrefix+id))
}

func (r *RunRepository) List(_ context.Context, offset, limit uint64) ([]round.Run, uint64, error) {
	return scan[round.Run](r.db, []byte(runPrefix), offset, limit)
}
