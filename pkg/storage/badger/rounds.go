package badger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/absmach/cohort/pkg/round"
	"github.com/dgraph-io/badger/v4"
)

const (
	roundPrefix   = "round:"
	roundIDPrefix = "round-id:"
)

// RoundRepository stores each round under a key ordered by run, number and
// attempt, with a secondary key from the round id.
type RoundRepository struct {
	db *Database
}

func NewRoundRepository(db *Database) *RoundRepository {
	return &RoundRepository{db: db}
}

func roundKey(r round.Round) []byte {
	return fmt.Appendf(nil, "%s%s:%020d:%020d", roundPrefix, r.RunID, r.Number, r.Attempt)
}

func (r *RoundRepository) Save(_ context.Context, rd round.Round) error {
	val, err := json.Marshal(rd.Summary())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	key := roundKey(rd)

	err = r.db.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, val); err != nil {
			return err
		}

		return txn.Set([]byte(roundIDPrefix+rd.ID), key)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	return nil
}

func (r *RoundRepository) Get(_ context.Context, id string) (round.Round, error) {
	key, err := r.db.raw([]byte(roundIDPrefix + id))
	if err != nil {
		return round.Round{}, err
	}

	return read[round.Round](r.db, key)
}

func (r *RoundRepository) ListByRun(_ context.Context, runID string, offset, limit uint64) ([]round.Round, uint64, error) {
	return scan[round.Round](r.db, []byte(roundPrefix+runID+":"), offset, limit)
}
