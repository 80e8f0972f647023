package storage

import (
	"cmp"
	"context"
	"maps"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/round"
)

type memoryClientRepository struct {
	clients *table[client.Registration]
}

func newMemoryClientRepository() ClientRepository {
	key := func(c client.Registration) string { return c.ClientID }

	return &memoryClientRepository{clients: newTable(key, nil)}
}

func (r *memoryClientRepository) Create(ctx context.Context, c client.Registration) error {
	return r.clients.insert(ctx, c)
}

func (r *memoryClientRepository) Get(ctx context.Context, id string) (client.Registration, error) {
	return r.clients.get(ctx, id)
}

func (r *memoryClientRepository) Update(ctx context.Context, c client.Registration) error {
	return r.clients.put(ctx, c, true)
}

func (r *memoryClientRepository) List(ctx context.Context, offset, limit uint64) ([]client.Registration, uint64, error) {
	clients, total := r.clients.list(ctx, nil, offset, limit)

	return clients, total, nil
}

func (r *memoryClientRepository) Delete(ctx context.Context, id string) error {
	return r.clients.remove(ctx, id)
}

type memoryRoundRepository struct {
	rounds *table[round.Round]
}

func newMemoryRoundRepository() RoundRepository {
	key := func(rd round.Round) string { return rd.ID }
	order := func(a, b round.Round) int {
		return cmp.Or(
			cmp.Compare(a.RunID, b.RunID),
			cmp.Compare(a.Number, b.Number),
			cmp.Compare(a.Attempt, b.Attempt),
		)
	}

	return &memoryRoundRepository{rounds: newTable(key, order)}
}

// Save keeps the summary only so snapshots are not retained in memory.
func (r *memoryRoundRepository) Save(ctx context.Context, rd round.Round) error {
	return r.rounds.put(ctx, rd.Summary(), false)
}

func (r *memoryRoundRepository) Get(ctx context.Context, id string) (round.Round, error) {
	return r.rounds.get(ctx, id)
}

func (r *memoryRoundRepository) ListByRun(ctx context.Context, runID string, offset, limit uint64) ([]round.Round, uint64, error) {
	match := func(rd round.Round) bool { return rd.RunID == runID }
	rounds, total := r.rounds.list(ctx, match, offset, limit)

	return rounds, total, nil
}

type memoryRunRepository struct {
	runs *table[round.Run]
}

func newMemoryRunRepository() RunRepository {
	key := func(run round.Run) string { return run.ID }

	return &memoryRunRepository{runs: newTable(key, nil)}
}

func (r *memoryRunRepository) Save(ctx context.Context, run round.Run) error {
	run.Artifacts = maps.Clone(run.Artifacts)

	return r.runs.put(ctx, run, false)
}

func (r *memoryRunRepository) Get(ctx context.Context, id string) (round.Run, error) {
	return r.runs.get(ctx, id)
}

func (r *memoryRunRepository) List(ctx context.Context, offset, limit uint64) ([]round.Run, uint64, error) {
	runs, total := r.runs.list(ctx, nil, offset, limit)

	return runs, total, nil
}
