package storage

import (
	"context"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/round"
)

type ClientRepository interface {
	Create(ctx context.Context, c client.Registration) error
	Get(ctx context.Context, id string) (client.Registration, error)
	Update(ctx context.Context, c client.Registration) error
	List(ctx context.Context, offset, limit uint64) ([]client.Registration, uint64, error)
	Delete(ctx context.Context, id string) error
}

// RoundRepository keeps round summaries. Snapshots never reach it.
type RoundRepository interface {
	Save(ctx context.Context, r round.Round) error
	Get(ctx context.Context, id string) (round.Round, error)
	ListByRun(ctx context.Context, runID string, offset, limit uint64) ([]round.Round, uint64, error)
}

type RunRepository interface {
	Save(ctx context.Context, r round.Run) error
	Get(ctx context.Context, id string) (round.Run, error)
	List(ctx context.Context, offset, limit uint64) ([]round.Run, uint64, error)
}
