package host

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/mqtt"
	"github.com/absmach/cohort/pkg/round"
	"github.com/absmach/cohort/pkg/storage"
	"github.com/google/uuid"
)

type active struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

type service struct {
	orchestrator *Orchestrator
	registry     *Registry
	rounds       storage.RoundRepository
	runs         storage.RunRepository
	pubsub       mqtt.PubSub
	topics       mqtt.Topics
	logger       *slog.Logger

	mu     sync.Mutex
	active *active
}

func NewService(
	orchestrator *Orchestrator, registry *Registry, repos *storage.Repositories,
	pubsub mqtt.PubSub, topics mqtt.Topics, logger *slog.Logger,
) Service {
	return &service{
		orchestrator: orchestrator,
		registry:     registry,
		rounds:       repos.Rounds,
		runs:         repos.Runs,
		pubsub:       pubsub,
		topics:       topics,
		logger:       logger,
	}
}

func (svc *service) StartRun(ctx context.Context, req RunRequest) (round.Run, error) {
	if err := req.Config.Validate(); err != nil {
		return round.Run{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.active != nil {
		select {
		case <-svc.active.done:
		default:
			return round.Run{}, ErrRunInProgress
		}
	}

	initial, err := svc.orchestrator.LoadInitial(ctx, req.InitialKey)
	if err != nil {
		return round.Run{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return round.Run{}, err
	}
	run := round.Run{
		ID:        id.String(),
		Config:    req.Config,
		Status:    round.RunRunning,
		StartedAt: time.Now(),
	}
	if err := svc.runs.Save(ctx, run); err != nil {
		return round.Run{}, err
	}

	// The run outlives the request that started it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a := &active{id: run.ID, cancel: cancel, done: make(chan struct{})}
	svc.active = a
	go func() {
		defer close(a.done)
		defer cancel()
		if _, err := svc.orchestrator.Run(runCtx, run, initial); err != nil {
			svc.logger.Warn("run ended with error", slog.String("run_id", run.ID), slog.Any("error", err))
		}
	}()

	return run, nil
}

func (svc *service) RunStatus(ctx context.Context, runID string) (round.Run, error) {
	return svc.runs.Get(ctx, runID)
}

func (svc *service) ListRuns(ctx context.Context, offset, limit uint64) (round.RunPage, error) {
	runs, total, err := svc.runs.List(ctx, offset, limit)
	if err != nil {
		return round.RunPage{}, err
	}

	return round.RunPage{
		Offset: offset,
		Limit:  limit,
		Total:  total,
		Runs:   runs,
	}, nil
}

func (svc *service) Wait(ctx context.Context, runID string) (round.Run, error) {
	svc.mu.Lock()
	a := svc.active
	svc.mu.Unlock()

	if a != nil && a.id == runID {
		select {
		case <-a.done:
		case <-ctx.Done():
			return round.Run{}, ctx.Err()
		}
	}

	return svc.runs.Get(ctx, runID)
}

func (svc *service) StopRun(ctx context.Context, runID string) error {
	svc.mu.Lock()
	a := svc.active
	svc.mu.Unlock()

	if a == nil || a.id != runID {
		if _, err := svc.runs.Get(ctx, runID); err != nil {
			return err
		}

		return ErrRunNotActive
	}
	select {
	case <-a.done:
		return ErrRunNotActive
	default:
	}
	a.cancel()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (svc *service) ListRounds(ctx context.Context, runID string, offset, limit uint64) (round.Page, error) {
	rounds, total, err := svc.rounds.ListByRun(ctx, runID, offset, limit)
	if err != nil {
		return round.Page{}, err
	}

	return round.Page{
		Offset: offset,
		Limit:  limit,
		Total:  total,
		Rounds: rounds,
	}, nil
}

func (svc *service) GetRound(ctx context.Context, roundID string) (round.Round, error) {
	return svc.rounds.Get(ctx, roundID)
}

func (svc *service) RegisterClient(ctx context.Context, reg client.Registration) (client.Registration, error) {
	return svc.registry.Register(ctx, reg)
}

func (svc *service) GetClient(ctx context.Context, clientID string) (client.Registration, error) {
	return svc.registry.Get(ctx, clientID)
}

func (svc *service) ListClients(ctx context.Context, offset, limit uint64) (client.RegistrationPage, error) {
	return svc.registry.List(ctx, offset, limit)
}

func (svc *service) SetAvailability(ctx context.Context, clientID string, available bool) (client.Registration, error) {
	return svc.registry.SetAvailability(ctx, clientID, available)
}

func (svc *service) RemoveClient(ctx context.Context, clientID string) error {
	return svc.registry.Remove(ctx, clientID)
}

func (svc *service) Subscribe(ctx context.Context) error {
	if svc.pubsub == nil {
		return ErrNoBroker
	}

	return svc.pubsub.Subscribe(ctx, svc.topics.All(), svc.registry.Handler(ctx, svc.topics))
}
