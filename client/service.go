package client

import (
	"context"
	"log/slog"
	"sync"

	"github.com/absmach/cohort/pkg/blob"
	"github.com/absmach/cohort/pkg/fl"
)

type service struct {
	id        string
	dataset   string
	trainer   Trainer
	evaluator Evaluator
	profiler  Profiler
	store     blob.Store
	logger    *slog.Logger

	mu      sync.Mutex
	lineage fl.Snapshot
}

type Option func(*service)

func WithEvaluator(e Evaluator) Option {
	return func(s *service) { s.evaluator = e }
}

func WithProfiler(p Profiler) Option {
	return func(s *service) { s.profiler = p }
}

// WithBlobStore persists every produced snapshot under {client_id}/{round}.
func WithBlobStore(store blob.Store) Option {
	return func(s *service) { s.store = store }
}

// NewAgent returns the in-process agent that wraps a local trainer.
func NewAgent(id, dataset string, trainer Trainer, logger *slog.Logger, opts ...Option) (Agent, error) {
	if id == "" {
		return nil, ErrMissingClientID
	}
	if trainer == nil {
		return nil, ErrMissingTrainer
	}
	s := &service{
		id:      id,
		dataset: dataset,
		trainer: trainer,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *service) Fit(ctx context.Context, req FitRequest) (fl.ClientReport, error) {
	if err := req.Snapshot.Validate(); err != nil {
		return fl.ClientReport{}, s.adapterErr("fit", err)
	}
	if err := s.checkLineage(req.Snapshot); err != nil {
		return fl.ClientReport{}, s.adapterErr("fit", err)
	}

	out, err := s.trainer.Train(ctx, TrainInput{
		Round:    req.Round,
		Snapshot: req.Snapshot.Clone(),
		Dataset:  s.dataset,
		Params:   req.Params,
	})
	if err != nil {
		return fl.ClientReport{}, s.adapterErr("train", err)
	}

	rep := fl.ClientReport{
		ClientID:    s.id,
		Snapshot:    out.Snapshot,
		SampleCount: out.SampleCount,
		Metrics:     out.Metrics,
	}
	if err := rep.Validate(); err != nil {
		return fl.ClientReport{}, s.adapterErr("train", err)
	}
	if err := rep.Snapshot.Conforms(req.Snapshot); err != nil {
		return fl.ClientReport{}, s.adapterErr("train", err)
	}

	s.persist(ctx, req.Round, rep.Snapshot)

	return rep, nil
}

func (s *service) Evaluate(ctx context.Context, req EvaluateRequest) (fl.EvaluationReport, error) {
	if s.evaluator == nil {
		return fl.EvaluationReport{}, s.adapterErr("evaluate", ErrEvaluateUnsupported)
	}
	if err := req.Snapshot.Validate(); err != nil {
		return fl.EvaluationReport{}, s.adapterErr("evaluate", err)
	}

	out, err := s.evaluator.Evaluate(ctx, TrainInput{
		Round:    req.Round,
		Snapshot: req.Snapshot.Clone(),
		Dataset:  s.dataset,
		Params:   req.Params,
	})
	if err != nil {
		return fl.EvaluationReport{}, s.adapterErr("evaluate", err)
	}

	return fl.EvaluationReport{
		ClientID:    s.id,
		Loss:        out.Loss,
		SampleCount: out.SampleCount,
		Metrics:     out.Metrics,
	}, nil
}

func (s *service) Profile(ctx context.Context) (fl.ClientProfile, error) {
	if s.profiler == nil {
		return fl.ClientProfile{}, s.adapterErr("profile", ErrProfileUnsupported)
	}
	p, err := s.profiler.Profile(ctx)
	if err != nil {
		return fl.ClientProfile{}, s.adapterErr("profile", err)
	}

	return fl.ClientProfile{ClientID: s.id, Profile: p}, nil
}

// checkLineage pins the schema of the first snapshot seen and rejects any
// later snapshot that does not share it.
func (s *service) checkLineage(snap fl.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lineage == nil {
		s.lineage = snap.Clone()

		return nil
	}

	return snap.Conforms(s.lineage)
}

func (s *service) persist(ctx context.Context, round uint64, snap fl.Snapshot) {
	if s.store == nil {
		return
	}
	data, err := fl.EncodeSnapshot(snap)
	if err == nil {
		err = s.store.Put(ctx, blob.ClientKey(s.id, round), data)
	}
	if err != nil {
		s.logger.Warn("failed to persist client snapshot",
			slog.String("client_id", s.id),
			slog.Uint64("round", round),
			slog.Any("error", err),
		)
	}
}

func (s *service) adapterErr(op string, err error) error {
	return &AdapterError{ClientID: s.id, Op: op, Cause: err}
}
