package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync/atomic"
	"time"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/blob"
	"github.com/absmach/cohort/pkg/events"
	"github.com/absmach/cohort/pkg/fl"
	"github.com/absmach/cohort/pkg/round"
	"github.com/absmach/cohort/pkg/scheduler"
	"github.com/absmach/cohort/pkg/storage"
	"github.com/cenkalti/backoff/v5"
)

// Orchestrator drives runs round by round. It owns the global state and
// is the only writer of it.
type Orchestrator struct {
	source     RegistrationSource
	dial       Dialer
	selector   scheduler.Selector
	aggregator fl.Aggregator
	blobs      blob.Store
	rounds     storage.RoundRepository
	runs       storage.RunRepository
	emitter    events.Emitter
	logger     *slog.Logger
	state      atomic.Pointer[GlobalState]
}

func NewOrchestrator(
	source RegistrationSource, dial Dialer, selector scheduler.Selector, aggregator fl.Aggregator,
	blobs blob.Store, rounds storage.RoundRepository, runs storage.RunRepository,
	emitter events.Emitter, logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		source:     source,
		dial:       dial,
		selector:   selector,
		aggregator: aggregator,
		blobs:      blobs,
		rounds:     rounds,
		runs:       runs,
		emitter:    emitter,
		logger:     logger,
	}
}

// State returns the current global state, or nil before the first run.
func (o *Orchestrator) State() *GlobalState {
	return o.state.Load()
}

// LoadInitial reads the starting snapshot of a run from the blob store.
func (o *Orchestrator) LoadInitial(ctx context.Context, key string) (fl.Snapshot, error) {
	if key == "" {
		key = blob.GlobalKey(0)
	}
	data, err := o.blobs.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoInitialState, err)
	}
	snap, err := fl.DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoInitialState, err)
	}

	return snap, nil
}

// Run plays every round of run starting from initial. A run that exhausts
// its retries returns *RunFailure after writing the last completed snapshot
// as global/final.
func (o *Orchestrator) Run(ctx context.Context, run round.Run, initial fl.Snapshot) (RunResult, error) {
	if err := run.Config.Validate(); err != nil {
		return RunResult{}, err
	}
	if len(initial) == 0 {
		return RunResult{}, ErrNoInitialState
	}
	if err := initial.Validate(); err != nil {
		return RunResult{}, fmt.Errorf("%w: %w", ErrNoInitialState, err)
	}

	o.state.Store(&GlobalState{Snapshot: initial.Clone()})
	rn := &runner{
		Orchestrator: o,
		run:          run,
		agents:       map[string]client.Agent{},
	}
	rn.run.Status = round.RunRunning
	if rn.run.StartedAt.IsZero() {
		rn.run.StartedAt = time.Now()
	}
	rn.saveRun(ctx)

	return rn.execute(ctx)
}

// runner holds the state of one run.
type runner struct {
	*Orchestrator
	run    round.Run
	agents map[string]client.Agent
}

func (rn *runner) execute(ctx context.Context) (RunResult, error) {
	cfg := rn.run.Config
	var last *round.Round
	for number := uint64(1); number <= cfg.NumRounds; number++ {
		rn.run.Round = number
		r, err := rn.play(ctx, number)
		if err != nil {
			return RunResult{}, rn.fail(ctx, err)
		}
		last = r
		rn.run.RoundsCompleted = number
		rn.saveRun(ctx)
	}

	res := RunResult{RunID: rn.run.ID, RoundsCompleted: rn.run.RoundsCompleted}
	key, err := rn.writeFinal(ctx)
	if err != nil {
		return RunResult{}, rn.fail(ctx, err)
	}
	res.Artifacts.GlobalFinal = key

	if cfg.Fuse {
		key, err := rn.fuse(ctx, last)
		if err != nil {
			return RunResult{}, rn.fail(ctx, err)
		}
		res.Artifacts.ProfileFinal = key
	}

	rn.run.Status = round.RunSucceeded
	rn.run.Artifacts = res.Artifacts.Map()
	rn.run.FinishedAt = time.Now()
	rn.saveRun(ctx)
	rn.logger.InfoContext(ctx, "run completed",
		slog.String("run_id", rn.run.ID),
		slog.Uint64("rounds", res.RoundsCompleted),
		slog.String("global_final", res.Artifacts.GlobalFinal),
	)

	return res, nil
}

// play runs attempts of one round until one completes or the retry budget
// is spent.
func (rn *runner) play(ctx context.Context, number uint64) (*round.Round, error) {
	cfg := rn.run.Config
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.RetryBackoff
	b.MaxInterval = max(b.MaxInterval, cfg.RetryBackoff)
	b.Reset()

	for attempt := uint64(0); ; attempt++ {
		r, err := rn.attempt(ctx, number, attempt)
		if err != nil {
			return nil, err
		}
		if r.Status == round.Completed {
			return r, nil
		}
		if attempt >= cfg.MaxRoundRetries {
			return nil, &RunFailure{
				RunID:   rn.run.ID,
				Round:   number,
				Reason:  r.Reason,
				Retries: attempt,
				Cause:   r.Error,
			}
		}

		rn.run.Retries++
		rn.saveRun(ctx)
		wait := b.NextBackOff()
		rn.logger.WarnContext(ctx, "round abandoned, retrying",
			slog.String("run_id", rn.run.ID),
			slog.Uint64("round", number),
			slog.Uint64("attempt", attempt),
			slog.String("reason", string(r.Reason)),
			slog.Duration("backoff", wait),
		)
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// attempt drives one round attempt to COMPLETED or ABANDONED. The returned
// error is only set when the run itself must stop.
func (rn *runner) attempt(ctx context.Context, number, attempt uint64) (*round.Round, error) {
	cfg := rn.run.Config
	r := round.New(rn.run.ID, number, attempt, time.Now())
	rn.record(ctx, r)

	if err := rn.advance(ctx, r, round.Selecting); err != nil {
		return nil, err
	}
	selected, err := rn.selectClients(ctx, r)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, rn.interrupt(ctx, r, cerr)
		}

		return rn.abandon(ctx, r, round.ReasonInsufficientClients, err)
	}
	r.Selected = scheduler.IDs(selected)

	global := rn.state.Load()
	if err := rn.advance(ctx, r, round.Dispatched); err != nil {
		return nil, err
	}
	now := time.Now()
	results := rn.dispatch(ctx, r, global.Snapshot, selected, now.Add(cfg.RoundTimeout))
	if err := r.Open(cfg.RoundTimeout, now); err != nil {
		return nil, err
	}
	rn.record(ctx, r)

	if err := rn.collect(ctx, r, results, len(selected)); err != nil {
		return nil, rn.interrupt(ctx, r, err)
	}
	if got := uint64(len(r.Reports)); got < cfg.MinFitClients {
		cause := fmt.Errorf("%w: %d of %d reports", round.ErrQuorumNotReached, got, cfg.MinFitClients)

		return rn.abandon(ctx, r, round.ReasonQuorumNotReached, cause)
	}

	if err := rn.advance(ctx, r, round.Aggregating); err != nil {
		return nil, err
	}
	next, metrics, err := rn.aggregate(global.Snapshot, r.Collected())
	if err != nil {
		return rn.abandon(ctx, r, round.ReasonAggregationError, err)
	}
	digest, err := fl.Digest(next)
	if err != nil {
		return rn.abandon(ctx, r, round.ReasonAggregationError, err)
	}
	r.Metrics = metrics
	r.Digest = digest
	clear(r.Reports)

	if err := r.Transition(round.Completed, time.Now()); err != nil {
		return nil, err
	}
	rn.state.Store(&GlobalState{Round: number, Snapshot: next})
	rn.persist(ctx, blob.GlobalKey(number), next)
	rn.logger.InfoContext(ctx, "round completed",
		slog.String("run_id", rn.run.ID),
		slog.Uint64("round", number),
		slog.Uint64("attempt", attempt),
		slog.Int("participants", len(r.Samples)),
		slog.String("digest", digest),
	)

	if cfg.Evaluate {
		rn.evaluate(ctx, r, next)
	}
	rn.record(ctx, r)

	return r, nil
}

func (rn *runner) selectClients(ctx context.Context, r *round.Round) ([]client.Registration, error) {
	cfg := rn.run.Config
	candidates, err := rn.source.Candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", round.ErrInsufficientClients, err)
	}
	if n := uint64(len(candidates)); n < cfg.MinAvailableClients {
		return nil, fmt.Errorf("%w: %d available, %d required", round.ErrInsufficientClients, n, cfg.MinAvailableClients)
	}
	selected, err := rn.selector.Select(scheduler.Request{
		Round:        r.Number,
		Attempt:      r.Attempt,
		Seed:         cfg.SelectionSeed,
		Max:          cfg.MaxClientsPerRound,
		MinAvailable: cfg.MinAvailableClients,
	}, candidates)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", round.ErrInsufficientClients, err)
	}

	return selected, nil
}

func (rn *runner) aggregate(reference fl.Snapshot, reports []fl.ClientReport) (fl.Snapshot, fl.Metrics, error) {
	next, err := rn.aggregator.Aggregate(reference, reports)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", round.ErrAggregation, err)
	}
	metrics, err := fl.AverageMetrics(reports)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", round.ErrAggregation, err)
	}

	return next, metrics, nil
}

func (rn *runner) advance(ctx context.Context, r *round.Round, to round.Status) error {
	if err := r.Transition(to, time.Now()); err != nil {
		return err
	}
	rn.record(ctx, r)

	return nil
}

func (rn *runner) abandon(ctx context.Context, r *round.Round, reason round.Reason, cause error) (*round.Round, error) {
	if err := r.Abandon(reason, cause, time.Now()); err != nil {
		return nil, err
	}
	clear(r.Reports)
	rn.record(ctx, r)
	rn.logger.WarnContext(ctx, "round abandoned",
		slog.String("run_id", rn.run.ID),
		slog.Uint64("round", r.Number),
		slog.Uint64("attempt", r.Attempt),
		slog.String("reason", string(reason)),
		slog.Any("error", cause),
	)

	return r, nil
}

// interrupt closes r as abandoned when the run stops mid-round, so no round
// is left open in storage.
func (rn *runner) interrupt(ctx context.Context, r *round.Round, err error) error {
	if r.Status.Terminal() {
		return err
	}
	if aerr := r.Abandon(round.ReasonCancelled, err, time.Now()); aerr != nil {
		return errors.Join(err, aerr)
	}
	clear(r.Reports)
	rn.record(ctx, r)

	return err
}

func (rn *runner) agent(reg client.Registration) (client.Agent, error) {
	if a, ok := rn.agents[reg.ClientID]; ok {
		return a, nil
	}
	a, err := rn.dial(reg)
	if err != nil {
		return nil, err
	}
	rn.agents[reg.ClientID] = a

	return a, nil
}

func (rn *runner) participants(r *round.Round) []string {
	return slices.Sorted(maps.Keys(r.Samples))
}

// writeFinal stores the current global snapshot as global/final.
func (rn *runner) writeFinal(ctx context.Context) (string, error) {
	state := rn.state.Load()
	data, err := fl.EncodeSnapshot(state.Snapshot)
	if err != nil {
		return "", err
	}
	if err := rn.blobs.Put(ctx, blob.GlobalFinalKey, data); err != nil {
		return "", err
	}

	return blob.GlobalFinalKey, nil
}

func (rn *runner) fail(ctx context.Context, err error) error {
	rn.run.FinishedAt = time.Now()
	rn.run.Error = err.Error()

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		rn.run.Status = round.RunCancelled
	default:
		rn.run.Status = round.RunFailed
	}

	var failure *RunFailure
	isFailure := errors.As(err, &failure)
	if isFailure {
		rn.run.Reason = failure.Reason
	}
	// The last completed snapshot stays authoritative.
	if isFailure || rn.run.Status == round.RunCancelled {
		if key, werr := rn.writeFinal(context.WithoutCancel(ctx)); werr != nil {
			rn.logger.ErrorContext(ctx, "failed to write final snapshot", slog.Any("error", werr))
		} else {
			rn.run.Artifacts = Artifacts{GlobalFinal: key}.Map()
		}
	}

	rn.saveRun(context.WithoutCancel(ctx))
	rn.logger.ErrorContext(ctx, "run failed",
		slog.String("run_id", rn.run.ID),
		slog.Uint64("round", rn.run.Round),
		slog.Uint64("retries", rn.run.Retries),
		slog.Any("error", err),
	)

	return err
}

// persist writes a per-round snapshot. Failures are logged; the in-memory
// global state is authoritative.
func (rn *runner) persist(ctx context.Context, key string, snap fl.Snapshot) {
	data, err := fl.EncodeSnapshot(snap)
	if err == nil {
		err = rn.blobs.Put(ctx, key, data)
	}
	if err != nil {
		rn.logger.WarnContext(ctx, "failed to persist global snapshot", slog.String("key", key), slog.Any("error", err))
	}
}

func (rn *runner) record(ctx context.Context, r *round.Round) {
	summary := r.Summary()
	// A stopped run still persists the state its rounds reached.
	ctx = context.WithoutCancel(ctx)
	if err := rn.rounds.Save(ctx, summary); err != nil {
		rn.logger.WarnContext(ctx, "failed to save round", slog.String("round_id", r.ID), slog.Any("error", err))
	}
	if err := rn.emitter.EmitRound(ctx, summary); err != nil {
		rn.logger.WarnContext(ctx, "failed to emit round event", slog.String("round_id", r.ID), slog.Any("error", err))
	}
}

func (rn *runner) saveRun(ctx context.Context) {
	if err := rn.runs.Save(ctx, rn.run); err != nil {
		rn.logger.WarnContext(ctx, "failed to save run", slog.String("run_id", rn.run.ID), slog.Any("error", err))
	}
	if err := rn.emitter.EmitRun(ctx, rn.run); err != nil {
		rn.logger.WarnContext(ctx, "failed to emit run event", slog.String("run_id", rn.run.ID), slog.Any("error", err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
