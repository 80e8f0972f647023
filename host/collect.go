package host

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/blob"
	"github.com/absmach/cohort/pkg/fl"
	"github.com/absmach/cohort/pkg/round"
	"golang.org/x/sync/errgroup"
)

type fitResult struct {
	clientID string
	report   fl.ClientReport
	err      error
}

// dispatch sends a fit request to every selected client concurrently. The
// channel is buffered for every call so calls that outlive the round never
// block.
func (rn *runner) dispatch(ctx context.Context, r *round.Round, snapshot fl.Snapshot, selected []client.Registration, deadline time.Time) <-chan fitResult {
	results := make(chan fitResult, len(selected))
	for _, reg := range selected {
		agent, err := rn.agent(reg)
		if err != nil {
			results <- fitResult{clientID: reg.ClientID, err: err}

			continue
		}
		req := client.FitRequest{
			RunID:    rn.run.ID,
			Round:    r.Number,
			Attempt:  r.Attempt,
			Deadline: deadline,
			Snapshot: snapshot.Clone(),
			Params:   rn.run.Config.Params,
		}
		go func(id string) {
			rep, err := agent.Fit(ctx, req)
			results <- fitResult{clientID: id, report: rep, err: err}
		}(reg.ClientID)
	}

	return results
}

// collect waits until quorum is reached, every call has returned or the
// deadline passes, whichever comes first.
func (rn *runner) collect(ctx context.Context, r *round.Round, results <-chan fitResult, pending int) error {
	quorum := rn.run.Config.MinFitClients
	timer := time.NewTimer(time.Until(r.Deadline))
	defer timer.Stop()

	for pending > 0 && uint64(len(r.Reports)) < quorum {
		select {
		case res := <-results:
			pending--
			rn.accept(ctx, r, res)
		case <-timer.C:
			excludeOutstanding(r)

			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	excludeOutstanding(r)

	return nil
}

// excludeOutstanding marks selected clients that neither reported nor failed.
func excludeOutstanding(r *round.Round) {
	for _, id := range r.Selected {
		if _, ok := r.Excluded[id]; !ok {
			r.Exclude(id, ErrNoReport)
		}
	}
}

func (rn *runner) accept(ctx context.Context, r *round.Round, res fitResult) {
	err := res.err
	if err == nil {
		err = res.report.Validate()
	}
	if err == nil && res.report.ClientID != res.clientID {
		err = fmt.Errorf("%w: expected %s, got %s", ErrClientMismatch, res.clientID, res.report.ClientID)
	}
	if err == nil {
		err = r.Accept(res.report)
	}
	if err != nil {
		r.Exclude(res.clientID, err)
		rn.logger.WarnContext(ctx, "client excluded from round",
			slog.String("run_id", rn.run.ID),
			slog.Uint64("round", r.Number),
			slog.String("client_id", res.clientID),
			slog.Any("error", err),
		)
	}
}

// evaluate scores the new global snapshot on the round's participants.
// Failures only cost the round its evaluation.
func (rn *runner) evaluate(ctx context.Context, r *round.Round, snapshot fl.Snapshot) {
	ectx, cancel := context.WithTimeout(ctx, rn.run.Config.RoundTimeout)
	defer cancel()

	var (
		mu    sync.Mutex
		evals []fl.EvaluationReport
		wg    sync.WaitGroup
	)
	for _, id := range rn.participants(r) {
		agent, ok := rn.agents[id]
		if !ok {
			continue
		}
		req := client.EvaluateRequest{
			RunID:    rn.run.ID,
			Round:    r.Number,
			Snapshot: snapshot.Clone(),
			Params:   rn.run.Config.Params,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			rep, err := agent.Evaluate(ectx, req)
			if err == nil && rep.SampleCount == 0 {
				err = fl.ErrInvalidSampleCount
			}
			if err != nil {
				rn.logger.WarnContext(ctx, "client evaluation failed",
					slog.Uint64("round", r.Number),
					slog.String("client_id", id),
					slog.Any("error", err),
				)

				return
			}
			rep.ClientID = id
			mu.Lock()
			evals = append(evals, rep)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(evals) == 0 {
		return
	}
	res, err := fl.AverageEvaluations(evals)
	if err != nil {
		rn.logger.WarnContext(ctx, "failed to average evaluations", slog.Uint64("round", r.Number), slog.Any("error", err))

		return
	}
	r.Evaluation = &res
}

// fuse collects one profile from every participant of the final round and
// writes their mean as profile/final. Any failure is fatal to the run.
func (rn *runner) fuse(ctx context.Context, last *round.Round) (string, error) {
	ids := rn.participants(last)
	pctx, cancel := context.WithTimeout(ctx, rn.run.Config.RoundTimeout)
	defer cancel()

	profiles := make([]fl.ClientProfile, len(ids))
	g, gctx := errgroup.WithContext(pctx)
	for i, id := range ids {
		agent, ok := rn.agents[id]
		if !ok {
			return "", fmt.Errorf("%w: no agent for client %s", ErrProfileFusion, id)
		}
		g.Go(func() error {
			p, err := agent.Profile(gctx)
			if err != nil {
				return err
			}
			p.ClientID = id
			profiles[i] = p

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrProfileFusion, err)
	}

	fused, err := fl.Fuse(profiles)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProfileFusion, err)
	}
	data, err := fl.EncodeFusedProfile(fused)
	if err != nil {
		return "", err
	}
	if err := rn.blobs.Put(ctx, blob.ProfileFinalKey, data); err != nil {
		return "", err
	}
	rn.logger.InfoContext(ctx, "profiles fused",
		slog.String("run_id", rn.run.ID),
		slog.Int("clients", len(profiles)),
		slog.Int("length", len(fused)),
	)

	return blob.ProfileFinalKey, nil
}
