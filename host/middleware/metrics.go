package middleware

import (
	"context"
	"time"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/host"
	"github.com/absmach/cohort/pkg/round"
	"github.com/go-kit/kit/metrics"
)

var _ host.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     host.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc host.Service) host.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) observe(method string, begin time.Time) {
	mm.counter.With("method", method).Add(1)
	mm.latency.With("method", method).Observe(time.Since(begin).Seconds())
}

func (mm *metricsMiddleware) StartRun(ctx context.Context, req host.RunRequest) (round.Run, error) {
	defer mm.observe("start-run", time.Now())

	return mm.svc.StartRun(ctx, req)
}

func (mm *metricsMiddleware) RunStatus(ctx context.Context, runID string) (round.Run, error) {
	defer mm.observe("run-status", time.Now())

	return mm.svc.RunStatus(ctx, runID)
}

func (mm *metricsMiddleware) ListRuns(ctx context.Context, offset, limit uint64) (round.RunPage, error) {
	defer mm.observe("list-runs", time.Now())

	return mm.svc.ListRuns(ctx, offset, limit)
}

// Wait is not timed; its latency is the length of a run.
func (mm *metricsMiddleware) Wait(ctx context.Context, runID string) (round.Run, error) {
	mm.counter.With("method", "wait").Add(1)

	return mm.svc.Wait(ctx, runID)
}

func (mm *metricsMiddleware) StopRun(ctx context.Context, runID string) error {
	defer mm.observe("stop-run", time.Now())

	return mm.svc.StopRun(ctx, runID)
}

func (mm *metricsMiddleware) ListRounds(ctx context.Context, runID string, offset, limit uint64) (round.Page, error) {
	defer mm.observe("list-rounds", time.Now())

	return mm.svc.ListRounds(ctx, runID, offset, limit)
}

func (mm *metricsMiddleware) GetRound(ctx context.Context, roundID string) (round.Round, error) {
	defer mm.observe("get-round", time.Now())

	return mm.svc.GetRound(ctx, roundID)
}

func (mm *metricsMiddleware) RegisterClient(ctx context.Context, reg client.Registration) (client.Registration, error) {
	defer mm.observe("register-client", time.Now())

	return mm.svc.RegisterClient(ctx, reg)
}

func (mm *metricsMiddleware) GetClient(ctx context.Context, clientID string) (client.Registration, error) {
	defer mm.observe("get-client", time.Now())

	return mm.svc.GetClient(ctx, clientID)
}

func (mm *metricsMiddleware) ListClients(ctx context.Context, offset, limit uint64) (client.RegistrationPage, error) {
	defer mm.observe("list-clients", time.Now())

	return mm.svc.ListClients(ctx, offset, limit)
}

func (mm *metricsMiddleware) SetAvailability(ctx context.Context, clientID string, available bool) (client.Registration, error) {
	defer mm.observe("set-availability", time.Now())

	return mm.svc.SetAvailability(ctx, clientID, available)
}

func (mm *metricsMiddleware) RemoveClient(ctx context.Context, clientID string) error {
	defer mm.observe("remove-client", time.Now())

	return mm.svc.RemoveClient(ctx, clientID)
}

func (mm *metricsMiddleware) Subscribe(ctx context.Context) error {
	defer mm.observe("subscribe", time.Now())

	return mm.svc.Subscribe(ctx)
}
