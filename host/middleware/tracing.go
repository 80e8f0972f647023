package middleware

import (
	"context"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/host"
	"github.com/absmach/cohort/pkg/round"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ host.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    host.Service
}

func Tracing(tracer trace.Tracer, svc host.Service) host.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) StartRun(ctx context.Context, req host.RunRequest) (round.Run, error) {
	ctx, span := tm.tracer.Start(ctx, "start-run", trace.WithAttributes(
		attribute.Int64("num_rounds", int64(req.Config.NumRounds)),
		attribute.Int64("min_fit_clients", int64(req.Config.MinFitClients)),
		attribute.Int64("selection_seed", req.Config.SelectionSeed),
		attribute.String("initial_key", req.InitialKey),
	))
	defer span.End()

	return tm.svc.StartRun(ctx, req)
}

func (tm *tracing) RunStatus(ctx context.Context, runID string) (round.Run, error) {
	ctx, span := tm.tracer.Start(ctx, "run-status", trace.WithAttributes(
		attribute.String("run_id", runID),
	))
	defer span.End()

	return tm.svc.RunStatus(ctx, runID)
}

func (tm *tracing) ListRuns(ctx context.Context, offset, limit uint64) (round.RunPage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-runs", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListRuns(ctx, offset, limit)
}

func (tm *tracing) Wait(ctx context.Context, runID string) (round.Run, error) {
	ctx, span := tm.tracer.Start(ctx, "wait", trace.WithAttributes(
		attribute.String("run_id", runID),
	))
	defer span.End()

	return tm.svc.Wait(ctx, runID)
}

func (tm *tracing) StopRun(ctx context.Context, runID string) error {
	ctx, span := tm.tracer.Start(ctx, "stop-run", trace.WithAttributes(
		attribute.String("run_id", runID),
	))
	defer span.End()

	return tm.svc.StopRun(ctx, runID)
}

func (tm *tracing) ListRounds(ctx context.Context, runID string, offset, limit uint64) (round.Page, error) {
	ctx, span := tm.tracer.Start(ctx, "list-rounds", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListRounds(ctx, runID, offset, limit)
}

func (tm *tracing) GetRound(ctx context.Context, roundID string) (round.Round, error) {
	ctx, span := tm.tracer.Start(ctx, "get-round", trace.WithAttributes(
		attribute.String("round_id", roundID),
	))
	defer span.End()

	return tm.svc.GetRound(ctx, roundID)
}

func (tm *tracing) RegisterClient(ctx context.Context, reg client.Registration) (client.Registration, error) {
	ctx, span := tm.tracer.Start(ctx, "register-client", trace.WithAttributes(
		attribute.String("client_id", reg.ClientID),
		attribute.String("address", reg.Address),
	))
	defer span.End()

	return tm.svc.RegisterClient(ctx, reg)
}

func (tm *tracing) GetClient(ctx context.Context, clientID string) (client.Registration, error) {
	ctx, span := tm.tracer.Start(ctx, "get-client", trace.WithAttributes(
		attribute.String("client_id", clientID),
	))
	defer span.End()

	return tm.svc.GetClient(ctx, clientID)
}

func (tm *tracing) ListClients(ctx context.Context, offset, limit uint64) (client.RegistrationPage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-clients", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListClients(ctx, offset, limit)
}

func (tm *tracing) SetAvailability(ctx context.Context, clientID string, available bool) (client.Registration, error) {
	ctx, span := tm.tracer.Start(ctx, "set-availability", trace.WithAttributes(
		attribute.String("client_id", clientID),
		attribute.Bool("available", available),
	))
	defer span.End()

	return tm.svc.SetAvailability(ctx, clientID, available)
}

func (tm *tracing) RemoveClient(ctx context.Context, clientID string) error {
	ctx, span := tm.tracer.Start(ctx, "remove-client", trace.WithAttributes(
		attribute.String("client_id", clientID),
	))
	defer span.End()

	return tm.svc.RemoveClient(ctx, clientID)
}

func (tm *tracing) Subscribe(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "subscribe")
	defer span.End()

	return tm.svc.Subscribe(ctx)
}
