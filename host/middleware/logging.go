package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/host"
	"github.com/absmach/cohort/pkg/round"
)

var _ host.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    host.Service
}

func Logging(logger *slog.Logger, svc host.Service) host.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) StartRun(ctx context.Context, req host.RunRequest) (run round.Run, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("id", run.ID),
				slog.Uint64("num_rounds", req.Config.NumRounds),
				slog.Uint64("min_fit_clients", req.Config.MinFitClients),
				slog.Int64("selection_seed", req.Config.SelectionSeed),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Start run failed", args...)

			return
		}
		lm.logger.Info("Start run completed successfully", args...)
	}(time.Now())

	return lm.svc.StartRun(ctx, req)
}

func (lm *loggingMiddleware) RunStatus(ctx context.Context, runID string) (run round.Run, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("id", runID),
				slog.String("status", run.Status.String()),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get run status failed", args...)

			return
		}
		lm.logger.Info("Get run status completed successfully", args...)
	}(time.Now())

	return lm.svc.RunStatus(ctx, runID)
}

func (lm *loggingMiddleware) ListRuns(ctx context.Context, offset, limit uint64) (page round.RunPage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List runs failed", args...)

			return
		}
		lm.logger.Info("List runs completed successfully", args...)
	}(time.Now())

	return lm.svc.ListRuns(ctx, offset, limit)
}

func (lm *loggingMiddleware) Wait(ctx context.Context, runID string) (run round.Run, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("id", runID),
				slog.String("status", run.Status.String()),
				slog.Uint64("rounds_completed", run.RoundsCompleted),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Wait for run failed", args...)

			return
		}
		lm.logger.Info("Wait for run completed successfully", args...)
	}(time.Now())

	return lm.svc.Wait(ctx, runID)
}

func (lm *loggingMiddleware) StopRun(ctx context.Context, runID string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("id", runID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Stop run failed", args...)

			return
		}
		lm.logger.Info("Stop run completed successfully", args...)
	}(time.Now())

	return lm.svc.StopRun(ctx, runID)
}

func (lm *loggingMiddleware) ListRounds(ctx context.Context, runID string, offset, limit uint64) (page round.Page, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("run_id", runID),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List rounds failed", args...)

			return
		}
		lm.logger.Info("List rounds completed successfully", args...)
	}(time.Now())

	return lm.svc.ListRounds(ctx, runID, offset, limit)
}

func (lm *loggingMiddleware) GetRound(ctx context.Context, roundID string) (r round.Round, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("round",
				slog.String("id", roundID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get round failed", args...)

			return
		}
		lm.logger.Info("Get round completed successfully", args...)
	}(time.Now())

	return lm.svc.GetRound(ctx, roundID)
}

func (lm *loggingMiddleware) RegisterClient(ctx context.Context, reg client.Registration) (resp client.Registration, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("client",
				slog.String("id", reg.ClientID),
				slog.String("name", resp.Name),
				slog.String("address", reg.Address),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Register client failed", args...)

			return
		}
		lm.logger.Info("Register client completed successfully", args...)
	}(time.Now())

	return lm.svc.RegisterClient(ctx, reg)
}

func (lm *loggingMiddleware) GetClient(ctx context.Context, clientID string) (resp client.Registration, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("client",
				slog.String("id", clientID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get client failed", args...)

			return
		}
		lm.logger.Info("Get client completed successfully", args...)
	}(time.Now())

	return lm.svc.GetClient(ctx, clientID)
}

func (lm *loggingMiddleware) ListClients(ctx context.Context, offset, limit uint64) (page client.RegistrationPage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List clients failed", args...)

			return
		}
		lm.logger.Info("List clients completed successfully", args...)
	}(time.Now())

	return lm.svc.ListClients(ctx, offset, limit)
}

func (lm *loggingMiddleware) SetAvailability(ctx context.Context, clientID string, available bool) (resp client.Registration, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("client",
				slog.String("id", clientID),
				slog.Bool("available", available),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Set client availability failed", args...)

			return
		}
		lm.logger.Info("Set client availability completed successfully", args...)
	}(time.Now())

	return lm.svc.SetAvailability(ctx, clientID, available)
}

func (lm *loggingMiddleware) RemoveClient(ctx context.Context, clientID string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("client",
				slog.String("id", clientID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Remove client failed", args...)

			return
		}
		lm.logger.Info("Remove client completed successfully", args...)
	}(time.Now())

	return lm.svc.RemoveClient(ctx, clientID)
}

func (lm *loggingMiddleware) Subscribe(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Subscribe to presence failed", args...)

			return
		}
		lm.logger.Info("Subscribe to presence completed successfully", args...)
	}(time.Now())

	return lm.svc.Subscribe(ctx)
}
