package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/fl"
)

var _ client.Agent = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	agent  client.Agent
}

func Logging(logger *slog.Logger, agent client.Agent) client.Agent {
	return &loggingMiddleware{
		logger: logger,
		agent:  agent,
	}
}

func (lm *loggingMiddleware) Fit(ctx context.Context, req client.FitRequest) (rep fl.ClientReport, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("round",
				slog.String("run_id", req.RunID),
				slog.Uint64("number", req.Round),
				slog.Uint64("attempt", req.Attempt),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Fit failed", args...)

			return
		}
		args = append(args, slog.Uint64("sample_count", rep.SampleCount))
		lm.logger.Info("Fit completed successfully", args...)
	}(time.Now())

	return lm.agent.Fit(ctx, req)
}

func (lm *loggingMiddleware) Evaluate(ctx context.Context, req client.EvaluateRequest) (rep fl.EvaluationReport, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("round", req.Round),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Evaluate failed", args...)

			return
		}
		args = append(args, slog.Float64("loss", rep.Loss))
		lm.logger.Info("Evaluate completed successfully", args...)
	}(time.Now())

	return lm.agent.Evaluate(ctx, req)
}

func (lm *loggingMiddleware) Profile(ctx context.Context) (p fl.ClientProfile, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Profile failed", args...)

			return
		}
		args = append(args, slog.Int("dimension", len(p.Profile)))
		lm.logger.Info("Profile completed successfully", args...)
	}(time.Now())

	return lm.agent.Profile(ctx)
}
