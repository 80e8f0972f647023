package middleware

import (
	"context"
	"time"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/fl"
	"github.com/go-kit/kit/metrics"
)

var _ client.Agent = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	agent   client.Agent
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, agent client.Agent) client.Agent {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		agent:   agent,
	}
}

func (mm *metricsMiddleware) Fit(ctx context.Context, req client.FitRequest) (fl.ClientReport, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "fit").Add(1)
		mm.latency.With("method", "fit").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.agent.Fit(ctx, req)
}

func (mm *metricsMiddleware) Evaluate(ctx context.Context, req client.EvaluateRequest) (fl.EvaluationReport, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "evaluate").Add(1)
		mm.latency.With("method", "evaluate").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.agent.Evaluate(ctx, req)
}

func (mm *metricsMiddleware) Profile(ctx context.Context) (fl.ClientProfile, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "profile").Add(1)
		mm.latency.With("method", "profile").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.agent.Profile(ctx)
}
