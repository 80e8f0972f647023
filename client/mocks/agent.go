package mocks

import (
	"context"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/fl"
	"github.com/stretchr/testify/mock"
)

var _ client.Agent = (*Agent)(nil)

type Agent struct {
	mock.Mock
}

func (m *Agent) Fit(ctx context.Context, req client.FitRequest) (fl.ClientReport, error) {
	args := m.Called(ctx, req)

	return args.Get(0).(fl.ClientReport), args.Error(1)
}

func (m *Agent) Evaluate(ctx context.Context, req client.EvaluateRequest) (fl.EvaluationReport, error) {
	args := m.Called(ctx, req)

	return args.Get(0).(fl.EvaluationReport), args.Error(1)
}

func (m *Agent) Profile(ctx context.Context) (fl.ClientProfile, error) {
	args := m.Called(ctx)

	return args.Get(0).(fl.ClientProfile), args.Error(1)
}
