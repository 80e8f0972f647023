package mocks

import (
	"context"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/host"
	"github.com/absmach/cohort/pkg/round"
	"github.com/stretchr/testify/mock"
)

var _ host.Service = (*Service)(nil)

type Service struct {
	mock.Mock
}

func (m *Service) StartRun(ctx context.Context, req host.RunRequest) (round.Run, error) {
	args := m.Called(ctx, req)

	return args.Get(0).(round.Run), args.Error(1)
}

func (m *Service) RunStatus(ctx context.Context, runID string) (round.Run, error) {
	args := m.Called(ctx, runID)

	return args.Get(0).(round.Run), args.Error(1)
}

func (m *Service) ListRuns(ctx context.Context, offset, limit uint64) (round.RunPage, error) {
	args := m.Called(ctx, offset, limit)

	return args.Get(0).(round.RunPage), args.Error(1)
}

func (m *Service) Wait(ctx context.Context, runID string) (round.Run, error) {
	args := m.Called(ctx, runID)

	return args.Get(0).(round.Run), args.Error(1)
}

func (m *Service) StopRun(ctx context.Context, runID string) error {
	args := m.Called(ctx, runID)

	return args.Error(0)
}

func (m *Service) ListRounds(ctx context.Context, runID string, offset, limit uint64) (round.Page, error) {
	args := m.Called(ctx, runID, offset, limit)

	return args.Get(0).(round.Page), args.Error(1)
}

func (m *Service) GetRound(ctx context.Context, roundID string) (round.Round, error) {
	args := m.Called(ctx, roundID)

	return args.Get(0).(round.Round), args.Error(1)
}

func (m *Service) RegisterClient(ctx context.Context, reg client.Registration) (client.Registration, error) {
	args := m.Called(ctx, reg)

	return args.Get(0).(client.Registration), args.Error(1)
}

func (m *Service) GetClient(ctx context.Context, clientID string) (client.Registration, error) {
	args := m.Called(ctx, clientID)

	return args.Get(0).(client.Registration), args.Error(1)
}

func (m *Service) ListClients(ctx context.Context, offset, limit uint64) (client.RegistrationPage, error) {
	args := m.Called(ctx, offset, limit)

	return args.Get(0).(client.RegistrationPage), args.Error(1)
}

func (m *Service) SetAvailability(ctx context.Context, clientID string, available bool) (client.Registration, error) {
	args := m.Called(ctx, clientID, available)

	return args.Get(0).(client.Registration), args.Error(1)
}

func (m *Service) RemoveClient(ctx context.Context, clientID string) error {
	args := m.Called(ctx, clientID)

	return args.Error(0)
}

func (m *Service) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
