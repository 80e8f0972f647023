package host_test

import (
	"context"
	"testing"
	"time"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/host"
	"github.com/absmach/cohort/pkg/blob"
	pkgerrors "github.com/absmach/cohort/pkg/errors"
	"github.com/absmach/cohort/pkg/events"
	"github.com/absmach/cohort/pkg/fl"
	"github.com/absmach/cohort/pkg/mqtt/mocks"
	"github.com/absmach/cohort/pkg/round"
	"github.com/absmach/cohort/pkg/scheduler"
	"github.com/absmach/cohort/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, seed bool, agents ...*agent) (host.Service, *mocks.PubSub) {
	t.Helper()
	ctx := context.Background()

	repos := storage.NewMemoryRepositories()
	registry := host.NewRegistry(repos.Clients, 0, logger)
	byID := map[string]client.Agent{}
	for _, a := range agents {
		byID[a.id] = a
		_, err := registry.Register(ctx, client.Registration{ClientID: a.id, Available: true})
		require.NoError(t, err)
	}
	dial := func(reg client.Registration) (client.Agent, error) {
		return byID[reg.ClientID], nil
	}

	blobs := blob.NewMemoryStore()
	if seed {
		data, err := fl.EncodeSnapshot(initial())
		require.NoError(t, err)
		require.NoError(t, blobs.Put(ctx, blob.GlobalKey(0), data))
	}

	orch := host.NewOrchestrator(registry, dial, scheduler.NewSeeded(), fl.NewFedAvgAggregator(),
		blobs, repos.Rounds, repos.Runs, events.NewNoopEmitter(), logger)
	ps := new(mocks.PubSub)

	return host.NewService(orch, registry, repos, ps, topics, logger), ps
}

func TestStartRun(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, true,
		&agent{id: "a", value: 2, samples: 3, profile: fl.Profile{1}},
		&agent{id: "b", value: 10, samples: 1, profile: fl.Profile{3}},
	)

	run, err := svc.StartRun(ctx, host.RunRequest{Config: runConfig()})
	require.NoError(t, err)
	assert.Equal(t, round.RunRunning, run.Status)

	done, err := svc.Wait(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, round.RunSucceeded, done.Status)
	assert.Equal(t, uint64(1), done.RoundsCompleted)

	status, err := svc.RunStatus(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, done, status)

	page, err := svc.ListRounds(ctx, run.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Rounds, 1)
	assert.Equal(t, uint64(1), page.Total)

	r, err := svc.GetRound(ctx, page.Rounds[0].ID)
	require.NoError(t, err)
	assert.Equal(t, round.Completed, r.Status)

	runs, err := svc.ListRuns(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), runs.Total)

	err = svc.StopRun(ctx, run.ID)
	assert.ErrorIs(t, err, host.ErrRunNotActive)
}

func TestStartRunErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid config", func(t *testing.T) {
		svc, _ := newService(t, true)
		cfg := runConfig()
		cfg.MinFitClients = 0
		_, err := svc.StartRun(ctx, host.RunRequest{Config: cfg})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidConfig)
	})

	t.Run("no initial snapshot", func(t *testing.T) {
		svc, _ := newService(t, false)
		_, err := svc.StartRun(ctx, host.RunRequest{Config: runConfig()})
		assert.ErrorIs(t, err, host.ErrNoInitialState)
	})

	t.Run("run in progress", func(t *testing.T) {
		a := &agent{id: "a", value: 1, samples: 1, block: make(chan struct{})}
		b := &agent{id: "b", value: 1, samples: 1, block: make(chan struct{})}
		t.Cleanup(func() {
			close(a.block)
			close(b.block)
		})
		svc, _ := newService(t, true, a, b)

		run, err := svc.StartRun(ctx, host.RunRequest{Config: runConfig()})
		require.NoError(t, err)
		_, err = svc.StartRun(ctx, host.RunRequest{Config: runConfig()})
		assert.ErrorIs(t, err, host.ErrRunInProgress)
		assert.ErrorIs(t, err, pkgerrors.ErrConflict)

		require.NoError(t, svc.StopRun(ctx, run.ID))
		stopped, err := svc.RunStatus(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, round.RunCancelled, stopped.Status)
		assert.Equal(t, blob.GlobalFinalKey, stopped.Artifacts["global_final"])
		assert.ErrorIs(t, svc.StopRun(ctx, run.ID), host.ErrRunNotActive, "a stopped run cannot be stopped twice")

		_, err = svc.StartRun(ctx, host.RunRequest{Config: runConfig()})
		assert.NoError(t, err, "a new run may start once the last one ended")
	})
}

func TestStopFinishedRun(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, true, &agent{id: "a", value: 1, samples: 1}, &agent{id: "b", value: 3, samples: 1})

	run, err := svc.StartRun(ctx, host.RunRequest{Config: runConfig()})
	require.NoError(t, err)
	done, err := svc.Wait(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, round.RunSucceeded, done.Status)

	err = svc.StopRun(ctx, run.ID)
	assert.ErrorIs(t, err, host.ErrRunNotActive)
	assert.ErrorIs(t, err, pkgerrors.ErrConflict)

	after, err := svc.RunStatus(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, round.RunSucceeded, after.Status, "stopping a finished run leaves it untouched")
}

func TestWaitHonoursContext(t *testing.T) {
	a := &agent{id: "a", value: 1, samples: 1, block: make(chan struct{})}
	b := &agent{id: "b", value: 1, samples: 1, block: make(chan struct{})}
	svc, _ := newService(t, true, a, b)

	run, err := svc.StartRun(context.Background(), host.RunRequest{Config: runConfig()})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = svc.StopRun(context.Background(), run.ID)
		close(a.block)
		close(b.block)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = svc.Wait(ctx, run.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClients(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, false)

	reg, err := svc.RegisterClient(ctx, client.Registration{ClientID: "a", Available: true})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Name)

	got, err := svc.SetAvailability(ctx, "a", false)
	require.NoError(t, err)
	assert.False(t, got.Available)

	got, err = svc.GetClient(ctx, "a")
	require.NoError(t, err)
	assert.False(t, got.Available)

	page, err := svc.ListClients(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), page.Total)

	require.NoError(t, svc.RemoveClient(ctx, "a"))
	_, err = svc.GetClient(ctx, "a")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
	_, err = svc.SetAvailability(ctx, "a", true)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestSubscribe(t *testing.T) {
	svc, ps := newService(t, false)
	ps.On("Subscribe", mock.Anything, topics.All(), mock.Anything).Return(nil)

	require.NoError(t, svc.Subscribe(context.Background()))
	ps.AssertExpectations(t)
}
