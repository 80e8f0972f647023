// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/absmach/cohort"
	"github.com/absmach/cohort/client"
	pkgerrors "github.com/absmach/cohort/pkg/errors"
	"github.com/absmach/cohort/pkg/fl"
	"github.com/absmach/cohort/pkg/round"
	"github.com/absmach/cohort/pkg/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestClient(id string) client.Registration {
	return client.Registration{
		ClientID:     id,
		Name:         "client-" + id,
		Address:      "http://localhost:9101",
		Available:    true,
		LastSeen:     now,
		RegisteredAt: now.Add(-time.Hour),
	}
}

func TestRound(runID string, number, attempt uint64) round.Round {
	r := round.New(runID, number, attempt, now)
	r.Status = round.Completed
	r.Selected = []string{"a", "b"}
	r.Samples = map[string]uint64{"a": 3, "b": 1}
	r.Reports["a"] = fl.ClientReport{ClientID: "a", SampleCount: 3, Snapshot: fl.Snapshot{"w": fl.NewTensor([]float64{2})}}
	r.Metrics = fl.Metrics{"loss": 0.5}
	r.FinishedAt = now.Add(time.Minute)

	return *r
}

func TestRun(id string) round.Run {
	return round.Run{
		ID:        id,
		Config:    cohort.DefaultRunConfig(),
		Status:    round.RunRunning,
		Artifacts: map[string]string{"global/1": "abc"},
		StartedAt: now,
	}
}

// Run exercises repos. Ids are random so backends may share one database.
func Run(t *testing.T, repos *storage.Repositories) {
	t.Run("clients", func(t *testing.T) { testClients(t, repos.Clients) })
	t.Run("rounds", func(t *testing.T) { testRounds(t, repos.Rounds) })
	t.Run("runs", func(t *testing.T) { testRuns(t, repos.Runs) })
}

func testClients(t *testing.T, repo storage.ClientRepository) {
	ctx := context.Background()
	c := TestClient(uuid.NewString())

	cases := []struct {
		desc string
		op   func() error
		err  error
	}{
		{desc: "create", op: func() error { return repo.Create(ctx, c) }},
		{desc: "create duplicate", op: func() error { return repo.Create(ctx, c) }, err: pkgerrors.ErrEntityExists},
		{desc: "update missing", op: func() error { return repo.Update(ctx, TestClient(uuid.NewString())) }, err: pkgerrors.ErrNotFound},
		{desc: "delete missing", op: func() error { return repo.Delete(ctx, uuid.NewString()) }, err: pkgerrors.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := tc.op()
			if tc.err == nil {
				assert.NoError(t, err)

				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}

	got, err := repo.Get(ctx, c.ClientID)
	require.NoError(t, err)
	assert.Equal(t, c.Name, got.Name)
	assert.Equal(t, c.Address, got.Address)
	assert.True(t, got.Available)
	assert.True(t, c.LastSeen.Equal(got.LastSeen))

	c.Available = false
	c.LastSeen = now.Add(time.Minute)
	require.NoError(t, repo.Update(ctx, c))
	got, err = repo.Get(ctx, c.ClientID)
	require.NoError(t, err)
	assert.False(t, got.Available)
	assert.True(t, c.LastSeen.Equal(got.LastSeen))

	_, total, err := repo.List(ctx, 0, 100)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, uint64(1))

	require.NoError(t, repo.Delete(ctx, c.ClientID))
	_, err = repo.Get(ctx, c.ClientID)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func testRounds(t *testing.T, repo storage.RoundRepository) {
	ctx := context.Background()
	runID := uuid.NewString()

	for _, r := range []round.Round{TestRound(runID, 2, 0), TestRound(runID, 1, 1), TestRound(runID, 1, 0)} {
		require.NoError(t, repo.Save(ctx, r))
	}

	updated := TestRound(runID, 2, 0)
	updated.Status = round.Abandoned
	updated.Reason = round.ReasonQuorumNotReached
	require.NoError(t, repo.Save(ctx, updated), "save overwrites")

	got, err := repo.Get(ctx, updated.ID)
	require.NoError(t, err)
	assert.Equal(t, round.Abandoned, got.Status)
	assert.Equal(t, round.ReasonQuorumNotReached, got.Reason)
	assert.Equal(t, map[string]uint64{"a": 3, "b": 1}, got.Samples)
	assert.Empty(t, got.Reports, "snapshots are never persisted")

	rounds, total, err := repo.ListByRun(ctx, runID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
	require.Len(t, rounds, 3)
	assert.Equal(t, []string{runID + "-1-0", runID + "-1-1", runID + "-2-0"}, []string{rounds[0].ID, rounds[1].ID, rounds[2].ID})

	rounds, total, err = repo.ListByRun(ctx, runID, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
	assert.Len(t, rounds, 1)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func testRuns(t *testing.T, repo storage.RunRepository) {
	ctx := context.Background()
	run := TestRun(uuid.NewString())

	require.NoError(t, repo.Save(ctx, run))
	run.Status = round.RunFailed
	run.Reason = round.ReasonQuorumNotReached
	run.RoundsCompleted = 2
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, round.RunFailed, got.Status)
	assert.Equal(t, uint64(2), got.RoundsCompleted)
	assert.Equal(t, run.Config, got.Config)
	assert.Equal(t, run.Artifacts, got.Artifacts)

	runs, total, err := repo.List(ctx, 0, 100)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, uint64(1))
	assert.NotEmpty(t, runs)

	_, err = repo.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}
