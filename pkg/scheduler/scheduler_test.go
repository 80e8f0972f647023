package scheduler_test

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pool(n int) []client.Registration {
	clients := make([]client.Registration, n)
	for i := range clients {
		clients[i] = client.Registration{ClientID: fmt.Sprintf("client-%02d", i), Available: true}
	}

	return clients
}

func TestSelectErrors(t *testing.T) {
	t.Parallel()

	selectors := map[string]scheduler.Selector{
		"seeded":      scheduler.NewSeeded(),
		"round robin": scheduler.NewRoundRobin(),
	}

	cases := []struct {
		desc       string
		req        scheduler.Request
		candidates []client.Registration
		err        error
		count      int
	}{
		{desc: "no candidates", req: scheduler.Request{Round: 1, Max: 2}, err: scheduler.ErrNoClients},
		{desc: "zero target", req: scheduler.Request{Round: 1}, candidates: pool(3), err: scheduler.ErrInvalidTarget},
		{desc: "below min available", req: scheduler.Request{Round: 1, Max: 2, MinAvailable: 4}, candidates: pool(3), err: scheduler.ErrNotEnough},
		{desc: "capped by max", req: scheduler.Request{Round: 1, Max: 2, MinAvailable: 2}, candidates: pool(5), count: 2},
		{desc: "capped by pool", req: scheduler.Request{Round: 1, Max: 10, MinAvailable: 2}, candidates: pool(3), count: 3},
	}

	for name, sel := range selectors {
		for _, tc := range cases {
			t.Run(name+"/"+tc.desc, func(t *testing.T) {
				got, err := sel.Select(tc.req, tc.candidates)
				if tc.err != nil {
					assert.ErrorIs(t, err, tc.err)

					return
				}
				require.NoError(t, err)
				assert.Len(t, got, tc.count)
			})
		}
	}
}

func TestSeededDeterminism(t *testing.T) {
	t.Parallel()

	sel := scheduler.NewSeeded()
	candidates := pool(10)
	req := scheduler.Request{Round: 3, Attempt: 1, Seed: 42, Max: 4, MinAvailable: 4}

	first, err := sel.Select(req, candidates)
	require.NoError(t, err)

	shuffled := append([]client.Registration(nil), candidates...)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	again, err := sel.Select(req, shuffled)
	require.NoError(t, err)
	assert.Equal(t, scheduler.IDs(first), scheduler.IDs(again), "selection ignores candidate order")

	seen := map[string]bool{}
	for _, id := range scheduler.IDs(first) {
		assert.False(t, seen[id], "no duplicates")
		seen[id] = true
	}
}

func TestSeededVaries(t *testing.T) {
	t.Parallel()

	sel := scheduler.NewSeeded()
	candidates := pool(20)
	base := scheduler.Request{Round: 1, Seed: 7, Max: 5}

	ref, err := sel.Select(base, candidates)
	require.NoError(t, err)

	differs := false
	for round := uint64(2); round < 10; round++ {
		req := base
		req.Round = round
		got, err := sel.Select(req, candidates)
		require.NoError(t, err)
		if fmt.Sprint(scheduler.IDs(got)) != fmt.Sprint(scheduler.IDs(ref)) {
			differs = true
		}
	}
	assert.True(t, differs, "different rounds draw different cohorts")
}

func TestRoundRobin(t *testing.T) {
	t.Parallel()

	sel := scheduler.NewRoundRobin()
	candidates := pool(5)

	cases := []struct {
		round   uint64
		attempt uint64
		want    []string
	}{
		{round: 1, want: []string{"client-00", "client-01"}},
		{round: 2, want: []string{"client-02", "client-03"}},
		{round: 3, want: []string{"client-00", "client-04"}},
		{round: 1, attempt: 1, want: []string{"client-01", "client-02"}},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("round %d attempt %d", tc.round, tc.attempt), func(t *testing.T) {
			got, err := sel.Select(scheduler.Request{Round: tc.round, Attempt: tc.attempt, Max: 2}, candidates)
			require.NoError(t, err)
			assert.Equal(t, tc.want, scheduler.IDs(got))
		})
	}
}
