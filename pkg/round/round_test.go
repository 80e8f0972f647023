package round_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/absmach/cohort/pkg/fl"
	"github.com/absmach/cohort/pkg/round"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from  round.Status
		to    round.Status
		valid bool
	}{
		{round.Pending, round.Selecting, true},
		{round.Selecting, round.Dispatched, true},
		{round.Dispatched, round.Collecting, true},
		{round.Collecting, round.Aggregating, true},
		{round.Aggregating, round.Completed, true},
		{round.Selecting, round.Abandoned, true},
		{round.Dispatched, round.Abandoned, true},
		{round.Collecting, round.Abandoned, true},
		{round.Aggregating, round.Abandoned, true},
		{round.Pending, round.Abandoned, false},
		{round.Pending, round.Dispatched, false},
		{round.Collecting, round.Completed, false},
		{round.Completed, round.Selecting, false},
		{round.Abandoned, round.Selecting, false},
		{round.Abandoned, round.Completed, false},
	}

	for _, tc := range cases {
		t.Run(tc.from.String()+"->"+tc.to.String(), func(t *testing.T) {
			assert.Equal(t, tc.valid, round.CanTransition(tc.from, tc.to))
		})
	}
}

func TestRoundLifecycle(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := round.New("run", 1, 0, now)
	assert.Equal(t, round.Pending, r.Status)

	rep := fl.ClientReport{ClientID: "a", SampleCount: 2, Snapshot: fl.Snapshot{"w": fl.NewTensor([]float64{1})}}
	err := r.Accept(rep)
	assert.ErrorIs(t, err, round.ErrRoundClosed, "reports are refused before collection opens")

	require.NoError(t, r.Transition(round.Selecting, now))
	r.Selected = []string{"a", "b"}
	require.NoError(t, r.Transition(round.Dispatched, now))
	require.NoError(t, r.Open(30*time.Second, now))
	assert.Equal(t, now.Add(30*time.Second), r.Deadline)

	require.NoError(t, r.Accept(rep))
	rep.SampleCount = 5
	require.NoError(t, r.Accept(rep))
	assert.Len(t, r.Collected(), 1, "duplicate report overwrites")
	assert.Equal(t, uint64(5), r.Samples["a"])

	assert.Error(t, r.Accept(fl.ClientReport{ClientID: "z", SampleCount: 1}))

	r.Exclude("b", errors.New("boom"))
	assert.Equal(t, "boom", r.Excluded["b"])

	require.NoError(t, r.Transition(round.Aggregating, now))
	assert.ErrorIs(t, r.Accept(rep), round.ErrRoundClosed, "late reports are discarded")

	done := now.Add(time.Minute)
	require.NoError(t, r.Transition(round.Completed, done))
	assert.Equal(t, done, r.FinishedAt)
	assert.ErrorIs(t, r.Transition(round.Abandoned, done), round.ErrInvalidTransition)
}

func TestAbandon(t *testing.T) {
	t.Parallel()

	now := time.Now()
	r := round.New("run", 3, 1, now)
	require.NoError(t, r.Transition(round.Selecting, now))
	require.NoError(t, r.Abandon(round.ReasonInsufficientClients, round.ErrInsufficientClients, now))
	assert.Equal(t, round.Abandoned, r.Status)
	assert.Equal(t, round.ReasonInsufficientClients, r.Reason)
	assert.ErrorIs(t, r.Reason.Err(), round.ErrInsufficientClients)
	assert.Equal(t, "run-3-1", r.ID)
}

func TestStatusText(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(struct {
		S round.Status `json:"s"`
	}{round.Collecting})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"COLLECTING"}`, string(data))

	var s round.Status
	require.NoError(t, s.UnmarshalText([]byte("abandoned")))
	assert.Equal(t, round.Abandoned, s)
	assert.ErrorIs(t, s.UnmarshalText([]byte("nope")), round.ErrUnknownStatus)
}

func TestSummaryDropsSnapshots(t *testing.T) {
	t.Parallel()

	now := time.Now()
	r := round.New("run", 1, 0, now)
	r.Status = round.Collecting
	r.Selected = []string{"a"}
	require.NoError(t, r.Accept(fl.ClientReport{ClientID: "a", SampleCount: 1, Snapshot: fl.Snapshot{"w": fl.NewTensor([]float64{1})}}))

	s := r.Summary()
	assert.Nil(t, s.Reports)
	s.Samples["a"] = 99
	assert.Equal(t, uint64(1), r.Samples["a"])
}

func TestReasonErr(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc   string
		reason round.Reason
		err    error
	}{
		{desc: "insufficient clients", reason: round.ReasonInsufficientClients, err: round.ErrInsufficientClients},
		{desc: "quorum not reached", reason: round.ReasonQuorumNotReached, err: round.ErrQuorumNotReached},
		{desc: "aggregation error", reason: round.ReasonAggregationError, err: round.ErrAggregation},
		{desc: "cancelled", reason: round.ReasonCancelled, err: round.ErrCancelled},
		{desc: "none", reason: round.ReasonNone},
	}
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.err, tc.reason.Err())
		})
	}
}
