package api_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/client/api"
	"github.com/absmach/cohort/client/mocks"
	pkgerrors "github.com/absmach/cohort/pkg/errors"
	"github.com/absmach/cohort/pkg/fl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newServer(t *testing.T) (*mocks.Agent, client.Agent) {
	t.Helper()

	agent := new(mocks.Agent)
	ts := httptest.NewServer(api.MakeHandler(agent, logger, "test"))
	t.Cleanup(ts.Close)

	remote, err := api.NewAgent("client-1", ts.URL, ts.Client())
	require.NoError(t, err)

	return agent, remote
}

func TestRemoteFit(t *testing.T) {
	snap := fl.Snapshot{"w": fl.NewTensor([]float64{1, 2}, 2)}
	want := fl.ClientReport{
		ClientID:    "client-1",
		Snapshot:    fl.Snapshot{"w": fl.NewTensor([]float64{2, 3}, 2)},
		SampleCount: 7,
		Metrics:     fl.Metrics{"loss": 0.25},
	}

	cases := []struct {
		desc     string
		snapshot fl.Snapshot
		res      fl.ClientReport
		err      error
		checkErr func(t *testing.T, err error)
	}{
		{
			desc:     "fit succeeds",
			snapshot: snap,
			res:      want,
		},
		{
			desc:     "adapter failure",
			snapshot: snap,
			err:      &client.AdapterError{ClientID: "client-1", Op: "train", Cause: errors.New("oom")},
			checkErr: func(t *testing.T, err error) {
				var ae *client.AdapterError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, "client-1", ae.ClientID)
				assert.Contains(t, err.Error(), "oom")
			},
		},
		{
			desc:     "schema mismatch",
			snapshot: snap,
			err:      &client.AdapterError{ClientID: "client-1", Op: "fit", Cause: fl.ErrSchemaMismatch},
			checkErr: func(t *testing.T, err error) {
				var ae *client.AdapterError
				assert.ErrorAs(t, err, &ae)
			},
		},
		{
			desc:     "server fault",
			snapshot: snap,
			err:      errors.New("disk failure"),
			checkErr: func(t *testing.T, err error) {
				var ae *client.AdapterError
				assert.False(t, errors.As(err, &ae))
				assert.Contains(t, err.Error(), "disk failure")
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			agent, remote := newServer(t)
			agent.On("Fit", mock.Anything, mock.MatchedBy(func(req client.FitRequest) bool {
				return req.Round == 3 && req.Snapshot.Equal(tc.snapshot)
			})).Return(tc.res, tc.err)

			rep, err := remote.Fit(context.Background(), client.FitRequest{Round: 3, Snapshot: tc.snapshot})
			if tc.checkErr != nil {
				tc.checkErr(t, err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, want.ClientID, rep.ClientID)
			assert.Equal(t, want.SampleCount, rep.SampleCount)
			assert.True(t, want.Snapshot.Equal(rep.Snapshot))
			assert.Equal(t, want.Metrics, rep.Metrics)
		})
	}
}

func TestRemoteEvaluate(t *testing.T) {
	agent, remote := newServer(t)
	agent.On("Evaluate", mock.Anything, mock.Anything).Return(fl.EvaluationReport{ClientID: "client-1", Loss: 0.5, SampleCount: 2}, nil)

	rep, err := remote.Evaluate(context.Background(), client.EvaluateRequest{Round: 1, Snapshot: fl.Snapshot{"w": fl.NewTensor([]float64{1})}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, rep.Loss, 1e-12)
	assert.Equal(t, uint64(2), rep.SampleCount)
}

func TestRemoteProfile(t *testing.T) {
	agent, remote := newServer(t)
	agent.On("Profile", mock.Anything).Return(fl.ClientProfile{ClientID: "client-1", Profile: fl.Profile{1, 2}}, nil)

	p, err := remote.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fl.Profile{1, 2}, p.Profile)
}

func TestFitRejectsJSON(t *testing.T) {
	agent := new(mocks.Agent)
	ts := httptest.NewServer(api.MakeHandler(agent, logger, "test"))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/fit", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	agent.AssertNotCalled(t, "Fit", mock.Anything, mock.Anything)
}

func TestNewAgentValidation(t *testing.T) {
	_, err := api.NewAgent("", "http://x", nil)
	assert.ErrorIs(t, err, client.ErrMissingClientID)
	_, err = api.NewAgent("a", "", nil)
	assert.ErrorIs(t, err, client.ErrMissingAddress)
	assert.NotErrorIs(t, err, pkgerrors.ErrNotFound)
}
