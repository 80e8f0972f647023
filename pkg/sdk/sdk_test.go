package sdk_test

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/absmach/cohort"
	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/host"
	"github.com/absmach/cohort/host/api"
	"github.com/absmach/cohort/host/mocks"
	pkgerrors "github.com/absmach/cohort/pkg/errors"
	"github.com/absmach/cohort/pkg/round"
	"github.com/absmach/cohort/pkg/sdk"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const runID = "0192a1c4-6f1e-7c3a-9d7a-3f5c2b1e4a10"

func newSDK(t *testing.T) (sdk.SDK, *mocks.Service) {
	t.Helper()

	svc := new(mocks.Service)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(api.MakeHandler(svc, logger, "test"))
	t.Cleanup(ts.Close)

	return sdk.NewSDK(sdk.Config{HostURL: ts.URL}), svc
}

func TestStartRun(t *testing.T) {
	rounds := uint64(4)
	seed := int64(7)

	expected := cohort.DefaultRunConfig()
	expected.NumRounds = rounds
	expected.SelectionSeed = seed
	expected.RoundTimeout = 30 * time.Second

	cases := []struct {
		desc   string
		req    sdk.RunRequest
		svcReq *host.RunRequest
		svcRes round.Run
		svcErr error
		err    error
	}{
		{
			desc: "start run with overrides",
			req: sdk.RunRequest{
				NumRounds:     &rounds,
				SelectionSeed: &seed,
				RoundTimeout:  "30s",
				InitialKey:    "global/seed",
			},
			svcReq: &host.RunRequest{Config: expected, InitialKey: "global/seed"},
			svcRes: round.Run{ID: runID, Config: expected, Status: round.RunRunning},
		},
		{
			desc: "start run with bad duration",
			req:  sdk.RunRequest{RoundTimeout: "soon"},
			err:  apiutil.ErrValidation,
		},
		{
			desc:   "start run while another is active",
			req:    sdk.RunRequest{},
			svcReq: &host.RunRequest{Config: cohort.DefaultRunConfig()},
			svcErr: host.ErrRunInProgress,
			err:    pkgerrors.ErrConflict,
		},
		{
			desc:   "start run without initial state",
			req:    sdk.RunRequest{},
			svcReq: &host.RunRequest{Config: cohort.DefaultRunConfig()},
			svcErr: host.ErrNoInitialState,
			err:    pkgerrors.ErrUnprocessable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			cs, svc := newSDK(t)
			if tc.svcReq != nil {
				svc.On("StartRun", mock.Anything, *tc.svcReq).Return(tc.svcRes, tc.svcErr)
			}

			run, err := cs.StartRun(tc.req)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, runID, run.ID)
			assert.Equal(t, round.RunRunning, run.Status)
			assert.Equal(t, expected, run.Config)
			svc.AssertExpectations(t)
		})
	}
}

func TestRuns(t *testing.T) {
	cs, svc := newSDK(t)

	done := round.Run{
		ID:              runID,
		Status:          round.RunSucceeded,
		RoundsCompleted: 3,
		Artifacts:       map[string]string{"global_final": "global/final"},
	}
	svc.On("RunStatus", mock.Anything, runID).Return(done, nil)
	svc.On("RunStatus", mock.Anything, "missing").Return(round.Run{}, pkgerrors.ErrNotFound)
	svc.On("ListRuns", mock.Anything, uint64(0), uint64(10)).Return(round.RunPage{Limit: 10, Total: 1, Runs: []round.Run{done}}, nil)
	svc.On("StopRun", mock.Anything, runID).Return(host.ErrRunNotActive)
	svc.On("ListRounds", mock.Anything, runID, uint64(1), uint64(2)).Return(round.Page{
		Offset: 1,
		Limit:  2,
		Total:  3,
		Rounds: []round.Round{{ID: runID + "-2-0", RunID: runID, Number: 2, Status: round.Completed}},
	}, nil)
	svc.On("GetRound", mock.Anything, runID+"-3-1").Return(round.Round{
		ID:     runID + "-3-1",
		Number: 3,
		Status: round.Abandoned,
		Reason: round.ReasonQuorumNotReached,
	}, nil)

	run, err := cs.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, done, run)

	_, err = cs.GetRun("missing")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

	page, err := cs.ListRuns(0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), page.Total)
	assert.Len(t, page.Runs, 1)

	_, err = cs.ListRuns(0, 1000)
	assert.ErrorIs(t, err, apiutil.ErrValidation)

	err = cs.StopRun(runID)
	assert.ErrorIs(t, err, pkgerrors.ErrConflict)

	rounds, err := cs.ListRounds(runID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), rounds.Total)
	assert.Equal(t, round.Completed, rounds.Rounds[0].Status)

	r, err := cs.GetRound(runID + "-3-1")
	require.NoError(t, err)
	assert.Equal(t, round.ReasonQuorumNotReached, r.Reason)
	assert.Equal(t, round.Abandoned, r.Status)
}

func TestClients(t *testing.T) {
	cs, svc := newSDK(t)

	reg := client.Registration{ClientID: "client-1", Name: "quiet-otter", Address: "http://localhost:9101", Available: true}
	off := reg
	off.Available = false

	svc.On("RegisterClient", mock.Anything, client.Registration{ClientID: "client-1", Address: "http://localhost:9101", Available: true}).Return(reg, nil)
	svc.On("GetClient", mock.Anything, "client-1").Return(reg, nil)
	svc.On("ListClients", mock.Anything, uint64(0), uint64(100)).Return(client.RegistrationPage{Limit: 100, Total: 1, Clients: []client.Registration{reg}}, nil)
	svc.On("SetAvailability", mock.Anything, "client-1", false).Return(off, nil)
	svc.On("RemoveClient", mock.Anything, "client-1").Return(nil)
	svc.On("RemoveClient", mock.Anything, "ghost").Return(pkgerrors.ErrNotFound)

	got, err := cs.RegisterClient(sdk.ClientRequest{ClientID: "client-1", Address: "http://localhost:9101"})
	require.NoError(t, err)
	assert.Equal(t, reg, got)

	_, err = cs.RegisterClient(sdk.ClientRequest{})
	assert.ErrorIs(t, err, apiutil.ErrValidation)

	got, err = cs.GetClient("client-1")
	require.NoError(t, err)
	assert.Equal(t, reg, got)

	page, err := cs.ListClients(0, 0)
	require.NoError(t, err)
	assert.Equal(t, []client.Registration{reg}, page.Clients)

	got, err = cs.SetAvailability("client-1", false)
	require.NoError(t, err)
	assert.False(t, got.Available)

	assert.NoError(t, cs.RemoveClient("client-1"))
	assert.ErrorIs(t, cs.RemoveClient("ghost"), pkgerrors.ErrNotFound)

	svc.AssertExpectations(t)
}
