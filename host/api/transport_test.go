package api_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/absmach/cohort"
	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/host"
	"github.com/absmach/cohort/host/api"
	"github.com/absmach/cohort/host/mocks"
	pkgerrors "github.com/absmach/cohort/pkg/errors"
	"github.com/absmach/cohort/pkg/round"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const runID = "0192a1c4-6f1e-7c3a-9d7a-3f5c2b1e4a10"

type testRequest struct {
	method      string
	url         string
	contentType string
	body        string
}

func (tr testRequest) make(t *testing.T, ts *httptest.Server) *http.Response {
	t.Helper()

	req, err := http.NewRequest(tr.method, ts.URL+tr.url, strings.NewReader(tr.body))
	require.NoError(t, err)
	if tr.contentType != "" {
		req.Header.Set("Content-Type", tr.contentType)
	}

	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })

	return res
}

func newServer(t *testing.T) (*httptest.Server, *mocks.Service) {
	t.Helper()

	svc := new(mocks.Service)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(api.MakeHandler(svc, logger, "test"))
	t.Cleanup(ts.Close)

	return ts, svc
}

func TestStartRunEndpoint(t *testing.T) {
	cfg := cohort.DefaultRunConfig()
	cfg.NumRounds = 5
	cfg.Params = map[string]string{"local_epochs": "2"}

	cases := []struct {
		desc        string
		contentType string
		body        string
		svcReq      *host.RunRequest
		svcErr      error
		status      int
		location    string
	}{
		{
			desc:        "start run",
			contentType: "application/json",
			body:        `{"num_rounds": 5, "params": {"local_epochs": "2"}}`,
			svcReq:      &host.RunRequest{Config: cfg},
			status:      http.StatusCreated,
			location:    "/runs/" + runID,
		},
		{
			desc:        "start run with invalid config",
			contentType: "application/json",
			body:        `{"min_fit_clients": 0}`,
			status:      http.StatusBadRequest,
		},
		{
			desc:        "start run with malformed body",
			contentType: "application/json",
			body:        `{"num_rounds":`,
			status:      http.StatusBadRequest,
		},
		{
			desc:        "start run with wrong content type",
			contentType: "text/plain",
			body:        `{}`,
			status:      http.StatusBadRequest,
		},
		{
			desc:        "start run while another is active",
			contentType: "application/json",
			body:        `{}`,
			svcReq:      &host.RunRequest{Config: cohort.DefaultRunConfig()},
			svcErr:      host.ErrRunInProgress,
			status:      http.StatusConflict,
		},
		{
			desc:        "start run with missing initial state",
			contentType: "application/json",
			body:        `{"initial_key": "global/nope"}`,
			svcReq:      &host.RunRequest{Config: cohort.DefaultRunConfig(), InitialKey: "global/nope"},
			svcErr:      host.ErrNoInitialState,
			status:      http.StatusUnprocessableEntity,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			ts, svc := newServer(t)
			if tc.svcReq != nil {
				svc.On("StartRun", mock.Anything, *tc.svcReq).Return(round.Run{ID: runID, Config: tc.svcReq.Config}, tc.svcErr)
			}

			res := testRequest{
				method:      http.MethodPost,
				url:         "/runs",
				contentType: tc.contentType,
				body:        tc.body,
			}.make(t, ts)

			assert.Equal(t, tc.status, res.StatusCode)
			assert.Equal(t, tc.location, res.Header.Get("Location"))
			svc.AssertExpectations(t)
		})
	}
}

func TestRunEndpoints(t *testing.T) {
	ts, svc := newServer(t)

	svc.On("RunStatus", mock.Anything, runID).Return(round.Run{ID: runID, Status: round.RunFailed, Reason: round.ReasonQuorumNotReached}, nil)
	svc.On("RunStatus", mock.Anything, "missing").Return(round.Run{}, pkgerrors.ErrNotFound)
	svc.On("StopRun", mock.Anything, runID).Return(nil)
	svc.On("ListRuns", mock.Anything, uint64(5), uint64(10)).Return(round.RunPage{Offset: 5, Limit: 10}, nil)
	svc.On("ListRounds", mock.Anything, runID, uint64(0), uint64(100)).Return(round.Page{Limit: 100}, nil)
	svc.On("GetRound", mock.Anything, "r-1").Return(round.Round{}, pkgerrors.ErrNotFound)

	cases := []struct {
		desc   string
		req    testRequest
		status int
		body   string
	}{
		{
			desc:   "get run",
			req:    testRequest{method: http.MethodGet, url: "/runs/" + runID},
			status: http.StatusOK,
			body:   `"reason":"QuorumNotReached"`,
		},
		{
			desc:   "get missing run",
			req:    testRequest{method: http.MethodGet, url: "/runs/missing"},
			status: http.StatusNotFound,
			body:   `"error"`,
		},
		{
			desc:   "stop run",
			req:    testRequest{method: http.MethodPost, url: "/runs/" + runID + "/stop"},
			status: http.StatusAccepted,
		},
		{
			desc:   "list runs",
			req:    testRequest{method: http.MethodGet, url: "/runs?offset=5&limit=10"},
			status: http.StatusOK,
			body:   `"offset":5`,
		},
		{
			desc:   "list runs with bad offset",
			req:    testRequest{method: http.MethodGet, url: "/runs?offset=five"},
			status: http.StatusBadRequest,
		},
		{
			desc:   "list runs over the page limit",
			req:    testRequest{method: http.MethodGet, url: "/runs?limit=101"},
			status: http.StatusBadRequest,
		},
		{
			desc:   "list rounds",
			req:    testRequest{method: http.MethodGet, url: "/runs/" + runID + "/rounds"},
			status: http.StatusOK,
		},
		{
			desc:   "get missing round",
			req:    testRequest{method: http.MethodGet, url: "/rounds/r-1"},
			status: http.StatusNotFound,
		},
		{
			desc:   "health",
			req:    testRequest{method: http.MethodGet, url: "/health"},
			status: http.StatusOK,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			res := tc.req.make(t, ts)
			assert.Equal(t, tc.status, res.StatusCode)

			data, err := io.ReadAll(res.Body)
			require.NoError(t, err)
			assert.Contains(t, string(data), tc.body)
		})
	}
}

func TestClientEndpoints(t *testing.T) {
	ts, svc := newServer(t)

	reg := client.Registration{ClientID: "client-1", Name: "quiet-otter", Available: true}
	svc.On("RegisterClient", mock.Anything, client.Registration{ClientID: "client-1", Available: true}).Return(reg, nil)
	svc.On("RegisterClient", mock.Anything, client.Registration{ClientID: "client-2", Available: false}).Return(client.Registration{}, pkgerrors.ErrEntityExists)
	svc.On("SetAvailability", mock.Anything, "client-1", false).Return(client.Registration{ClientID: "client-1"}, nil)
	svc.On("RemoveClient", mock.Anything, "client-1").Return(nil)

	cases := []struct {
		desc     string
		req      testRequest
		status   int
		location string
	}{
		{
			desc:     "register client",
			req:      testRequest{method: http.MethodPost, url: "/clients", contentType: "application/json", body: `{"client_id":"client-1"}`},
			status:   http.StatusCreated,
			location: "/clients/client-1",
		},
		{
			desc:   "register client without id",
			req:    testRequest{method: http.MethodPost, url: "/clients", contentType: "application/json", body: `{"name":"x"}`},
			status: http.StatusBadRequest,
		},
		{
			desc:   "register existing client",
			req:    testRequest{method: http.MethodPost, url: "/clients", contentType: "application/json", body: `{"client_id":"client-2","available":false}`},
			status: http.StatusConflict,
		},
		{
			desc:   "set availability",
			req:    testRequest{method: http.MethodPut, url: "/clients/client-1/availability", contentType: "application/json", body: `{"available":false}`},
			status: http.StatusOK,
		},
		{
			desc:   "set availability without value",
			req:    testRequest{method: http.MethodPut, url: "/clients/client-1/availability", contentType: "application/json", body: `{}`},
			status: http.StatusBadRequest,
		},
		{
			desc:   "remove client",
			req:    testRequest{method: http.MethodDelete, url: "/clients/client-1"},
			status: http.StatusNoContent,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			res := tc.req.make(t, ts)
			assert.Equal(t, tc.status, res.StatusCode)
			assert.Equal(t, tc.location, res.Header.Get("Location"))
		})
	}

	res := testRequest{method: http.MethodPost, url: "/clients", contentType: "application/json", body: `{"client_id":"client-1"}`}.make(t, ts)
	var got client.Registration
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, reg, got)
}
