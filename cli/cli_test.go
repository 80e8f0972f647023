package cli

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/host/api"
	"github.com/absmach/cohort/host/mocks"
	pkgerrors "github.com/absmach/cohort/pkg/errors"
	"github.com/absmach/cohort/pkg/round"
	"github.com/absmach/cohort/pkg/sdk"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRunRequest(t *testing.T) {
	t.Parallel()

	f := runFlags{
		numRounds: 5,
		minFit:    2,
		timeout:   "30s",
		seed:      9,
		evaluate:  false,
		params:    map[string]string{},
	}

	cases := []struct {
		desc    string
		changed []string
		check   func(t *testing.T, req sdk.RunRequest)
	}{
		{
			desc: "nothing changed keeps host defaults",
			check: func(t *testing.T, req sdk.RunRequest) {
				assert.Equal(t, sdk.RunRequest{}, req)
			},
		},
		{
			desc:    "changed options are sent",
			changed: []string{"rounds", "timeout", "seed", "evaluate"},
			check: func(t *testing.T, req sdk.RunRequest) {
				require.NotNil(t, req.NumRounds)
				assert.Equal(t, uint64(5), *req.NumRounds)
				assert.Equal(t, "30s", req.RoundTimeout)
				require.NotNil(t, req.SelectionSeed)
				assert.Equal(t, int64(9), *req.SelectionSeed)
				require.NotNil(t, req.Evaluate)
				assert.False(t, *req.Evaluate)
				assert.Nil(t, req.MinFitClients)
				assert.Nil(t, req.Fuse)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			changed := map[string]bool{}
			for _, name := range tc.changed {
				changed[name] = true
			}
			tc.check(t, f.request(func(name string) bool { return changed[name] }))
		})
	}
}

func TestCommands(t *testing.T) {
	svc := new(mocks.Service)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(api.MakeHandler(svc, logger, "test"))
	defer ts.Close()
	SetSDK(sdk.NewSDK(sdk.Config{HostURL: ts.URL}))

	svc.On("ListClients", mock.Anything, uint64(0), uint64(10)).Return(client.RegistrationPage{
		Limit:   10,
		Total:   1,
		Clients: []client.Registration{{ClientID: "client-7", Available: true}},
	}, nil)
	svc.On("SetAvailability", mock.Anything, "client-7", false).Return(client.Registration{ClientID: "client-7"}, nil)
	svc.On("RunStatus", mock.Anything, "run-1").Return(round.Run{ID: "run-1", Status: round.RunSucceeded, RoundsCompleted: 3}, nil)
	svc.On("StopRun", mock.Anything, "run-2").Return(pkgerrors.ErrNotFound)

	cases := []struct {
		desc   string
		cmd    func() *cobra.Command
		args   []string
		stdout string
		stderr string
	}{
		{desc: "list clients", cmd: NewClientsCmd, args: []string{"list"}, stdout: "client-7"},
		{desc: "disable client", cmd: NewClientsCmd, args: []string{"disable", "client-7"}, stdout: `"available"`},
		{desc: "view client without id", cmd: NewClientsCmd, args: []string{"view"}, stdout: "usage"},
		{desc: "wait for finished run", cmd: NewRunsCmd, args: []string{"wait", "run-1"}, stdout: "SUCCEEDED"},
		{desc: "stop missing run", cmd: NewRunsCmd, args: []string{"stop", "run-2"}, stderr: "error"},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			cmd := tc.cmd()
			cmd.SetOut(&stdout)
			cmd.SetErr(&stderr)
			cmd.SetArgs(tc.args)

			require.NoError(t, cmd.Execute())
			assert.Contains(t, stdout.String(), tc.stdout)
			assert.Contains(t, stderr.String(), tc.stderr)
		})
	}
}
