package sdk

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/api"
	"github.com/absmach/cohort/pkg/round"
)

const CTJSON string = "application/json"

type SDK interface {
	// StartRun starts a training run on the host.
	//
	// example:
	//  run, _ := sdk.StartRun(sdk.RunRequest{
	//    NumRounds:    &rounds,
	//    RoundTimeout: "2m",
	//  })
	//  fmt.Println(run.ID)
	StartRun(req RunRequest) (round.Run, error)

	// GetRun gets a run by id.
	//
	// example:
	//  run, _ := sdk.GetRun("0192a1c4-6f1e-7c3a-9d7a-3f5c2b1e4a10")
	//  fmt.Println(run.Status)
	GetRun(id string) (round.Run, error)

	// ListRuns lists runs, oldest first.
	//
	// example:
	//  page, _ := sdk.ListRuns(0, 10)
	//  fmt.Println(page.Total)
	ListRuns(offset, limit uint64) (round.RunPage, error)

	// StopRun cancels an active run.
	//
	// example:
	//  _ = sdk.StopRun("0192a1c4-6f1e-7c3a-9d7a-3f5c2b1e4a10")
	StopRun(id string) error

	// ListRounds lists every round attempt of a run.
	//
	// example:
	//  page, _ := sdk.ListRounds("0192a1c4-6f1e-7c3a-9d7a-3f5c2b1e4a10", 0, 10)
	//  fmt.Println(page.Rounds)
	ListRounds(runID string, offset, limit uint64) (round.Page, error)

	// GetRound gets a round attempt by id.
	//
	// example:
	//  r, _ := sdk.GetRound("0192a1c4-6f1e-7c3a-9d7a-3f5c2b1e4a10-1-0")
	//  fmt.Println(r.Status)
	GetRound(id string) (round.Round, error)

	// RegisterClient registers a client with the host.
	//
	// example:
	//  c, _ := sdk.RegisterClient(sdk.ClientRequest{
	//    ClientID: "client-1",
	//    Address:  "http://localhost:9101",
	//  })
	RegisterClient(req ClientRequest) (client.Registration, error)

	// GetClient gets a client by id.
	GetClient(id string) (client.Registration, error)

	// ListClients lists registered clients.
	ListClients(offset, limit uint64) (client.RegistrationPage, error)

	// SetAvailability marks a client as selectable or not.
	//
	// example:
	//  c, _ := sdk.SetAvailability("client-1", false)
	SetAvailability(id string, available bool) (client.Registration, error)

	// RemoveClient deletes a client registration.
	RemoveClient(id string) error
}

type cohortSDK struct {
	hostURL string
	client  *http.Client
}

type Config struct {
	HostURL         string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &cohortSDK{
		hostURL: strings.TrimSuffix(cfg.HostURL, "/"),
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *cohortSDK) processRequest(method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != expectedRespCode {
		return []byte{}, fmt.Errorf("unexpected response code %d: %w", resp.StatusCode, api.DecodeError(resp))
	}

	return io.ReadAll(resp.Body)
}

func pageQuery(offset, limit uint64) string {
	queries := make([]string, 0)
	if offset > 0 {
		queries = append(queries, fmt.Sprintf("offset=%d", offset))
	}
	if limit > 0 {
		queries = append(queries, fmt.Sprintf("limit=%d", limit))
	}
	if len(queries) == 0 {
		return ""
	}

	return "?" + strings.Join(queries, "&")
}
