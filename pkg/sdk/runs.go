package sdk

import (
	"encoding/json"
	"net/http"

	"github.com/absmach/cohort/pkg/round"
)

const (
	runsEndpoint   = "/runs"
	roundsEndpoint = "/rounds"
)

// RunRequest overrides run options on the host. Unset fields keep the
// host's defaults; durations use time.ParseDuration syntax.
type RunRequest struct {
	NumRounds           *uint64           `json:"num_rounds,omitempty"`
	MinFitClients       *uint64           `json:"min_fit_clients,omitempty"`
	MinAvailableClients *uint64           `json:"min_available_clients,omitempty"`
	MaxClientsPerRound  *uint64           `json:"max_clients_per_round,omitempty"`
	RoundTimeout        string            `json:"round_timeout,omitempty"`
	MaxRoundRetries     *uint64           `json:"max_round_retries,omitempty"`
	SelectionSeed       *int64            `json:"selection_seed,omitempty"`
	RetryBackoff        string            `json:"retry_backoff,omitempty"`
	Evaluate            *bool             `json:"evaluate,omitempty"`
	Fuse                *bool             `json:"fuse,omitempty"`
	Params              map[string]string `json:"params,omitempty"`
	InitialKey          string            `json:"initial_key,omitempty"`
}

func (sdk *cohortSDK) StartRun(req RunRequest) (round.Run, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return round.Run{}, err
	}

	body, err := sdk.processRequest(http.MethodPost, sdk.hostURL+runsEndpoint, data, http.StatusCreated)
	if err != nil {
		return round.Run{}, err
	}

	var run round.Run
	if err := json.Unmarshal(body, &run); err != nil {
		return round.Run{}, err
	}

	return run, nil
}

func (sdk *cohortSDK) GetRun(id string) (round.Run, error) {
	body, err := sdk.processRequest(http.MethodGet, sdk.hostURL+runsEndpoint+"/"+id, nil, http.StatusOK)
	if err != nil {
		return round.Run{}, err
	}

	var run round.Run
	if err := json.Unmarshal(body, &run); err != nil {
		return round.Run{}, err
	}

	return run, nil
}

func (sdk *cohortSDK) ListRuns(offset, limit uint64) (round.RunPage, error) {
	url := sdk.hostURL + runsEndpoint + pageQuery(offset, limit)

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return round.RunPage{}, err
	}

	var page round.RunPage
	if err := json.Unmarshal(body, &page); err != nil {
		return round.RunPage{}, err
	}

	return page, nil
}

func (sdk *cohortSDK) StopRun(id string) error {
	url := sdk.hostURL + runsEndpoint + "/" + id + "/stop"

	_, err := sdk.processRequest(http.MethodPost, url, nil, http.StatusAccepted)

	return err
}

func (sdk *cohortSDK) ListRounds(runID string, offset, limit uint64) (round.Page, error) {
	url := sdk.hostURL + runsEndpoint + "/" + runID + roundsEndpoint + pageQuery(offset, limit)

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return round.Page{}, err
	}

	var page round.Page
	if err := json.Unmarshal(body, &page); err != nil {
		return round.Page{}, err
	}

	return page, nil
}

func (sdk *cohortSDK) GetRound(id string) (round.Round, error) {
	body, err := sdk.processRequest(http.MethodGet, sdk.hostURL+roundsEndpoint+"/"+id, nil, http.StatusOK)
	if err != nil {
		return round.Round{}, err
	}

	var r round.Round
	if err := json.Unmarshal(body, &r); err != nil {
		return round.Round{}, err
	}

	return r, nil
}
