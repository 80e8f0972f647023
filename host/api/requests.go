package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/absmach/cohort"
	"github.com/absmach/cohort/pkg/api"
	apiutil "github.com/absmach/supermq/api/http/util"
)

var (
	errMissingAvailability = errors.New("missing availability")
	errLimitSize           = errors.New("limit exceeds maximum page size")
)

// runReq mirrors cohort.RunConfig with durations written as strings. Fields
// that are left out keep their defaults.
type runReq struct {
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

func (r runReq) config() (cohort.RunConfig, error) {
	c := cohort.DefaultRunConfig()
	set(&c.NumRounds, r.NumRounds)
	set(&c.MinFitClients, r.MinFitClients)
	set(&c.MinAvailableClients, r.MinAvailableClients)
	set(&c.MaxClientsPerRound, r.MaxClientsPerRound)
	set(&c.MaxRoundRetries, r.MaxRoundRetries)
	set(&c.SelectionSeed, r.SelectionSeed)
	set(&c.Evaluate, r.Evaluate)
	set(&c.Fuse, r.Fuse)
	c.Params = r.Params

	var err error
	if c.RoundTimeout, err = duration(r.RoundTimeout, c.RoundTimeout); err != nil {
		return c, fmt.Errorf("round_timeout: %w", err)
	}
	if c.RetryBackoff, err = duration(r.RetryBackoff, c.RetryBackoff); err != nil {
		return c, fmt.Errorf("retry_backoff: %w", err)
	}

	return c, c.Validate()
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func duration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}

	return time.ParseDuration(s)
}

type clientReq struct {
	ClientID  string `json:"client_id"`
	Name      string `json:"name,omitempty"`
	Address   string `json:"address,omitempty"`
	Available *bool  `json:"available,omitempty"`
}

func (r clientReq) validate() error {
	if r.ClientID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type availabilityReq struct {
	id        string
	Available *bool `json:"available"`
}

func (r availabilityReq) validate() error {
	if r.id == "" {
		return apiutil.ErrMissingID
	}
	if r.Available == nil {
		return errMissingAvailability
	}

	return nil
}

type entityReq struct {
	id string
}

func (e entityReq) validate() error {
	if e.id == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type listEntityReq struct {
	id            string
	offset, limit uint64
}

func (e listEntityReq) validate() error {
	if e.limit > api.MaxLimitSize {
		return errLimitSize
	}

	return nil
}
