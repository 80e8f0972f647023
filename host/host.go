package host

import (
	"context"

	"github.com/absmach/cohort"
	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/fl"
	"github.com/absmach/cohort/pkg/round"
)

// Service is the host's control surface: runs, their rounds, and the
// registry of clients that may be selected.
type Service interface {
	// StartRun validates the configuration and starts a run in the
	// background. Only one run may be active at a time.
	StartRun(ctx context.Context, req RunRequest) (round.Run, error)
	RunStatus(ctx context.Context, runID string) (round.Run, error)
	ListRuns(ctx context.Context, offset, limit uint64) (round.RunPage, error)
	// Wait blocks until the run finishes or ctx is done.
	Wait(ctx context.Context, runID string) (round.Run, error)
	StopRun(ctx context.Context, runID string) error

	ListRounds(ctx context.Context, runID string, offset, limit uint64) (round.Page, error)
	GetRound(ctx context.Context, roundID string) (round.Round, error)

	RegisterClient(ctx context.Context, reg client.Registration) (client.Registration, error)
	GetClient(ctx context.Context, clientID string) (client.Registration, error)
	ListClients(ctx context.Context, offset, limit uint64) (client.RegistrationPage, error)
	SetAvailability(ctx context.Context, clientID string, available bool) (client.Registration, error)
	RemoveClient(ctx context.Context, clientID string) error

	// Subscribe feeds client presence messages into the registry.
	Subscribe(ctx context.Context) error
}

type RunRequest struct {
	Config cohort.RunConfig `json:"config"`
	// InitialKey names the blob holding the starting snapshot. Defaults to global/0.
	InitialKey string `json:"initial_key,omitempty"`
}

// GlobalState is the authoritative snapshot between rounds. It is replaced
// as a whole, never edited.
type GlobalState struct {
	Round    uint64
	Snapshot fl.Snapshot
}

type RunResult struct {
	RunID           string    `json:"run_id"`
	RoundsCompleted uint64    `json:"rounds_completed"`
	Artifacts       Artifacts `json:"artifacts"`
}

type Artifacts struct {
	GlobalFinal  string `json:"global_final"`
	ProfileFinal string `json:"profile_final,omitempty"`
}

func (a Artifacts) Map() map[string]string {
	m := map[string]string{"global_final": a.GlobalFinal}
	if a.ProfileFinal != "" {
		m["profile_final"] = a.ProfileFinal
	}

	return m
}

// RegistrationSource returns the clients eligible for selection right now.
type RegistrationSource interface {
	Candidates(ctx context.Context) ([]client.Registration, error)
}

// Dialer returns an agent for a registered client.
type Dialer func(reg client.Registration) (client.Agent, error)
