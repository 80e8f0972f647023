package scheduler

import (
	"cmp"
	"errors"
	"slices"

	"github.com/absmach/cohort/client"
)

var (
	ErrNoClients     = errors.New("no client was provided")
	ErrNotEnough     = errors.New("not enough available clients")
	ErrInvalidTarget = errors.New("selection target must be positive")
)

// Request describes one selection for a round attempt.
type Request struct {
	Round   uint64
	Attempt uint64
	Seed    int64
	// Max caps the number of clients chosen.
	Max uint64
	// MinAvailable is the smallest candidate pool that may be selected from.
	MinAvailable uint64
}

// Selector picks exactly min(Max, len(candidates)) clients. Implementations
// must not depend on the order of candidates.
type Selector interface {
	Select(req Request, candidates []client.Registration) ([]client.Registration, error)
}

func check(req Request, candidates []client.Registration) error {
	if req.Max == 0 {
		return ErrInvalidTarget
	}
	if len(candidates) == 0 {
		return ErrNoClients
	}
	if uint64(len(candidates)) < req.MinAvailable {
		return ErrNotEnough
	}

	return nil
}

func sortedByID(candidates []client.Registration) []client.Registration {
	sorted := slices.Clone(candidates)
	slices.SortFunc(sorted, func(a, b client.Registration) int {
		return cmp.Compare(a.ClientID, b.ClientID)
	})

	return sorted
}

func IDs(clients []client.Registration) []string {
	ids := make([]string, len(clients))
	for i, c := range clients {
		ids[i] = c.ClientID
	}

	return ids
}
