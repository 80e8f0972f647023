package scheduler

import (
	"math/rand/v2"

	"github.com/absmach/cohort/client"
)

type seeded struct{}

// NewSeeded returns a selector that shuffles candidates with a PCG stream
// derived from the seed, round and attempt. Equal inputs always yield the
// same selection.
func NewSeeded() Selector {
	return seeded{}
}

func (seeded) Select(req Request, candidates []client.Registration) ([]client.Registration, error) {
	if err := check(req, candidates); err != nil {
		return nil, err
	}

	pool := sortedByID(candidates)
	rng := rand.New(rand.NewPCG(uint64(req.Seed), req.Round<<32^req.Attempt))
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	n := min(req.Max, uint64(len(pool)))
	selected := pool[:n]

	return sortedByID(selected), nil
}
