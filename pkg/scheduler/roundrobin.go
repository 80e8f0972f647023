package scheduler

import "github.com/absmach/cohort/client"

type roundRobin struct{}

// NewRoundRobin returns a selector that walks the id-ordered pool, starting
// each round where the previous round stopped. Retried attempts shift the
// window by one so a stuck client is not picked again first.
func NewRoundRobin() Selector {
	return roundRobin{}
}

func (roundRobin) Select(req Request, candidates []client.Registration) ([]client.Registration, error) {
	if err := check(req, candidates); err != nil {
		return nil, err
	}

	pool := sortedByID(candidates)
	size := uint64(len(pool))
	n := min(req.Max, size)

	start := ((req.Round-1)*n + req.Attempt) % size
	if req.Round == 0 {
		start = req.Attempt % size
	}

	selected := make([]client.Registration, 0, n)
	for i := range n {
		selected = append(selected, pool[(start+i)%size])
	}

	return sortedByID(selected), nil
}
