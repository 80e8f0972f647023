package pipeline

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrCircularDependency = errors.New("circular dependency detected")
	ErrMissingDependency  = errors.New("dependency stage not found")
	ErrDuplicateStage     = errors.New("duplicate stage name")
	ErrEmptyStageName     = errors.New("empty stage name")
)

type node interface {
	name() string
	deps() []string
}

func validate[N node](nodes []N) error {
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.name() == "" {
			return ErrEmptyStageName
		}
		if seen[n.name()] {
			return fmt.Errorf("%w: %s", ErrDuplicateStage, n.name())
		}
		seen[n.name()] = true
	}
	for _, n := range nodes {
		for _, dep := range n.deps() {
			if !seen[dep] {
				return fmt.Errorf("%w: stage %s depends on %s which does not exist", ErrMissingDependency, n.name(), dep)
			}
		}
	}

	return checkCycles(nodes)
}

func checkCycles[N node](nodes []N) error {
	byName := make(map[string]N, len(nodes))
	for _, n := range nodes {
		byName[n.name()] = n
	}

	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var dfs func(name string) error
	dfs = func(name string) error {
		visited[name] = true
		onStack[name] = true

		for _, dep := range byName[name].deps() {
			if !visited[dep] {
				if err := dfs(dep); err != nil {
					return err
				}
			} else if onStack[dep] {
				return fmt.Errorf("%w: cycle detected involving stages %s and %s", ErrCircularDependency, name, dep)
			}
		}

		onStack[name] = false

		return nil
	}

	for _, n := range nodes {
		if !visited[n.name()] {
			if err := dfs(n.name()); err != nil {
				return err
			}
		}
	}

	return nil
}

// levels groups nodes so that every node appears after all of its
// dependencies. Names within a level are sorted.
func levels[N node](nodes []N) ([][]N, error) {
	if err := validate(nodes); err != nil {
		return nil, err
	}

	byName := make(map[string]N, len(nodes))
	inDegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string)
	for _, n := range nodes {
		byName[n.name()] = n
		inDegree[n.name()] = len(n.deps())
		for _, dep := range n.deps() {
			dependents[dep] = append(dependents[dep], n.name())
		}
	}

	var current []string
	for name, d := range inDegree {
		if d == 0 {
			current = append(current, name)
		}
	}

	var out [][]N
	processed := 0
	for len(current) > 0 {
		slices.Sort(current)
		level := make([]N, 0, len(current))
		var next []string
		for _, name := range current {
			level = append(level, byName[name])
			processed++
			for _, child := range dependents[name] {
				inDegree[child]--
				if inDegree[child] == 0 {
					next = append(next, child)
				}
			}
		}
		out = append(out, level)
		current = next
	}

	if processed != len(nodes) {
		return nil, fmt.Errorf("%w: not all stages processed", ErrCircularDependency)
	}

	return out, nil
}
