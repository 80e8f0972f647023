package round

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/absmach/cohort/pkg/fl"
)

var transitions = map[Status][]Status{
	Pending:     {Selecting},
	Selecting:   {Dispatched, Abandoned},
	Dispatched:  {Collecting, Abandoned},
	Collecting:  {Aggregating, Abandoned},
	Aggregating: {Completed, Abandoned},
	Completed:   {},
	Abandoned:   {},
}

func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Round is one select, dispatch, collect, aggregate iteration. A round is
// owned by a single orchestrator goroutine and must not be shared while it
// is still collecting.
type Round struct {
	ID         string                     `json:"id"`
	RunID      string                     `json:"run_id"`
	Number     uint64                     `json:"number"`
	Attempt    uint64                     `json:"attempt"`
	Status     Status                     `json:"status"`
	Reason     Reason                     `json:"reason,omitempty"`
	Error      string                     `json:"error,omitempty"`
	Selected   []string                   `json:"selected,omitempty"`
	Reports    map[string]fl.ClientReport `json:"-"`
	Samples    map[string]uint64          `json:"samples,omitempty"`
	Excluded   map[string]string          `json:"excluded,omitempty"`
	Metrics    fl.Metrics                 `json:"metrics,omitempty"`
	Evaluation *fl.EvaluationReport       `json:"evaluation,omitempty"`
	Digest     string                     `json:"digest,omitempty"`
	StartedAt  time.Time                  `json:"started_at"`
	Deadline   time.Time                  `json:"deadline"`
	FinishedAt time.Time                  `json:"finished_at"`
}

func New(runID string, number, attempt uint64, now time.Time) *Round {
	return &Round{
		ID:        fmt.Sprintf("%s-%d-%d", runID, number, attempt),
		RunID:     runID,
		Number:    number,
		Attempt:   attempt,
		Status:    Pending,
		Reports:   map[string]fl.ClientReport{},
		Samples:   map[string]uint64{},
		Excluded:  map[string]string{},
		StartedAt: now,
	}
}

func (r *Round) Transition(to Status, now time.Time) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	r.Status = to
	if to.Terminal() {
		r.FinishedAt = now
	}

	return nil
}

// Open moves a dispatched round into collection with the given deadline.
func (r *Round) Open(timeout time.Duration, now time.Time) error {
	if err := r.Transition(Collecting, now); err != nil {
		return err
	}
	r.Deadline = now.Add(timeout)

	return nil
}

func (r *Round) Abandon(reason Reason, cause error, now time.Time) error {
	if err := r.Transition(Abandoned, now); err != nil {
		return err
	}
	r.Reason = reason
	if cause != nil {
		r.Error = cause.Error()
	}

	return nil
}

// Accept records a report while the round is collecting. A second report
// from the same client replaces the first.
func (r *Round) Accept(rep fl.ClientReport) error {
	if r.Status != Collecting {
		return fmt.Errorf("%w: %s", ErrRoundClosed, r.Status)
	}
	if !slices.Contains(r.Selected, rep.ClientID) {
		return fmt.Errorf("client %s was not selected for round %d", rep.ClientID, r.Number)
	}
	r.Reports[rep.ClientID] = rep
	r.Samples[rep.ClientID] = rep.SampleCount
	delete(r.Excluded, rep.ClientID)

	return nil
}

// Exclude records why a selected client contributed nothing.
func (r *Round) Exclude(clientID string, cause error) {
	if _, ok := r.Reports[clientID]; ok {
		return
	}
	r.Excluded[clientID] = cause.Error()
}

// Collected returns the accepted reports in client id order.
func (r *Round) Collected() []fl.ClientReport {
	ids := slices.Sorted(maps.Keys(r.Reports))
	out := make([]fl.ClientReport, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.Reports[id])
	}

	return out
}

// Summary is a copy safe to hand to other goroutines; it carries no snapshots.
func (r *Round) Summary() Round {
	s := *r
	s.Reports = nil
	s.Selected = slices.Clone(r.Selected)
	s.Samples = maps.Clone(r.Samples)
	s.Excluded = maps.Clone(r.Excluded)
	s.Metrics = maps.Clone(r.Metrics)
	if r.Evaluation != nil {
		e := *r.Evaluation
		e.Metrics = maps.Clone(r.Evaluation.Metrics)
		s.Evaluation = &e
	}

	return s
}
