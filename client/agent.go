package client

import (
	"context"
	"fmt"
	"time"

	"github.com/absmach/cohort/pkg/fl"
)

// Agent is the closed set of operations a host can ask of a client.
type Agent interface {
	Fit(ctx context.Context, req FitRequest) (fl.ClientReport, error)
	Evaluate(ctx context.Context, req EvaluateRequest) (fl.EvaluationReport, error)
	Profile(ctx context.Context) (fl.ClientProfile, error)
}

type FitRequest struct {
	RunID    string            `json:"run_id"   cbor:"1,keyasint"`
	Round    uint64            `json:"round"    cbor:"2,keyasint"`
	Attempt  uint64            `json:"attempt"  cbor:"3,keyasint"`
	Deadline time.Time         `json:"deadline" cbor:"4,keyasint"`
	Snapshot fl.Snapshot       `json:"snapshot" cbor:"5,keyasint"`
	Params   map[string]string `json:"params"   cbor:"6,keyasint,omitempty"`
}

type EvaluateRequest struct {
	RunID    string            `json:"run_id"   cbor:"1,keyasint"`
	Round    uint64            `json:"round"    cbor:"2,keyasint"`
	Snapshot fl.Snapshot       `json:"snapshot" cbor:"3,keyasint"`
	Params   map[string]string `json:"params"   cbor:"4,keyasint,omitempty"`
}

// Trainer is the local fine-tuning routine. Implementations must not retain
// or mutate the snapshot they are given.
type Trainer interface {
	Train(ctx context.Context, in TrainInput) (TrainOutput, error)
}

type TrainInput struct {
	Round    uint64            `cbor:"1,keyasint"`
	Snapshot fl.Snapshot       `cbor:"2,keyasint"`
	Dataset  string            `cbor:"3,keyasint"`
	Params   map[string]string `cbor:"4,keyasint,omitempty"`
}

type TrainOutput struct {
	Snapshot    fl.Snapshot `cbor:"1,keyasint"`
	SampleCount uint64      `cbor:"2,keyasint"`
	Metrics     fl.Metrics  `cbor:"3,keyasint,omitempty"`
}

type Evaluator interface {
	Evaluate(ctx context.Context, in TrainInput) (EvalOutput, error)
}

type EvalOutput struct {
	Loss        float64    `cbor:"1,keyasint"`
	SampleCount uint64     `cbor:"2,keyasint"`
	Metrics     fl.Metrics `cbor:"3,keyasint,omitempty"`
}

type Profiler interface {
	Profile(ctx context.Context) (fl.Profile, error)
}

// AdapterError reports that the local training adapter failed. No partial
// report accompanies it.
type AdapterError struct {
	ClientID string
	Op       string
	Cause    error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("client %s: %s: %v", e.ClientID, e.Op, e.Cause)
}

func (e *AdapterError) Unwrap() error {
	return e.Cause
}
