package events

import (
	"context"
	"time"

	"github.com/absmach/cohort/pkg/mqtt"
	"github.com/absmach/cohort/pkg/round"
)

// Emitter publishes round and run lifecycle changes.
type Emitter interface {
	EmitRound(ctx context.Context, r round.Round) error
	EmitRun(ctx context.Context, r round.Run) error
}

type RoundEvent struct {
	RunID    string            `json:"run_id"`
	RoundID  string            `json:"round_id"`
	Round    uint64            `json:"round"`
	Attempt  uint64            `json:"attempt"`
	Status   round.Status      `json:"status"`
	Reason   round.Reason      `json:"reason,omitempty"`
	Selected []string          `json:"selected,omitempty"`
	Samples  map[string]uint64 `json:"samples,omitempty"`
	Digest   string            `json:"digest,omitempty"`
	Time     time.Time         `json:"time"`
}

type RunEvent struct {
	RunID           string            `json:"run_id"`
	Status          round.RunStatus   `json:"status"`
	Round           uint64            `json:"round"`
	RoundsCompleted uint64            `json:"rounds_completed"`
	Retries         uint64            `json:"retries"`
	Reason          round.Reason      `json:"reason,omitempty"`
	Artifacts       map[string]string `json:"artifacts,omitempty"`
	Time            time.Time         `json:"time"`
}

type mqttEmitter struct {
	pubsub mqtt.PubSub
	topics mqtt.Topics
}

func NewMQTTEmitter(pubsub mqtt.PubSub, topics mqtt.Topics) Emitter {
	return &mqttEmitter{
		pubsub: pubsub,
		topics: topics,
	}
}

func (e *mqttEmitter) EmitRound(ctx context.Context, r round.Round) error {
	return e.pubsub.Publish(ctx, e.topics.RoundEvents(), RoundEvent{
		RunID:    r.RunID,
		RoundID:  r.ID,
		Round:    r.Number,
		Attempt:  r.Attempt,
		Status:   r.Status,
		Reason:   r.Reason,
		Selected: r.Selected,
		Samples:  r.Samples,
		Digest:   r.Digest,
		Time:     time.Now(),
	})
}

func (e *mqttEmitter) EmitRun(ctx context.Context, r round.Run) error {
	return e.pubsub.Publish(ctx, e.topics.RunEvents(), RunEvent{
		RunID:           r.ID,
		Status:          r.Status,
		Round:           r.Round,
		RoundsCompleted: r.RoundsCompleted,
		Retries:         r.Retries,
		Reason:          r.Reason,
		Artifacts:       r.Artifacts,
		Time:            time.Now(),
	})
}

type noopEmitter struct{}

func NewNoopEmitter() Emitter {
	return noopEmitter{}
}

func (noopEmitter) EmitRound(context.Context, round.Round) error { return nil }

func (noopEmitter) EmitRun(context.Context, round.Run) error { return nil }
