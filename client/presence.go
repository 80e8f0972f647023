package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/cohort/pkg/mqtt"
	"github.com/cenkalti/backoff/v5"
)

const announceAttempts = 5

// Announcer publishes a client's presence so the host can register it.
type Announcer struct {
	pubsub   mqtt.PubSub
	topics   mqtt.Topics
	presence Presence
	interval time.Duration
	logger   *slog.Logger
}

func NewAnnouncer(pubsub mqtt.PubSub, topics mqtt.Topics, presence Presence, interval time.Duration, logger *slog.Logger) *Announcer {
	return &Announcer{
		pubsub:   pubsub,
		topics:   topics,
		presence: presence,
		interval: interval,
		logger:   logger,
	}
}

// Announce publishes the create message, retrying while the broker is unreachable.
func (a *Announcer) Announce(ctx context.Context) error {
	msg := a.presence
	msg.Status = Online

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, a.pubsub.Publish(ctx, a.topics.ClientCreate(), msg)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(announceAttempts))

	return err
}

// Heartbeat publishes an alive message every interval until ctx is done.
func (a *Announcer) Heartbeat(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	msg := Presence{ClientID: a.presence.ClientID, Status: Alive}
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("stopping liveliness updates")

			return
		case <-ticker.C:
			if err := a.pubsub.Publish(ctx, a.topics.ClientAlive(), msg); err != nil {
				a.logger.Error("failed to publish liveliness message", slog.Any("error", err))

				continue
			}
			a.logger.Debug("published liveliness message", slog.String("client_id", msg.ClientID))
		}
	}
}

// Will is the message the broker publishes if the client drops.
func (a *Announcer) Will() *mqtt.Will {
	return WillFor(a.topics, a.presence.ClientID)
}

func WillFor(topics mqtt.Topics, clientID string) *mqtt.Will {
	return &mqtt.Will{
		Topic:   topics.ClientAlive(),
		Payload: Presence{ClientID: clientID, Status: Offline},
	}
}
