package client_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/mqtt"
	"github.com/absmach/cohort/pkg/mqtt/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAnnounce(t *testing.T) {
	topics := mqtt.NewTopics("d", "c")
	presence := client.Presence{ClientID: "client-1", Address: "http://localhost:9101"}

	ps := new(mocks.PubSub)
	ps.On("Publish", mock.Anything, topics.ClientCreate(), mock.MatchedBy(func(p client.Presence) bool {
		return p.ClientID == "client-1" && p.Status == client.Online
	})).Return(errors.New("broker down")).Once()
	ps.On("Publish", mock.Anything, topics.ClientCreate(), mock.Anything).Return(nil).Once()

	a := client.NewAnnouncer(ps, topics, presence, time.Second, logger)
	require.NoError(t, a.Announce(context.Background()))
	ps.AssertNumberOfCalls(t, "Publish", 2)
}

func TestHeartbeat(t *testing.T) {
	topics := mqtt.NewTopics("d", "c")

	ps := new(mocks.PubSub)
	beats := make(chan struct{}, 8)
	ps.On("Publish", mock.Anything, topics.ClientAlive(), client.Presence{ClientID: "client-1", Status: client.Alive}).
		Run(func(mock.Arguments) {
			select {
			case beats <- struct{}{}:
			default:
			}
		}).
		Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a := client.NewAnnouncer(ps, topics, client.Presence{ClientID: "client-1"}, 10*time.Millisecond, logger)
	go func() {
		a.Heartbeat(ctx)
		close(done)
	}()

	for range 2 {
		select {
		case <-beats:
		case <-time.After(time.Second):
			t.Fatal("no heartbeat published")
		}
	}
	cancel()
	<-done
}

func TestWill(t *testing.T) {
	t.Parallel()

	topics := mqtt.NewTopics("d", "c")
	w := client.WillFor(topics, "client-1")
	assert.Equal(t, topics.ClientAlive(), w.Topic)
	assert.Equal(t, client.Presence{ClientID: "client-1", Status: client.Offline}, w.Payload)
}
