package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connTimeout   = 10 * time.Second
	reconnTimeout = time.Minute
	// quiesce is in milliseconds, as paho expects.
	quiesce = 250
)

var (
	ErrTimeout    = errors.New("mqtt operation timed out")
	ErrConnect    = errors.New("failed to connect to MQTT broker")
	errEmptyTopic = errors.New("empty topic")
	errEmptyID    = errors.New("empty ID")
)

type Config struct {
	URL       string        `env:"MQTT_ADDRESS"  envDefault:"tcp://localhost:1883"`
	QoS       uint8         `env:"MQTT_QOS"      envDefault:"1"`
	Timeout   time.Duration `env:"MQTT_TIMEOUT"  envDefault:"30s"`
	Username  string        `env:"MQTT_USERNAME"`
	Password  string        `env:"MQTT_PASSWORD"`
	DomainID  string        `env:"DOMAIN_ID"     envDefault:"cohort"`
	ChannelID string        `env:"CHANNEL_ID"    envDefault:"training"`
}

// Handler receives the raw payload of a message.
type Handler func(topic string, payload []byte) error

type PubSub interface {
	Publish(ctx context.Context, topic string, msg any) error
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Unsubscribe(ctx context.Context, topic string) error
	Disconnect(ctx context.Context) error
}

type pubsub struct {
	client  mqtt.Client
	qos     byte
	timeout time.Duration
	logger  *slog.Logger
}

// NewPubSub connects to the broker. When will is non-nil it is published on
// the client's behalf if the connection drops.
func NewPubSub(cfg Config, id string, will *Will, logger *slog.Logger) (PubSub, error) {
	if id == "" {
		return nil, errEmptyID
	}

	client, err := newClient(cfg, id, will, logger)
	if err != nil {
		return nil, err
	}

	return &pubsub{
		client:  client,
		qos:     cfg.QoS,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

type Will struct {
	Topic   string
	Payload any
}

func (ps *pubsub) Publish(ctx context.Context, topic string, msg any) error {
	if topic == "" {
		return errEmptyTopic
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return ps.wait(ctx, "publish", ps.client.Publish(topic, ps.qos, false, data))
}

func (ps *pubsub) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if topic == "" {
		return errEmptyTopic
	}

	return ps.wait(ctx, "subscribe", ps.client.Subscribe(topic, ps.qos, ps.deliver(handler)))
}

func (ps *pubsub) Unsubscribe(ctx context.Context, topic string) error {
	if topic == "" {
		return errEmptyTopic
	}

	return ps.wait(ctx, "unsubscribe", ps.client.Unsubscribe(topic))
}

// Disconnect waits up to quiesce for in-flight work unless ctx is already
// done.
func (ps *pubsub) Disconnect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ps.client.Disconnect(quiesce)

	return nil
}

func (ps *pubsub) wait(ctx context.Context, op string, token mqtt.Token) error {
	timer := time.NewTimer(ps.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// deliver hands payloads to h. Handler errors are logged and the message is
// still acknowledged so a bad payload is never redelivered.
func (ps *pubsub) deliver(h Handler) mqtt.MessageHandler {
	return func(_ mqtt.Client, m mqtt.Message) {
		defer m.Ack()
		if err := h(m.Topic(), m.Payload()); err != nil {
			ps.logger.Warn("Failed to handle MQTT message", slog.String("topic", m.Topic()), slog.Any("error", err))
		}
	}
}

func newClient(cfg Config, id string, will *Will, logger *slog.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(id).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(connTimeout).
		SetMaxReconnectInterval(reconnTimeout).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Info("MQTT connected", slog.String("client_id", id), slog.String("broker", cfg.URL))
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("MQTT connection lost", slog.String("client_id", id), slog.Any("error", err))
		}).
		SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
			logger.Info("MQTT reconnecting", slog.String("client_id", id))
		})

	if will != nil {
		payload, err := json.Marshal(will.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode will message: %w", err)
		}
		opts.SetWill(will.Topic, string(payload), cfg.QoS, false)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("%w: %w", ErrConnect, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	return client, nil
}
