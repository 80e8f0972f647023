package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/absmach/cohort"
	"github.com/absmach/cohort/client"
	clientapi "github.com/absmach/cohort/client/api"
	clientmw "github.com/absmach/cohort/client/middleware"
	"github.com/absmach/cohort/host"
	"github.com/absmach/cohort/host/api"
	"github.com/absmach/cohort/host/middleware"
	blobfactory "github.com/absmach/cohort/pkg/blob/factory"
	pkgerrors "github.com/absmach/cohort/pkg/errors"
	"github.com/absmach/cohort/pkg/events"
	"github.com/absmach/cohort/pkg/fl"
	"github.com/absmach/cohort/pkg/mqtt"
	"github.com/absmach/cohort/pkg/round"
	"github.com/absmach/cohort/pkg/scheduler"
	"github.com/absmach/cohort/pkg/storage"
	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const (
	svcName       = "host"
	defHTTPPort   = "7070"
	envPrefix     = "HOST_"
	envPrefixHTTP = "HOST_HTTP_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel      string        `env:"HOST_LOG_LEVEL"      envDefault:"info"`
	InstanceID    string        `env:"HOST_INSTANCE_ID"`
	ConfigFile    string        `env:"HOST_CONFIG_FILE"    envDefault:"cohort.toml"`
	Liveness      time.Duration `env:"HOST_LIVENESS"       envDefault:"30s"`
	ClientTimeout time.Duration `env:"HOST_CLIENT_TIMEOUT" envDefault:"0s"`
	Selector      string        `env:"HOST_SELECTOR"       envDefault:"seeded"`
	MQTTEnabled   bool          `env:"HOST_MQTT_ENABLED"   envDefault:"false"`
	RunOnStart    bool          `env:"HOST_RUN_ON_START"   envDefault:"false"`
	InitialKey    string        `env:"HOST_INITIAL_KEY"`
	OTELURL       url.URL       `env:"HOST_OTEL_URL"`
	TraceRatio    float64       `env:"HOST_TRACE_RATIO"    envDefault:"0"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	exitCode := 0
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}()

	fileCfg, err := loadFileConfig(cfg.ConfigFile)
	if err != nil {
		logger.Error("failed to load run configuration", slog.String("path", cfg.ConfigFile), slog.Any("error", err))
		exitCode = 1

		return
	}

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, "", cfg.TraceRatio)
		if err != nil {
			logger.Error("failed to initialize opentelemetry", slog.String("error", err.Error()))
			exitCode = 1

			return
		}
		defer func() {
			if err := sdktp.Shutdown(ctx); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	storageCfg := storage.Config{}
	if err := env.ParseWithOptions(&storageCfg, env.Options{Prefix: envPrefix}); err != nil {
		logger.Error("failed to load storage configuration", slog.Any("error", err))
		exitCode = 1

		return
	}
	repos, err := storage.NewRepositories(storageCfg)
	if err != nil {
		logger.Error("failed to initialize storage", slog.String("type", storageCfg.Type), slog.Any("error", err))
		exitCode = 1

		return
	}
	if repos.Closer != nil {
		defer repos.Closer.Close()
	}

	blobCfg := blobfactory.Config{}
	if err := env.ParseWithOptions(&blobCfg, env.Options{Prefix: envPrefix}); err != nil {
		logger.Error("failed to load blob store configuration", slog.Any("error", err))
		exitCode = 1

		return
	}
	blobs, blobCloser, err := blobfactory.New(ctx, blobCfg)
	if err != nil {
		logger.Error("failed to initialize blob store", slog.String("type", blobCfg.Type), slog.Any("error", err))
		exitCode = 1

		return
	}
	defer blobCloser.Close()

	mqttCfg := mqtt.Config{}
	if err := env.ParseWithOptions(&mqttCfg, env.Options{Prefix: envPrefix}); err != nil {
		logger.Error("failed to load mqtt configuration", slog.Any("error", err))
		exitCode = 1

		return
	}
	topics := mqtt.NewTopics(mqttCfg.DomainID, mqttCfg.ChannelID)

	var (
		pubsub  mqtt.PubSub
		emitter = events.NewNoopEmitter()
	)
	if cfg.MQTTEnabled {
		pubsub, err = mqtt.NewPubSub(mqttCfg, svcName+"-"+cfg.InstanceID, nil, logger)
		if err != nil {
			logger.Error("failed to initialize mqtt pubsub", slog.String("error", err.Error()))
			exitCode = 1

			return
		}
		defer pubsub.Disconnect(context.WithoutCancel(ctx))
		emitter = events.NewMQTTEmitter(pubsub, topics)
	}

	selector, err := newSelector(cfg.Selector)
	if err != nil {
		logger.Error("failed to create selector", slog.Any("error", err))
		exitCode = 1

		return
	}

	// Without a broker there are no heartbeats to keep clients live.
	liveness := cfg.Liveness
	if !cfg.MQTTEnabled {
		liveness = 0
	}
	registry := host.NewRegistry(repos.Clients, liveness, logger)
	if err := seedRegistry(ctx, registry, fileCfg.Clients); err != nil {
		logger.Error("failed to register configured clients", slog.Any("error", err))
		exitCode = 1

		return
	}

	agentCounter, agentLatency := prometheus.MakeMetrics(svcName, "agent")
	httpClient := &http.Client{
		Timeout:   cfg.ClientTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	dial := func(reg client.Registration) (client.Agent, error) {
		agent, err := clientapi.NewAgent(reg.ClientID, reg.Address, httpClient)
		if err != nil {
			return nil, err
		}
		agent = clientmw.Logging(logger.With(slog.String("client_id", reg.ClientID)), agent)

		return clientmw.Metrics(agentCounter, agentLatency, agent), nil
	}

	orchestrator := host.NewOrchestrator(
		registry,
		dial,
		selector,
		fl.NewFedAvgAggregator(),
		blobs,
		repos.Rounds,
		repos.Runs,
		emitter,
		logger,
	)

	svc := host.NewService(orchestrator, registry, repos, pubsub, topics, logger)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	if pubsub != nil {
		if err := svc.Subscribe(ctx); err != nil {
			logger.Error("failed to subscribe to presence topics", slog.String("error", err.Error()))
			exitCode = 1

			return
		}
	}

	if cfg.RunOnStart {
		run, err := runOnce(ctx, svc, host.RunRequest{Config: fileCfg.Run, InitialKey: cfg.InitialKey})
		if err != nil {
			logger.Error("training run failed", slog.String("run_id", run.ID), slog.Any("error", err))
			exitCode = 1

			return
		}
		logger.Info("training run succeeded",
			slog.String("run_id", run.ID),
			slog.Uint64("rounds_completed", run.RoundsCompleted),
			slog.Any("artifacts", run.Artifacts),
		)

		return
	}

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err.Error()))
		exitCode = 1

		return
	}

	hs := httpserver.NewServer(ctx, cancel, svcName, httpServerConfig, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}
}

// loadFileConfig falls back to the default run options when the file is absent.
func loadFileConfig(path string) (*cohort.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return &cohort.Config{Run: cohort.DefaultRunConfig()}, nil
	}

	return cohort.LoadConfig(path)
}

func newSelector(name string) (scheduler.Selector, error) {
	switch name {
	case "seeded":
		return scheduler.NewSeeded(), nil
	case "round-robin":
		return scheduler.NewRoundRobin(), nil
	default:
		return nil, fmt.Errorf("unsupported selector: %s", name)
	}
}

func seedRegistry(ctx context.Context, registry *host.Registry, entries []cohort.ClientEntry) error {
	for _, e := range entries {
		_, err := registry.Register(ctx, client.Registration{
			ClientID:  e.ID,
			Name:      e.Name,
			Address:   e.Address,
			Available: true,
		})
		if err != nil && !errors.Is(err, pkgerrors.ErrEntityExists) {
			return fmt.Errorf("client %s: %w", e.ID, err)
		}
	}

	return nil
}

// runOnce executes a single run and reports anything but success as an error.
func runOnce(ctx context.Context, svc host.Service, req host.RunRequest) (round.Run, error) {
	run, err := svc.StartRun(ctx, req)
	if err != nil {
		return run, err
	}

	run, err = svc.Wait(ctx, run.ID)
	if err != nil {
		return run, err
	}
	if run.Status != round.RunSucceeded {
		return run, fmt.Errorf("run %s: %s", run.Status, run.Error)
	}

	return run, nil
}
