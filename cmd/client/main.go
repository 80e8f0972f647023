package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/cohort"
	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/client/api"
	"github.com/absmach/cohort/client/bootstrap"
	"github.com/absmach/cohort/client/middleware"
	"github.com/absmach/cohort/client/runtime"
	blobfactory "github.com/absmach/cohort/pkg/blob/factory"
	"github.com/absmach/cohort/pkg/mqtt"
	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const (
	svcName       = "client"
	defHTTPPort   = "9101"
	envPrefix     = "CLIENT_"
	envPrefixHTTP = "CLIENT_HTTP_"
	pathEnv       = ".env"
)

var errMissingAddress = errors.New("CLIENT_ADDRESS is required to announce over mqtt")

type envConfig struct {
	LogLevel    string        `env:"CLIENT_LOG_LEVEL"    envDefault:"info"`
	InstanceID  string        `env:"CLIENT_INSTANCE_ID"`
	ConfigFile  string        `env:"CLIENT_CONFIG_FILE"  envDefault:"cohort.toml"`
	ID          string        `env:"CLIENT_ID"`
	Name        string        `env:"CLIENT_NAME"`
	Address     string        `env:"CLIENT_ADDRESS"`
	ModelRef    string        `env:"CLIENT_MODEL_REF"`
	RawDataPath string        `env:"CLIENT_RAW_DATA"`
	DatasetPath string        `env:"CLIENT_DATASET"`
	Embeddings  string        `env:"CLIENT_EMBEDDINGS"`
	WorkDir     string        `env:"CLIENT_WORK_DIR"`
	Persist     bool          `env:"CLIENT_PERSIST"      envDefault:"false"`
	MQTTEnabled bool          `env:"CLIENT_MQTT_ENABLED" envDefault:"false"`
	Heartbeat   time.Duration `env:"CLIENT_HEARTBEAT"    envDefault:"10s"`
	OTELURL     url.URL       `env:"CLIENT_OTEL_URL"`
	TraceRatio  float64       `env:"CLIENT_TRACE_RATIO"  envDefault:"0"`
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

	clientCfg, err := clientConfig(cfg)
	if err != nil {
		logger.Error("failed to load client configuration", slog.String("path", cfg.ConfigFile), slog.Any("error", err))

		return
	}
	logger = logger.With(slog.String("client_id", clientCfg.ID))

	if cfg.OTELURL != (url.URL{}) {
		tp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, "", cfg.TraceRatio)
		if err != nil {
			logger.Error("failed to initialize opentelemetry", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
	}

	registryCfg := runtime.RegistryConfig{}
	if err := env.ParseWithOptions(&registryCfg, env.Options{Prefix: envPrefix}); err != nil {
		logger.Error("failed to load registry configuration", slog.Any("error", err))

		return
	}

	prepared, err := bootstrap.Run(ctx, clientCfg, registryCfg, logger)
	if err != nil {
		logger.Error("failed to prepare client", slog.Any("error", err))

		return
	}
	logger.Info("client prepared",
		slog.String("dataset", prepared.Dataset),
		slog.Int("posts", prepared.Posts),
		slog.Int("samples", prepared.Samples),
		slog.Int("module_bytes", len(prepared.Module)),
	)

	wasm, err := runtime.NewWasm(ctx, prepared.Module, logger)
	if err != nil {
		logger.Error("failed to load trainer module", slog.Any("error", err))

		return
	}
	defer wasm.Close(context.WithoutCancel(ctx))

	opts := []client.Option{client.WithEvaluator(wasm)}
	if clientCfg.Embeddings != "" {
		opts = append(opts, client.WithProfiler(client.NewMeanProfiler(clientCfg.Embeddings)))
	}
	if cfg.Persist {
		blobCfg := blobfactory.Config{}
		if err := env.ParseWithOptions(&blobCfg, env.Options{Prefix: envPrefix}); err != nil {
			logger.Error("failed to load blob store configuration", slog.Any("error", err))

			return
		}
		store, closer, err := blobfactory.New(ctx, blobCfg)
		if err != nil {
			logger.Error("failed to initialize blob store", slog.String("type", blobCfg.Type), slog.Any("error", err))

			return
		}
		defer closer.Close()
		opts = append(opts, client.WithBlobStore(store))
	}

	agent, err := client.NewAgent(clientCfg.ID, prepared.Dataset, wasm, logger, opts...)
	if err != nil {
		logger.Error("failed to create agent", slog.Any("error", err))

		return
	}
	agent = middleware.Logging(logger, agent)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	agent = middleware.Metrics(counter, latency, agent)

	if cfg.MQTTEnabled {
		if err := announce(ctx, g, cfg, clientCfg, logger); err != nil {
			logger.Error("failed to announce client", slog.Any("error", err))

			return
		}
	}

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err.Error()))

		return
	}

	hs := httpserver.NewServer(ctx, cancel, svcName, httpServerConfig, api.MakeHandler(agent, logger, cfg.InstanceID), logger)

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

// clientConfig reads the [client] section of the config file, if any, and
// lets environment variables override it.
func clientConfig(cfg envConfig) (cohort.ClientConfig, error) {
	var cc cohort.ClientConfig
	if _, err := os.Stat(cfg.ConfigFile); err == nil {
		fileCfg, err := cohort.LoadConfig(cfg.ConfigFile)
		if err != nil {
			return cc, err
		}
		cc = fileCfg.Client
	}

	override(&cc.ID, cfg.ID)
	override(&cc.Name, cfg.Name)
	override(&cc.ModelRef, cfg.ModelRef)
	override(&cc.RawDataPath, cfg.RawDataPath)
	override(&cc.DatasetPath, cfg.DatasetPath)
	override(&cc.Embeddings, cfg.Embeddings)
	override(&cc.WorkDir, cfg.WorkDir)
	if cc.ID == "" {
		return cc, client.ErrMissingClientID
	}

	return cc, nil
}

func override(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func announce(ctx context.Context, g *errgroup.Group, cfg envConfig, cc cohort.ClientConfig, logger *slog.Logger) error {
	mqttCfg := mqtt.Config{}
	if err := env.ParseWithOptions(&mqttCfg, env.Options{Prefix: envPrefix}); err != nil {
		return err
	}
	if cfg.Address == "" {
		return errMissingAddress
	}
	topics := mqtt.NewTopics(mqttCfg.DomainID, mqttCfg.ChannelID)

	pubsub, err := mqtt.NewPubSub(mqttCfg, svcName+"-"+cc.ID, client.WillFor(topics, cc.ID), logger)
	if err != nil {
		return err
	}

	announcer := client.NewAnnouncer(pubsub, topics, client.Presence{
		ClientID: cc.ID,
		Name:     cc.Name,
		Address:  cfg.Address,
	}, cfg.Heartbeat, logger)
	if err := announcer.Announce(ctx); err != nil {
		return err
	}

	g.Go(func() error {
		announcer.Heartbeat(ctx)

		return pubsub.Disconnect(context.WithoutCancel(ctx))
	})

	return nil
}
