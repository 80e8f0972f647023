package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/api"
	pkgerrors "github.com/absmach/cohort/pkg/errors"
	"github.com/absmach/cohort/pkg/fl"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxBodySize = 1024 * 1024 * 256

// MakeHandler serves an agent over HTTP. Snapshot-bearing bodies are CBOR.
func MakeHandler(agent client.Agent, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, encodeError)),
	}

	mux.Post("/fit", otelhttp.NewHandler(kithttp.NewServer(
		fitEndpoint(agent),
		decodeFitReq,
		api.EncodeCBORResponse,
		opts...,
	), "fit").ServeHTTP)
	mux.Post("/evaluate", otelhttp.NewHandler(kithttp.NewServer(
		evaluateEndpoint(agent),
		decodeEvaluateReq,
		api.EncodeCBORResponse,
		opts...,
	), "evaluate").ServeHTTP)
	mux.Get("/profile", otelhttp.NewHandler(kithttp.NewServer(
		profileEndpoint(agent),
		decodeProfileReq,
		api.EncodeResponse,
		opts...,
	), "profile").ServeHTTP)

	mux.Get("/health", supermq.Health("client", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// encodeError reports adapter failures as 422 so the host can tell them
// apart from transport faults.
func encodeError(ctx context.Context, err error, w http.ResponseWriter) {
	var ae *client.AdapterError
	if errors.As(err, &ae) {
		err = errors.Join(pkgerrors.ErrUnprocessable, err)
	}
	api.EncodeError(ctx, err, w)
}

func decodeFitReq(_ context.Context, r *http.Request) (any, error) {
	var req fitReq
	if err := decodeCBOR(r, &req.FitRequest); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeEvaluateReq(_ context.Context, r *http.Request) (any, error) {
	var req evaluateReq
	if err := decodeCBOR(r, &req.EvaluateRequest); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeProfileReq(_ context.Context, _ *http.Request) (any, error) {
	return profileReq{}, nil
}

func decodeCBOR(r *http.Request, v any) error {
	if !strings.Contains(r.Header.Get("Content-Type"), api.CBORContentType) {
		return errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errors.Join(apiutil.ErrValidation, err)
	}
	if err := fl.Unmarshal(data, v); err != nil {
		return errors.Join(apiutil.ErrValidation, err)
	}

	return nil
}
