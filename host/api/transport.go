package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/absmach/cohort/host"
	"github.com/absmach/cohort/pkg/api"
	pkgerrors "github.com/absmach/cohort/pkg/errors"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func MakeHandler(svc host.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, encodeError)),
	}

	mux.Route("/runs", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			startRunEndpoint(svc),
			decodeRunReq,
			api.EncodeResponse,
			opts...,
		), "start-run").ServeHTTP)
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listRunsEndpoint(svc),
			decodeListEntityReq(""),
			api.EncodeResponse,
			opts...,
		), "list-runs").ServeHTTP)
		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
				getRunEndpoint(svc),
				decodeEntityReq("runID"),
				api.EncodeResponse,
				opts...,
			), "get-run").ServeHTTP)
			r.Post("/stop", otelhttp.NewHandler(kithttp.NewServer(
				stopRunEndpoint(svc),
				decodeEntityReq("runID"),
				api.EncodeResponse,
				opts...,
			), "stop-run").ServeHTTP)
			r.Get("/rounds", otelhttp.NewHandler(kithttp.NewServer(
				listRoundsEndpoint(svc),
				decodeListEntityReq("runID"),
				api.EncodeResponse,
				opts...,
			), "list-rounds").ServeHTTP)
		})
	})

	mux.Get("/rounds/{roundID}", otelhttp.NewHandler(kithttp.NewServer(
		getRoundEndpoint(svc),
		decodeEntityReq("roundID"),
		api.EncodeResponse,
		opts...,
	), "get-round").ServeHTTP)

	mux.Route("/clients", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			registerClientEndpoint(svc),
			decodeClientReq,
			api.EncodeResponse,
			opts...,
		), "register-client").ServeHTTP)
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listClientsEndpoint(svc),
			decodeListEntityReq(""),
			api.EncodeResponse,
			opts...,
		), "list-clients").ServeHTTP)
		r.Route("/{clientID}", func(r chi.Router) {
			r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
				getClientEndpoint(svc),
				decodeEntityReq("clientID"),
				api.EncodeResponse,
				opts...,
			), "get-client").ServeHTTP)
			r.Put("/availability", otelhttp.NewHandler(kithttp.NewServer(
				setAvailabilityEndpoint(svc),
				decodeAvailabilityReq,
				api.EncodeResponse,
				opts...,
			), "set-client-availability").ServeHTTP)
			r.Delete("/", otelhttp.NewHandler(kithttp.NewServer(
				removeClientEndpoint(svc),
				decodeEntityReq("clientID"),
				api.EncodeResponse,
				opts...,
			), "remove-client").ServeHTTP)
		})
	})

	mux.Get("/health", supermq.Health("host", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func encodeError(ctx context.Context, err error, w http.ResponseWriter) {
	switch {
	case errors.Is(err, host.ErrMissingClientID):
		err = errors.Join(apiutil.ErrValidation, err)
	case errors.Is(err, host.ErrNoInitialState):
		err = errors.Join(pkgerrors.ErrUnprocessable, err)
	}
	api.EncodeError(ctx, err, w)
}

func decodeEntityReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		return entityReq{
			id: chi.URLParam(r, key),
		}, nil
	}
}

func decodeListEntityReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		o, err := apiutil.ReadNumQuery[uint64](r, api.OffsetKey, api.DefOffset)
		if err != nil {
			return nil, errors.Join(apiutil.ErrValidation, err)
		}

		l, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
		if err != nil {
			return nil, errors.Join(apiutil.ErrValidation, err)
		}

		req := listEntityReq{
			offset: o,
			limit:  l,
		}
		if key != "" {
			req.id = chi.URLParam(r, key)
		}

		return req, nil
	}
}

func decodeRunReq(_ context.Context, r *http.Request) (any, error) {
	var req runReq
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeClientReq(_ context.Context, r *http.Request) (any, error) {
	var req clientReq
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeAvailabilityReq(_ context.Context, r *http.Request) (any, error) {
	var req availabilityReq
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	req.id = chi.URLParam(r, "clientID")

	return req, nil
}

func decodeJSON(r *http.Request, v any) error {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(err, apiutil.ErrValidation)
	}

	return nil
}
