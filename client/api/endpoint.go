package api

import (
	"context"
	"errors"

	"github.com/absmach/cohort/client"
	pkgerrors "github.com/absmach/cohort/pkg/errors"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"
)

func fitEndpoint(agent client.Agent) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(fitReq)
		if !ok {
			return fitRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return fitRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		rep, err := agent.Fit(ctx, req.FitRequest)
		if err != nil {
			return fitRes{}, err
		}

		return fitRes{ClientReport: rep}, nil
	}
}

func evaluateEndpoint(agent client.Agent) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(evaluateReq)
		if !ok {
			return evaluateRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return evaluateRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		rep, err := agent.Evaluate(ctx, req.EvaluateRequest)
		if err != nil {
			return evaluateRes{}, err
		}

		return evaluateRes{EvaluationReport: rep}, nil
	}
}

func profileEndpoint(agent client.Agent) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		p, err := agent.Profile(ctx)
		if err != nil {
			return profileRes{}, err
		}

		return profileRes{ClientProfile: p}, nil
	}
}
