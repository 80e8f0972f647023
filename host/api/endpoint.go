package api

import (
	"context"
	"errors"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/host"
	pkgerrors "github.com/absmach/cohort/pkg/errors"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"
)

func startRunEndpoint(svc host.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(runReq)
		if !ok {
			return runRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		cfg, err := req.config()
		if err != nil {
			return runRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		run, err := svc.StartRun(ctx, host.RunRequest{Config: cfg, InitialKey: req.InitialKey})
		if err != nil {
			return runRes{}, err
		}

		return runRes{Run: run, created: true}, nil
	}
}

func getRunEndpoint(svc host.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return runRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return runRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		run, err := svc.RunStatus(ctx, req.id)
		if err != nil {
			return runRes{}, err
		}

		return runRes{Run: run}, nil
	}
}

func listRunsEndpoint(svc host.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return runPageRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return runPageRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		page, err := svc.ListRuns(ctx, req.offset, req.limit)
		if err != nil {
			return runPageRes{}, err
		}

		return runPageRes{RunPage: page}, nil
	}
}

func stopRunEndpoint(svc host.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return runRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return runRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.StopRun(ctx, req.id); err != nil {
			return runRes{}, err
		}

		return runRes{stopped: true}, nil
	}
}

func listRoundsEndpoint(svc host.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return roundPageRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return roundPageRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		page, err := svc.ListRounds(ctx, req.id, req.offset, req.limit)
		if err != nil {
			return roundPageRes{}, err
		}

		return roundPageRes{Page: page}, nil
	}
}

func getRoundEndpoint(svc host.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return roundRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return roundRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		r, err := svc.GetRound(ctx, req.id)
		if err != nil {
			return roundRes{}, err
		}

		return roundRes{Round: r}, nil
	}
}

func registerClientEndpoint(svc host.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(clientReq)
		if !ok {
			return clientRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return clientRes{}, errors.Join(apiutil.ErrValidation, err)
		}
		available := true
		if req.Available != nil {
			available = *req.Available
		}

		reg, err := svc.RegisterClient(ctx, client.Registration{
			ClientID:  req.ClientID,
			Name:      req.Name,
			Address:   req.Address,
			Available: available,
		})
		if err != nil {
			return clientRes{}, err
		}

		return clientRes{Registration: reg, created: true}, nil
	}
}

func getClientEndpoint(svc host.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return clientRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return clientRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		reg, err := svc.GetClient(ctx, req.id)
		if err != nil {
			return clientRes{}, err
		}

		return clientRes{Registration: reg}, nil
	}
}

func listClientsEndpoint(svc host.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return clientPageRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return clientPageRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		page, err := svc.ListClients(ctx, req.offset, req.limit)
		if err != nil {
			return clientPageRes{}, err
		}

		return clientPageRes{RegistrationPage: page}, nil
	}
}

func setAvailabilityEndpoint(svc host.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(availabilityReq)
		if !ok {
			return clientRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return clientRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		reg, err := svc.SetAvailability(ctx, req.id, *req.Available)
		if err != nil {
			return clientRes{}, err
		}

		return clientRes{Registration: reg}, nil
	}
}

func removeClientEndpoint(svc host.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return clientRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return clientRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.RemoveClient(ctx, req.id); err != nil {
			return clientRes{}, err
		}

		return clientRes{deleted: true}, nil
	}
}
