package api

import (
	"errors"

	"github.com/absmach/cohort/client"
)

var errEmptySnapshot = errors.New("empty snapshot")

type fitReq struct {
	client.FitRequest
}

func (r fitReq) validate() error {
	if len(r.Snapshot) == 0 {
		return errEmptySnapshot
	}

	return r.Snapshot.Validate()
}

type evaluateReq struct {
	client.EvaluateRequest
}

func (r evaluateReq) validate() error {
	return r.Snapshot.Validate()
}

type profileReq struct{}
