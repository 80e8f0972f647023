package api

import (
	"net/http"

	"github.com/absmach/cohort/pkg/fl"
	"github.com/absmach/supermq"
)

var (
	_ supermq.Response = (*fitRes)(nil)
	_ supermq.Response = (*evaluateRes)(nil)
	_ supermq.Response = (*profileRes)(nil)
)

type fitRes struct {
	fl.ClientReport
}

func (r fitRes) Code() int {
	return http.StatusOK
}

func (r fitRes) Headers() map[string]string {
	return map[string]string{}
}

func (r fitRes) Empty() bool {
	return false
}

type evaluateRes struct {
	fl.EvaluationReport
}

func (r evaluateRes) Code() int {
	return http.StatusOK
}

func (r evaluateRes) Headers() map[string]string {
	return map[string]string{}
}

func (r evaluateRes) Empty() bool {
	return false
}

type profileRes struct {
	fl.ClientProfile
}

func (r profileRes) Code() int {
	return http.StatusOK
}

func (r profileRes) Headers() map[string]string {
	return map[string]string{}
}

func (r profileRes) Empty() bool {
	return false
}
