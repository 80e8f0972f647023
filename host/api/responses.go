package api

import (
	"net/http"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/round"
	"github.com/absmach/supermq"
)

var (
	_ supermq.Response = (*runRes)(nil)
	_ supermq.Response = (*runPageRes)(nil)
	_ supermq.Response = (*roundRes)(nil)
	_ supermq.Response = (*roundPageRes)(nil)
	_ supermq.Response = (*clientRes)(nil)
	_ supermq.Response = (*clientPageRes)(nil)
)

type runRes struct {
	round.Run
	created bool
	stopped bool
}

func (r runRes) Code() int {
	switch {
	case r.created:
		return http.StatusCreated
	case r.stopped:
		return http.StatusAccepted
	default:
		return http.StatusOK
	}
}

func (r runRes) Headers() map[string]string {
	if r.created {
		return map[string]string{
			"Location": "/runs/" + r.ID,
		}
	}

	return map[string]string{}
}

func (r runRes) Empty() bool {
	return r.stopped
}

type runPageRes struct {
	round.RunPage
}

func (r runPageRes) Code() int {
	return http.StatusOK
}

func (r runPageRes) Headers() map[string]string {
	return map[string]string{}
}

func (r runPageRes) Empty() bool {
	return false
}

type roundRes struct {
	round.Round
}

func (r roundRes) Code() int {
	return http.StatusOK
}

func (r roundRes) Headers() map[string]string {
	return map[string]string{}
}

func (r roundRes) Empty() bool {
	return false
}

type roundPageRes struct {
	round.Page
}

func (r roundPageRes) Code() int {
	return http.StatusOK
}

func (r roundPageRes) Headers() map[string]string {
	return map[string]string{}
}

func (r roundPageRes) Empty() bool {
	return false
}

type clientRes struct {
	client.Registration
	created bool
	deleted bool
}

func (c clientRes) Code() int {
	switch {
	case c.created:
		return http.StatusCreated
	case c.deleted:
		return http.StatusNoContent
	default:
		return http.StatusOK
	}
}

func (c clientRes) Headers() map[string]string {
	if c.created {
		return map[string]string{
			"Location": "/clients/" + c.ClientID,
		}
	}

	return map[string]string{}
}

func (c clientRes) Empty() bool {
	return c.deleted
}

type clientPageRes struct {
	client.RegistrationPage
}

func (c clientPageRes) Code() int {
	return http.StatusOK
}

func (c clientPageRes) Headers() map[string]string {
	return map[string]string{}
}

func (c clientPageRes) Empty() bool {
	return false
}
