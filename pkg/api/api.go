package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/absmach/cohort/pkg/fl"
	pkgerrors "github.com/absmach/cohort/pkg/errors"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
)

const (
	OffsetKey = "offset"
	LimitKey  = "limit"
	DefOffset = 0
	DefLimit  = 100

	ContentType     = "application/json"
	CBORContentType = "application/cbor"

	MaxLimitSize = 100
)

type errorRes struct {
	Error string `json:"error"`
}

func EncodeResponse(_ context.Context, w http.ResponseWriter, response any) error {
	if ar, ok := response.(supermq.Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

// EncodeCBORResponse writes snapshot-bearing payloads in deterministic CBOR.
func EncodeCBORResponse(_ context.Context, w http.ResponseWriter, response any) error {
	data, err := fl.Marshal(response)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", CBORContentType)
	if ar, ok := response.(supermq.Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.WriteHeader(ar.Code())
	}
	_, err = w.Write(data)

	return err
}

func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(StatusCode(err))

	if err := json.NewEncoder(w).Encode(errorRes{Error: err.Error()}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func StatusCode(err error) int {
	switch {
	case errors.Is(err, apiutil.ErrValidation),
		errors.Is(err, pkgerrors.ErrEmptyKey),
		errors.Is(err, pkgerrors.ErrInvalidData),
		errors.Is(err, pkgerrors.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrConflict),
		errors.Is(err, pkgerrors.ErrEntityExists):
		return http.StatusConflict
	case errors.Is(err, pkgerrors.ErrUnprocessable),
		errors.Is(err, fl.ErrSchemaMismatch),
		errors.Is(err, fl.ErrShapeMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// DecodeError rebuilds an error from a response written by EncodeError.
func DecodeError(resp *http.Response) error {
	var body errorRes
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}
	cause := errors.New(body.Error)

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return errors.Join(apiutil.ErrValidation, cause)
	case http.StatusNotFound:
		return errors.Join(pkgerrors.ErrNotFound, cause)
	case http.StatusConflict:
		return errors.Join(pkgerrors.ErrConflict, cause)
	case http.StatusUnprocessableEntity:
		return errors.Join(pkgerrors.ErrUnprocessable, cause)
	default:
		return cause
	}
}
