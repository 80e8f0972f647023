package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/api"
	pkgerrors "github.com/absmach/cohort/pkg/errors"
	"github.com/absmach/cohort/pkg/fl"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var _ client.Agent = (*remoteAgent)(nil)

type remoteAgent struct {
	id     string
	url    string
	client *http.Client
}

// NewAgent returns an Agent that calls a client served by MakeHandler.
// Rejections by the client's adapter surface as *client.AdapterError.
func NewAgent(id, url string, httpClient *http.Client) (client.Agent, error) {
	if id == "" {
		return nil, client.ErrMissingClientID
	}
	if url == "" {
		return nil, client.ErrMissingAddress
	}
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	return &remoteAgent{
		id:     id,
		url:    strings.TrimSuffix(url, "/"),
		client: httpClient,
	}, nil
}

func (a *remoteAgent) Fit(ctx context.Context, req client.FitRequest) (fl.ClientReport, error) {
	var rep fl.ClientReport
	if err := a.call(ctx, "fit", req, &rep); err != nil {
		return fl.ClientReport{}, err
	}

	return rep, nil
}

func (a *remoteAgent) Evaluate(ctx context.Context, req client.EvaluateRequest) (fl.EvaluationReport, error) {
	var rep fl.EvaluationReport
	if err := a.call(ctx, "evaluate", req, &rep); err != nil {
		return fl.EvaluationReport{}, err
	}

	return rep, nil
}

func (a *remoteAgent) Profile(ctx context.Context) (fl.ClientProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url+"/profile", http.NoBody)
	if err != nil {
		return fl.ClientProfile{}, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fl.ClientProfile{}, fmt.Errorf("client %s: profile: %w", a.id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fl.ClientProfile{}, a.failure("profile", resp)
	}
	var p fl.ClientProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return fl.ClientProfile{}, fmt.Errorf("client %s: profile: %w", a.id, err)
	}

	return p, nil
}

func (a *remoteAgent) call(ctx context.Context, op string, in, out any) error {
	body, err := fl.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url+"/"+op, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", api.CBORContentType)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("client %s: %s: %w", a.id, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return a.failure(op, resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client %s: %s: %w", a.id, op, err)
	}
	if err := fl.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client %s: %s: %w", a.id, op, err)
	}

	return nil
}

func (a *remoteAgent) failure(op string, resp *http.Response) error {
	err := api.DecodeError(resp)
	if errors.Is(err, pkgerrors.ErrUnprocessable) {
		return &client.AdapterError{ClientID: a.id, Op: op, Cause: err}
	}

	return fmt.Errorf("client %s: %s: %w", a.id, op, err)
}
