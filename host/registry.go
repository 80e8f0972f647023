package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/0x6flab/namegenerator"
	"github.com/absmach/cohort/client"
	pkgerrors "github.com/absmach/cohort/pkg/errors"
	"github.com/absmach/cohort/pkg/mqtt"
	"github.com/absmach/cohort/pkg/storage"
)

const pageSize = 100

var namegen = namegenerator.NewGenerator()

// Registry keeps client registrations and answers which of them may be
// selected. Presence messages and the API both write through it.
type Registry struct {
	repo     storage.ClientRepository
	liveness time.Duration
	logger   *slog.Logger
}

var _ RegistrationSource = (*Registry)(nil)

// NewRegistry returns a registry. With a positive liveness window only
// clients heard from within the window are eligible.
func NewRegistry(repo storage.ClientRepository, liveness time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		repo:     repo,
		liveness: liveness,
		logger:   logger,
	}
}

func (r *Registry) Register(ctx context.Context, reg client.Registration) (client.Registration, error) {
	if reg.ClientID == "" {
		return client.Registration{}, ErrMissingClientID
	}
	if reg.Name == "" {
		reg.Name = namegen.Generate()
	}
	now := time.Now()
	reg.RegisteredAt = now
	reg.LastSeen = now
	if err := r.repo.Create(ctx, reg); err != nil {
		return client.Registration{}, err
	}

	return reg, nil
}

func (r *Registry) Get(ctx context.Context, id string) (client.Registration, error) {
	return r.repo.Get(ctx, id)
}

func (r *Registry) List(ctx context.Context, offset, limit uint64) (client.RegistrationPage, error) {
	clients, total, err := r.repo.List(ctx, offset, limit)
	if err != nil {
		return client.RegistrationPage{}, err
	}

	return client.RegistrationPage{
		Offset:  offset,
		Limit:   limit,
		Total:   total,
		Clients: clients,
	}, nil
}

func (r *Registry) SetAvailability(ctx context.Context, id string, available bool) (client.Registration, error) {
	reg, err := r.repo.Get(ctx, id)
	if err != nil {
		return client.Registration{}, err
	}
	reg.Available = available
	if err := r.repo.Update(ctx, reg); err != nil {
		return client.Registration{}, err
	}

	return reg, nil
}

func (r *Registry) Remove(ctx context.Context, id string) error {
	return r.repo.Delete(ctx, id)
}

// Candidates lists every eligible client.
func (r *Registry) Candidates(ctx context.Context) ([]client.Registration, error) {
	now := time.Now()
	var out []client.Registration
	for offset := uint64(0); ; offset += pageSize {
		page, total, err := r.repo.List(ctx, offset, pageSize)
		if err != nil {
			return nil, err
		}
		for _, reg := range page {
			if reg.Eligible(now, r.liveness) {
				out = append(out, reg)
			}
		}
		if offset+pageSize >= total || len(page) == 0 {
			return out, nil
		}
	}
}

// Handler applies presence messages published by clients.
func (r *Registry) Handler(ctx context.Context, topics mqtt.Topics) mqtt.Handler {
	return func(topic string, payload []byte) error {
		if topic != topics.ClientCreate() && topic != topics.ClientAlive() {
			return nil
		}
		var p client.Presence
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("invalid presence message: %w", err)
		}
		if p.ClientID == "" {
			return ErrMissingClientID
		}

		switch p.Status {
		case client.Online:
			if err := r.online(ctx, p); err != nil {
				return err
			}
			r.logger.InfoContext(ctx, "client online", slog.String("client_id", p.ClientID))
		case client.Alive:
			return r.touch(ctx, p)
		case client.Offline:
			if _, err := r.SetAvailability(ctx, p.ClientID, false); err != nil {
				return err
			}
			r.logger.InfoContext(ctx, "client offline", slog.String("client_id", p.ClientID))
		}

		return nil
	}
}

func (r *Registry) online(ctx context.Context, p client.Presence) error {
	reg, err := r.repo.Get(ctx, p.ClientID)
	if errors.Is(err, pkgerrors.ErrNotFound) {
		_, err = r.Register(ctx, client.Registration{
			ClientID:  p.ClientID,
			Name:      p.Name,
			Address:   p.Address,
			Available: true,
		})

		return err
	}
	if err != nil {
		return err
	}
	if p.Name != "" {
		reg.Name = p.Name
	}
	if p.Address != "" {
		reg.Address = p.Address
	}
	reg.Available = true
	reg.LastSeen = time.Now()

	return r.repo.Update(ctx, reg)
}

// touch records a heartbeat. An unknown client is registered on the spot.
func (r *Registry) touch(ctx context.Context, p client.Presence) error {
	reg, err := r.repo.Get(ctx, p.ClientID)
	if errors.Is(err, pkgerrors.ErrNotFound) {
		return r.online(ctx, p)
	}
	if err != nil {
		return err
	}
	reg.LastSeen = time.Now()

	return r.repo.Update(ctx, reg)
}
