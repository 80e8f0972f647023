package badger

import (
	"context"

	"github.com/absmach/cohort/client"
	pkgerrors "github.com/absmach/cohort/pkg/errors"
)

const clientPrefix = "client:"

type ClientRepository struct {
	db *Database
}

func NewClientRepository(db *Database) *ClientRepository {
	return &ClientRepository{db: db}
}

func clientKey(id string) []byte {
	return []byte(clientPrefix + id)
}

func (r *ClientRepository) Create(_ context.Context, c client.Registration) error {
	if c.ClientID == "" {
		return pkgerrors.ErrEmptyKey
	}

	return write(r.db, clientKey(c.ClientID), c, createOnly)
}

func (r *ClientRepository) Get(_ context.Context, id string) (client.Registration, error) {
	return read[client.Registration](r.db, clientKey(id))
}

func (r *ClientRepository) Update(_ context.Context, c client.Registration) error {
	return write(r.db, clientKey(c.ClientID), c, updateOnly)
}

func (r *ClientRepository) List(_ context.Context, offset, limit uint64) ([]client.Registration, uint64, error) {
	return scan[client.Registration](r.db, []byte(clientPrefix), offset, limit)
}

func (r *ClientRepository) Delete(_ context.Context, id string) error {
	return r.db.remove(clientKey(id))
}
