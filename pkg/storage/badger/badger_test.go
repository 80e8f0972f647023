package badger_test

import (
	"testing"

	"github.com/absmach/cohort/pkg/storage"
	"github.com/absmach/cohort/pkg/storage/badger"
	"github.com/absmach/cohort/pkg/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func TestRepositories(t *testing.T) {
	db, err := badger.NewInMemoryDatabase()
	require.NoError(t, err)

	repos := storage.FromBadger(db)
	defer repos.Closer.Close()

	storagetest.Run(t, repos)
}

func TestPersistentDatabase(t *testing.T) {
	db, err := badger.NewDatabase(t.TempDir())
	require.NoError(t, err)

	repos := storage.FromBadger(db)
	defer repos.Closer.Close()

	storagetest.Run(t, repos)
}
