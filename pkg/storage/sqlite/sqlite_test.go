package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/absmach/cohort/pkg/storage"
	"github.com/absmach/cohort/pkg/storage/sqlite"
	"github.com/absmach/cohort/pkg/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func TestRepositories(t *testing.T) {
	db, err := sqlite.NewDatabase(filepath.Join(t.TempDir(), "cohort.db"))
	require.NoError(t, err)
	defer db.Close()

	storagetest.Run(t, storage.FromSQL(db))
}

func TestMigrateTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort.db")

	db, err := sqlite.NewDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = sqlite.NewDatabase(path)
	require.NoError(t, err, "reopening an up to date database applies nothing")
	require.NoError(t, db.Close())
}
