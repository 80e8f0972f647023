package client_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/fl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanProfiler(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		return path
	}

	cases := []struct {
		desc string
		path string
		want fl.Profile
		err  error
	}{
		{desc: "mean of vectors", path: write("ok.json", `[[1,2,3],[3,4,5]]`), want: fl.Profile{2, 3, 4}},
		{desc: "single vector", path: write("one.json", `[[0.5,1.5]]`), want: fl.Profile{0.5, 1.5}},
		{desc: "empty", path: write("empty.json", `[]`), err: client.ErrNoEmbeddings},
		{desc: "ragged", path: write("ragged.json", `[[1,2],[1]]`), err: fl.ErrShapeMismatch},
		{desc: "missing file", path: filepath.Join(dir, "nope.json"), err: os.ErrNotExist},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			p, err := client.NewMeanProfiler(tc.path).Profile(context.Background())
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.InDeltaSlice(t, tc.want, p, 1e-12)
		})
	}
}
