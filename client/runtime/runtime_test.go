package runtime

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/fl"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emptyModule is the smallest valid wasm binary: magic and version only.
var emptyModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestSplitRef(t *testing.T) {
	t.Parallel()

	cases := []struct {
		ref  string
		name string
		tag  string
	}{
		{ref: "docker.io/cohort/trainer:v1", name: "docker.io/cohort/trainer", tag: "v1"},
		{ref: "localhost:5000/trainer", name: "localhost:5000/trainer", tag: "latest"},
		{ref: "localhost:5000/trainer:v2", name: "localhost:5000/trainer", tag: "v2"},
		{ref: "ghcr.io/x/y@sha256:abcd", name: "ghcr.io/x/y", tag: "sha256:abcd"},
	}

	for _, tc := range cases {
		t.Run(tc.ref, func(t *testing.T) {
			name, tag := splitRef(tc.ref)
			assert.Equal(t, tc.name, name)
			assert.Equal(t, tc.tag, tag)
		})
	}
}

func TestLargestLayer(t *testing.T) {
	t.Parallel()

	_, err := largestLayer(ocispec.Manifest{})
	assert.ErrorIs(t, err, ErrNoLayers)

	m := ocispec.Manifest{Layers: []ocispec.Descriptor{
		{Size: 10, MediaType: "a"},
		{Size: 300, MediaType: "b"},
		{Size: 20, MediaType: "c"},
	}}
	l, err := largestLayer(m)
	require.NoError(t, err)
	assert.Equal(t, "b", l.MediaType)
}

func TestFetchLocal(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trainer.wasm")
	require.NoError(t, os.WriteFile(path, emptyModule, 0o600))

	data, err := Fetch(context.Background(), path, RegistryConfig{})
	require.NoError(t, err)
	assert.Equal(t, emptyModule, data)

	data, err = Fetch(context.Background(), filePrefix+path, RegistryConfig{})
	require.NoError(t, err)
	assert.Equal(t, emptyModule, data)

	_, err = Fetch(context.Background(), filePrefix+path+".missing", RegistryConfig{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewWasm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := NewWasm(ctx, nil, logger)
	assert.ErrorIs(t, err, ErrEmptyModule)

	_, err = NewWasm(ctx, []byte("not wasm"), logger)
	assert.Error(t, err)

	w, err := NewWasm(ctx, emptyModule, logger)
	require.NoError(t, err)
	defer w.Close(ctx)

	// A module that writes nothing yields no decodable result.
	_, err = w.Train(ctx, client.TrainInput{Round: 1, Snapshot: fl.Snapshot{"w": fl.NewTensor([]float64{1})}})
	assert.Error(t, err)
}
