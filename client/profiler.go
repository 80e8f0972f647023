package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/absmach/cohort/pkg/fl"
)

var ErrNoEmbeddings = errors.New("no embeddings")

type meanProfiler struct {
	path string
}

// NewMeanProfiler profiles a client as the elementwise mean of the
// per-sample embedding vectors stored as a JSON array at path.
func NewMeanProfiler(path string) Profiler {
	return &meanProfiler{path: path}
}

func (m *meanProfiler) Profile(ctx context.Context) (fl.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read embeddings: %w", err)
	}
	var vectors [][]float64
	if err := json.Unmarshal(data, &vectors); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings: %w", err)
	}

	return MeanEmbedding(vectors)
}

// MeanEmbedding averages equally sized vectors.
func MeanEmbedding(vectors [][]float64) (fl.Profile, error) {
	if len(vectors) == 0 {
		return nil, ErrNoEmbeddings
	}
	profiles := make([]fl.ClientProfile, len(vectors))
	for i, v := range vectors {
		profiles[i] = fl.ClientProfile{ClientID: fmt.Sprintf("%09d", i), Profile: v}
	}
	fused, err := fl.Fuse(profiles)
	if err != nil {
		return nil, err
	}

	return fl.Profile(fused), nil
}
