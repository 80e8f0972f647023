// Package bootstrap prepares a client process before it can train: the
// trainer module is fetched while the raw export is normalized and cleaned.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/absmach/cohort"
	"github.com/absmach/cohort/client/runtime"
	"github.com/absmach/cohort/pkg/dataset"
	"github.com/absmach/cohort/pkg/pipeline"
)

const (
	StageDownloadModel = "download-model"
	StageFetchData     = "fetch-data"
	StageCleanData     = "clean-data"
	StageReady         = "ready"

	normalizedFile = "normalized.json"
)

var (
	ErrMissingModel   = errors.New("missing trainer module reference")
	ErrMissingDataset = errors.New("missing dataset path")
	ErrEmptyDataset   = errors.New("no usable samples after cleaning")
)

// Result is what the stages leave behind.
type Result struct {
	Module  []byte
	Dataset string
	Posts   int
	Samples int
}

type state struct {
	cfg      cohort.ClientConfig
	registry runtime.RegistryConfig
	result   Result
}

// Stages returns the preparation graph. fetch-data and clean-data are
// no-ops when no raw export is configured and the dataset already exists.
func Stages() []pipeline.Stage[*state] {
	return []pipeline.Stage[*state]{
		{Name: StageDownloadModel, Run: downloadModel},
		{Name: StageFetchData, Run: fetchData},
		{Name: StageCleanData, DependsOn: []string{StageFetchData}, Run: cleanData},
		{Name: StageReady, DependsOn: []string{StageDownloadModel, StageCleanData}, Run: ready},
	}
}

// Run executes the preparation pipeline for one client.
func Run(ctx context.Context, cfg cohort.ClientConfig, registry runtime.RegistryConfig, logger *slog.Logger) (Result, error) {
	p, err := pipeline.New(logger, Stages()...)
	if err != nil {
		return Result{}, err
	}

	st := &state{cfg: cfg, registry: registry, result: Result{Dataset: cfg.DatasetPath}}
	if err := p.Run(ctx, st); err != nil {
		return Result{}, err
	}

	return st.result, nil
}

func downloadModel(ctx context.Context, st *state) error {
	if st.cfg.ModelRef == "" {
		return ErrMissingModel
	}
	module, err := runtime.Fetch(ctx, st.cfg.ModelRef, st.registry)
	if err != nil {
		return err
	}
	st.result.Module = module

	return nil
}

func fetchData(_ context.Context, st *state) error {
	if st.cfg.RawDataPath == "" {
		return nil
	}
	n, err := dataset.NormalizeFile(st.cfg.RawDataPath, normalizedPath(st.cfg))
	if err != nil {
		return err
	}
	st.result.Posts = n

	return nil
}

func cleanData(_ context.Context, st *state) error {
	if st.cfg.DatasetPath == "" {
		return ErrMissingDataset
	}
	if st.cfg.RawDataPath == "" {
		return nil
	}
	n, err := dataset.CleanFile(normalizedPath(st.cfg), st.cfg.DatasetPath)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEmptyDataset
	}
	st.result.Samples = n

	return nil
}

func ready(_ context.Context, st *state) error {
	if len(st.result.Module) == 0 {
		return runtime.ErrEmptyModule
	}

	return nil
}

func normalizedPath(cfg cohort.ClientConfig) string {
	dir := cfg.WorkDir
	if dir == "" {
		dir = filepath.Dir(cfg.DatasetPath)
	}

	return filepath.Join(dir, normalizedFile)
}
