package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/fl"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

const (
	dataMount  = "/data"
	trainCmd   = "train"
	evalCmd    = "evaluate"
	moduleName = "trainer"
)

var (
	ErrEmptyModule = errors.New("empty wasm module")
	ErrModuleExit  = errors.New("wasm module exited with failure")
)

var (
	_ client.Trainer   = (*Wasm)(nil)
	_ client.Evaluator = (*Wasm)(nil)
)

// Wasm runs a WASI trainer module. Each call instantiates a fresh module
// that reads a CBOR TrainInput on stdin and writes its CBOR result on stdout.
// The directory holding the dataset is mounted read-only at /data.
type Wasm struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	logger   *slog.Logger
}

func NewWasm(ctx context.Context, binary []byte, logger *slog.Logger) (*Wasm, error) {
	if len(binary) == 0 {
		return nil, ErrEmptyModule
	}

	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	// WASI provides the host functions TinyGo needs for stdio and panic.
	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	compiled, err := r.CompileModule(ctx, binary)
	if err != nil {
		_ = r.Close(ctx)

		return nil, errors.Join(errors.New("failed to compile Wasm module"), err)
	}

	return &Wasm{
		runtime:  r,
		compiled: compiled,
		logger:   logger,
	}, nil
}

func (w *Wasm) Train(ctx context.Context, in client.TrainInput) (client.TrainOutput, error) {
	var out client.TrainOutput
	if err := w.run(ctx, trainCmd, in, &out); err != nil {
		return client.TrainOutput{}, err
	}

	return out, nil
}

func (w *Wasm) Evaluate(ctx context.Context, in client.TrainInput) (client.EvalOutput, error) {
	var out client.EvalOutput
	if err := w.run(ctx, evalCmd, in, &out); err != nil {
		return client.EvalOutput{}, err
	}

	return out, nil
}

func (w *Wasm) Close(ctx context.Context) error {
	return w.runtime.Close(ctx)
}

func (w *Wasm) run(ctx context.Context, cmd string, in client.TrainInput, out any) error {
	fsConfig := wazero.NewFSConfig()
	if in.Dataset != "" {
		dir, name := filepath.Split(in.Dataset)
		if dir == "" {
			dir = "."
		}
		fsConfig = fsConfig.WithReadOnlyDirMount(dir, dataMount)
		in.Dataset = dataMount + "/" + name
	}

	stdin, err := fl.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode module input: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithArgs(moduleName, cmd).
		WithStdin(bytes.NewReader(stdin)).
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithFSConfig(fsConfig)

	mod, err := w.runtime.InstantiateModule(ctx, w.compiled, cfg)
	if mod != nil {
		defer mod.Close(ctx)
	}
	if err != nil {
		var exitErr *sys.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 0 {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				w.logger.Warn("wasm module stderr", slog.String("command", cmd), slog.String("stderr", msg))
			}

			return errors.Join(ErrModuleExit, err)
		}
	}

	if err := fl.Unmarshal(stdout.Bytes(), out); err != nil {
		return fmt.Errorf("failed to decode module output: %w", err)
	}

	return nil
}
