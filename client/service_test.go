package client_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/absmach/cohort/client"
	"github.com/absmach/cohort/pkg/blob"
	"github.com/absmach/cohort/pkg/fl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

type trainerFunc func(ctx context.Context, in client.TrainInput) (client.TrainOutput, error)

func (f trainerFunc) Train(ctx context.Context, in client.TrainInput) (client.TrainOutput, error) {
	return f(ctx, in)
}

type evaluatorFunc func(ctx context.Context, in client.TrainInput) (client.EvalOutput, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, in client.TrainInput) (client.EvalOutput, error) {
	return f(ctx, in)
}

type profilerFunc func(ctx context.Context) (fl.Profile, error)

func (f profilerFunc) Profile(ctx context.Context) (fl.Profile, error) {
	return f(ctx)
}

// addOne trains by adding 1 to every weight over n samples.
func addOne(n uint64) client.Trainer {
	return trainerFunc(func(_ context.Context, in client.TrainInput) (client.TrainOutput, error) {
		out := in.Snapshot.Clone()
		for k, t := range out {
			for i := range t.Data {
				t.Data[i]++
			}
			out[k] = t
		}

		return client.TrainOutput{Snapshot: out, SampleCount: n, Metrics: fl.Metrics{"loss": 0.5}}, nil
	})
}

func snapshot(v ...float64) fl.Snapshot {
	return fl.Snapshot{"w": fl.NewTensor(v)}
}

func TestNewAgent(t *testing.T) {
	t.Parallel()

	_, err := client.NewAgent("", "", addOne(1), logger)
	assert.ErrorIs(t, err, client.ErrMissingClientID)

	_, err = client.NewAgent("a", "", nil, logger)
	assert.ErrorIs(t, err, client.ErrMissingTrainer)
}

func TestFit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc    string
		trainer client.Trainer
		in      fl.Snapshot
		want    fl.Snapshot
		samples uint64
		err     error
	}{
		{
			desc:    "valid fit",
			trainer: addOne(10),
			in:      snapshot(1, 2),
			want:    snapshot(2, 3),
			samples: 10,
		},
		{
			desc: "adapter failure",
			trainer: trainerFunc(func(context.Context, client.TrainInput) (client.TrainOutput, error) {
				return client.TrainOutput{}, errors.New("oom")
			}),
			in:  snapshot(1),
			err: errors.New("oom"),
		},
		{
			desc:    "zero samples is rejected",
			trainer: addOne(0),
			in:      snapshot(1),
			err:     fl.ErrInvalidSampleCount,
		},
		{
			desc: "trainer changes schema",
			trainer: trainerFunc(func(context.Context, client.TrainInput) (client.TrainOutput, error) {
				return client.TrainOutput{Snapshot: fl.Snapshot{"v": fl.NewTensor([]float64{1})}, SampleCount: 1}, nil
			}),
			in:  snapshot(1),
			err: fl.ErrSchemaMismatch,
		},
		{
			desc:    "malformed snapshot",
			trainer: addOne(1),
			in:      fl.Snapshot{"w": {Shape: []int{3}, Data: []float64{1}}},
			err:     fl.ErrInvalidTensor,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			agent, err := client.NewAgent("client-1", "data.json", tc.trainer, logger)
			require.NoError(t, err)

			rep, err := agent.Fit(context.Background(), client.FitRequest{Round: 1, Snapshot: tc.in})
			if tc.err != nil {
				var ae *client.AdapterError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, "client-1", ae.ClientID)
				if !errors.Is(err, tc.err) {
					assert.Contains(t, err.Error(), tc.err.Error())
				}
				assert.Empty(t, rep.ClientID, "no partial report on failure")

				return
			}
			require.NoError(t, err)
			assert.Equal(t, "client-1", rep.ClientID)
			assert.Equal(t, tc.samples, rep.SampleCount)
			assert.True(t, tc.want.Equal(rep.Snapshot))
			assert.Equal(t, []float64{1, 2}, tc.in["w"].Data, "input snapshot is not mutated")
		})
	}
}

func TestFitLineage(t *testing.T) {
	t.Parallel()

	agent, err := client.NewAgent("client-1", "", addOne(1), logger)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = agent.Fit(ctx, client.FitRequest{Round: 1, Snapshot: snapshot(1, 2)})
	require.NoError(t, err)

	_, err = agent.Fit(ctx, client.FitRequest{Round: 2, Snapshot: snapshot(1, 2, 3)})
	assert.ErrorIs(t, err, fl.ErrSchemaMismatch)

	_, err = agent.Fit(ctx, client.FitRequest{Round: 2, Snapshot: snapshot(5, 6)})
	assert.NoError(t, err)
}

func TestFitPersistsSnapshot(t *testing.T) {
	t.Parallel()

	store := blob.NewMemoryStore()
	agent, err := client.NewAgent("client-1", "", addOne(3), logger, client.WithBlobStore(store))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = agent.Fit(ctx, client.FitRequest{Round: 4, Snapshot: snapshot(1)})
	require.NoError(t, err)

	data, err := store.Get(ctx, blob.ClientKey("client-1", 4))
	require.NoError(t, err)
	got, err := fl.DecodeSnapshot(data)
	require.NoError(t, err)
	assert.True(t, snapshot(2).Equal(got))
}

type failingStore struct{}

func (failingStore) Put(context.Context, string, []byte) error { return errors.New("disk full") }

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, blob.ErrNotFound }

func TestFitPersistFailureKeepsReport(t *testing.T) {
	t.Parallel()

	agent, err := client.NewAgent("client-1", "", addOne(3), logger, client.WithBlobStore(failingStore{}))
	require.NoError(t, err)

	rep, err := agent.Fit(context.Background(), client.FitRequest{Round: 1, Snapshot: snapshot(1)})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), rep.SampleCount)
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	bare, err := client.NewAgent("client-1", "", addOne(1), logger)
	require.NoError(t, err)
	_, err = bare.Evaluate(ctx, client.EvaluateRequest{Round: 1, Snapshot: snapshot(1)})
	assert.ErrorIs(t, err, client.ErrEvaluateUnsupported)

	eval := evaluatorFunc(func(_ context.Context, in client.TrainInput) (client.EvalOutput, error) {
		return client.EvalOutput{Loss: in.Snapshot["w"].Data[0], SampleCount: 4}, nil
	})
	agent, err := client.NewAgent("client-1", "", addOne(1), logger, client.WithEvaluator(eval))
	require.NoError(t, err)

	rep, err := agent.Evaluate(ctx, client.EvaluateRequest{Round: 1, Snapshot: snapshot(0.25)})
	require.NoError(t, err)
	assert.Equal(t, "client-1", rep.ClientID)
	assert.InDelta(t, 0.25, rep.Loss, 1e-12)
	assert.Equal(t, uint64(4), rep.SampleCount)
}

func TestProfile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	agent, err := client.NewAgent("client-1", "", addOne(1), logger, client.WithProfiler(profilerFunc(func(context.Context) (fl.Profile, error) {
		return fl.Profile{1, 2}, nil
	})))
	require.NoError(t, err)

	p, err := agent.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, fl.ClientProfile{ClientID: "client-1", Profile: fl.Profile{1, 2}}, p)

	broken, err := client.NewAgent("client-1", "", addOne(1), logger, client.WithProfiler(profilerFunc(func(context.Context) (fl.Profile, error) {
		return nil, errors.New("no embeddings")
	})))
	require.NoError(t, err)
	_, err = broken.Profile(ctx)
	var ae *client.AdapterError
	assert.ErrorAs(t, err, &ae)
}
