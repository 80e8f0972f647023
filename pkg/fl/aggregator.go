package fl

import (
	"fmt"
	"math"
	"math/bits"
)

type Aggregator interface {
	Aggregate(reference Snapshot, reports []ClientReport) (Snapshot, error)
}

type FedAvgAggregator struct{}

func NewFedAvgAggregator() Aggregator {
	return &FedAvgAggregator{}
}

func (f *FedAvgAggregator) Aggregate(reference Snapshot, reports []ClientReport) (Snapshot, error) {
	return FedAvg(reference, reports)
}

// TotalSamples sums sample counts as integers so the normalizer is exact.
func TotalSamples(reports []ClientReport) (uint64, error) {
	var total uint64
	for _, r := range reports {
		if r.SampleCount == 0 {
			return 0, fmt.Errorf("client %s: %w", r.ClientID, ErrInvalidSampleCount)
		}
		sum, carry := bits.Add64(total, r.SampleCount, 0)
		if carry != 0 {
			return 0, ErrOverflow
		}
		total = sum
	}

	return total, nil
}

// Weights returns sample_count_i / Σ sample_count for each report, in input order.
func Weights(reports []ClientReport) ([]float64, error) {
	if len(reports) == 0 {
		return nil, ErrNoUpdates
	}
	total, err := TotalSamples(reports)
	if err != nil {
		return nil, err
	}
	weights := make([]float64, len(reports))
	for i, r := range reports {
		weights[i] = float64(r.SampleCount) / float64(total)
	}

	return weights, nil
}

// FedAvg computes the sample-weighted mean of the reported snapshots.
// Every report must conform to reference; a nil reference adopts the schema
// of the first report. Reports are combined in client id order, so the
// result does not depend on the order they arrived in.
func FedAvg(reference Snapshot, reports []ClientReport) (Snapshot, error) {
	if len(reports) == 0 {
		return nil, ErrNoUpdates
	}

	ordered := sortedByClient(reports)
	if reference == nil {
		reference = ordered[0].Snapshot
	}
	for _, r := range ordered {
		if err := r.Snapshot.Conforms(reference); err != nil {
			return nil, fmt.Errorf("client %s: %w", r.ClientID, err)
		}
	}

	weights, err := Weights(ordered)
	if err != nil {
		return nil, err
	}

	out := make(Snapshot, len(reference))
	for _, key := range reference.Keys() {
		ref := reference[key]
		acc := make([]compensated, len(ref.Data))
		for i, r := range ordered {
			for j, v := range r.Snapshot[key].Data {
				acc[j].add(v*weights[i], i == 0)
			}
		}
		data := make([]float64, len(acc))
		for j := range acc {
			data[j] = acc[j].value()
		}
		out[key] = Tensor{Shape: append([]int(nil), ref.Shape...), Data: data}
	}

	return out, nil
}

// AverageMetrics returns the sample-weighted mean of every metric reported by all clients.
func AverageMetrics(reports []ClientReport) (Metrics, error) {
	if len(reports) == 0 {
		return Metrics{}, nil
	}
	ordered := sortedByClient(reports)
	weights, err := Weights(ordered)
	if err != nil {
		return nil, err
	}

	out := Metrics{}
	for name := range ordered[0].Metrics {
		var acc compensated
		shared := true
		for i, r := range ordered {
			v, ok := r.Metrics[name]
			if !ok {
				shared = false

				break
			}
			acc.add(v*weights[i], i == 0)
		}
		if shared {
			out[name] = acc.value()
		}
	}

	return out, nil
}

// AverageEvaluations folds per-client evaluations into one sample-weighted result.
func AverageEvaluations(evals []EvaluationReport) (EvaluationReport, error) {
	reports := make([]ClientReport, len(evals))
	for i, e := range evals {
		metrics := Metrics{"loss": e.Loss}
		for k, v := range e.Metrics {
			metrics[k] = v
		}
		reports[i] = ClientReport{ClientID: e.ClientID, SampleCount: e.SampleCount, Metrics: metrics}
	}
	metrics, err := AverageMetrics(reports)
	if err != nil {
		return EvaluationReport{}, err
	}
	total, err := TotalSamples(reports)
	if err != nil {
		return EvaluationReport{}, err
	}
	loss := metrics["loss"]
	delete(metrics, "loss")

	return EvaluationReport{
		Loss:        loss,
		SampleCount: total,
		Metrics:     metrics,
	}, nil
}

// compensated is a Neumaier running sum.
type compensated struct {
	sum float64
	c   float64
}

func (k *compensated) add(v float64, first bool) {
	if first {
		k.sum, k.c = v, 0

		return
	}
	t := k.sum + v
	if math.Abs(k.sum) >= math.Abs(v) {
		k.c += (k.sum - t) + v
	} else {
		k.c += (v - t) + k.sum
	}
	k.sum = t
}

func (k *compensated) value() float64 {
	return k.sum + k.c
}
