package fl

import (
	"cmp"
	"fmt"
	"slices"
)

type Metrics map[string]float64

// ClientReport is the outcome of one client's local fit for a round.
type ClientReport struct {
	ClientID    string   `json:"client_id"    cbor:"1,keyasint"`
	Snapshot    Snapshot `json:"snapshot"     cbor:"2,keyasint"`
	SampleCount uint64   `json:"sample_count" cbor:"3,keyasint"`
	Metrics     Metrics  `json:"metrics"      cbor:"4,keyasint,omitempty"`
}

func (r ClientReport) Validate() error {
	if r.ClientID == "" {
		return ErrMissingClientID
	}
	if r.SampleCount == 0 {
		return fmt.Errorf("client %s: %w", r.ClientID, ErrInvalidSampleCount)
	}
	if err := r.Snapshot.Validate(); err != nil {
		return fmt.Errorf("client %s: %w", r.ClientID, err)
	}

	return nil
}

// EvaluationReport is what a client returns after scoring a snapshot on its own data.
type EvaluationReport struct {
	ClientID    string  `json:"client_id"    cbor:"1,keyasint"`
	Loss        float64 `json:"loss"         cbor:"2,keyasint"`
	SampleCount uint64  `json:"sample_count" cbor:"3,keyasint"`
	Metrics     Metrics `json:"metrics"      cbor:"4,keyasint,omitempty"`
}

func sortedByClient(reports []ClientReport) []ClientReport {
	sorted := slices.Clone(reports)
	slices.SortStableFunc(sorted, func(a, b ClientReport) int {
		return cmp.Compare(a.ClientID, b.ClientID)
	})

	return sorted
}

func sortedProfiles(profiles []ClientProfile) []ClientProfile {
	sorted := slices.Clone(profiles)
	slices.SortStableFunc(sorted, func(a, b ClientProfile) int {
		return cmp.Compare(a.ClientID, b.ClientID)
	})

	return sorted
}
