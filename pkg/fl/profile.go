package fl

import "fmt"

// Profile is one client's summary vector.
type Profile []float64

type FusedProfile []float64

type ClientProfile struct {
	ClientID string  `json:"client_id"`
	Profile  Profile `json:"profile"`
}

// Fuse returns the elementwise mean of the profiles. All profiles must share one length.
func Fuse(profiles []ClientProfile) (FusedProfile, error) {
	if len(profiles) == 0 {
		return nil, ErrNoUpdates
	}

	dim := len(profiles[0].Profile)
	for _, p := range profiles {
		if len(p.Profile) != dim {
			return nil, fmt.Errorf("%w: client %s has length %d, expected %d", ErrShapeMismatch, p.ClientID, len(p.Profile), dim)
		}
	}

	acc := make([]compensated, dim)
	for i, p := range sortedProfiles(profiles) {
		for j, v := range p.Profile {
			acc[j].add(v, i == 0)
		}
	}
	n := float64(len(profiles))
	fused := make(FusedProfile, dim)
	for j := range acc {
		fused[j] = acc[j].value() / n
	}

	return fused, nil
}
