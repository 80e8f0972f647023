package fl_test

import (
	"testing"

	"github.com/absmach/cohort/pkg/fl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc     string
		profiles []fl.ClientProfile
		want     fl.FusedProfile
		err      error
	}{
		{
			desc: "two profiles",
			profiles: []fl.ClientProfile{
				{ClientID: "a", Profile: fl.Profile{1, 2}},
				{ClientID: "b", Profile: fl.Profile{3, 4}},
			},
			want: fl.FusedProfile{2.0, 3.0},
		},
		{
			desc:     "single profile",
			profiles: []fl.ClientProfile{{ClientID: "a", Profile: fl.Profile{0.25, -1}}},
			want:     fl.FusedProfile{0.25, -1},
		},
		{
			desc: "mismatched length",
			profiles: []fl.ClientProfile{
				{ClientID: "a", Profile: fl.Profile{1, 2}},
				{ClientID: "b", Profile: fl.Profile{3}},
			},
			err: fl.ErrShapeMismatch,
		},
		{
			desc: "empty",
			err:  fl.ErrNoUpdates,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := fl.Fuse(tc.profiles)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.InDeltaSlice(t, tc.want, got, tolerance)
		})
	}
}

func TestFuseOrderIndependent(t *testing.T) {
	t.Parallel()

	a := fl.ClientProfile{ClientID: "a", Profile: fl.Profile{0.1, 0.7, 1e9}}
	b := fl.ClientProfile{ClientID: "b", Profile: fl.Profile{0.2, -0.3, 1}}
	c := fl.ClientProfile{ClientID: "c", Profile: fl.Profile{0.3, 0.9, -1e9}}

	first, err := fl.Fuse([]fl.ClientProfile{a, b, c})
	require.NoError(t, err)
	second, err := fl.Fuse([]fl.ClientProfile{c, a, b})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
