package fl

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Core deterministic encoding sorts map keys, so equal snapshots encode to equal bytes.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("fl: cbor encoder: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("fl: cbor decoder: %v", err))
	}
}

func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

func EncodeSnapshot(s Snapshot) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	return data, nil
}

func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := decMode.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Digest is the hex BLAKE3 hash of the snapshot's deterministic encoding.
func Digest(s Snapshot) (string, error) {
	data, err := EncodeSnapshot(s)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)

	return hex.EncodeToString(sum[:]), nil
}

type generalProfile struct {
	GeneralProfile FusedProfile `json:"general_profile"`
}

func EncodeFusedProfile(p FusedProfile) ([]byte, error) {
	return json.Marshal(generalProfile{GeneralProfile: p})
}

func DecodeFusedProfile(data []byte) (FusedProfile, error) {
	var gp generalProfile
	if err := json.Unmarshal(data, &gp); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}

	return gp.GeneralProfile, nil
}
