package round

import (
	"fmt"
	"strings"
	"time"

	"github.com/absmach/cohort"
)

type RunStatus uint8

const (
	RunRunning RunStatus = iota
	RunSucceeded
	RunFailed
	RunCancelled
)

func (s RunStatus) String() string {
	switch s {
	case RunRunning:
		return "RUNNING"
	case RunSucceeded:
		return "SUCCEEDED"
	case RunFailed:
		return "FAILED"
	case RunCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

func (s RunStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RunStatus) UnmarshalText(text []byte) error {
	for st := RunRunning; st <= RunCancelled; st++ {
		if strings.EqualFold(st.String(), string(text)) {
			*s = st

			return nil
		}
	}

	return fmt.Errorf("%w: %q", ErrUnknownStatus, text)
}

// Run tracks a whole training run across rounds.
type Run struct {
	ID              string            `json:"id"`
	Config          cohort.RunConfig  `json:"config"`
	Status          RunStatus         `json:"status"`
	Round           uint64            `json:"round"`
	RoundsCompleted uint64            `json:"rounds_completed"`
	Retries         uint64            `json:"retries"`
	Reason          Reason            `json:"reason,omitempty"`
	Error           string            `json:"error,omitempty"`
	Artifacts       map[string]string `json:"artifacts,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	FinishedAt      time.Time         `json:"finished_at"`
}

type RunPage struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
	Total  uint64 `json:"total"`
	Runs   []Run  `json:"runs"`
}

type Page struct {
	Offset uint64  `json:"offset"`
	Limit  uint64  `json:"limit"`
	Total  uint64  `json:"total"`
	Rounds []Round `json:"rounds"`
}
