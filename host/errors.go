package host

import (
	"errors"
	"fmt"

	pkgerrors "github.com/absmach/cohort/pkg/errors"
	"github.com/absmach/cohort/pkg/round"
)

var (
	ErrRunInProgress   = fmt.Errorf("%w: a run is already in progress", pkgerrors.ErrConflict)
	ErrRunNotActive    = fmt.Errorf("%w: run is not active", pkgerrors.ErrConflict)
	ErrNoInitialState  = errors.New("no initial global snapshot")
	ErrRunFailed       = errors.New("run failed")
	ErrProfileFusion   = errors.New("profile fusion failed")
	ErrMissingClientID = errors.New("missing client id")
	ErrClientMismatch  = errors.New("report came from a different client")
	ErrNoReport        = errors.New("no report before collection closed")
	ErrNoBroker        = errors.New("no message broker configured")
)

// RunFailure is returned when a round is abandoned more times than the run
// allows. The last completed snapshot has been written as the final artifact.
type RunFailure struct {
	RunID   string
	Round   uint64
	Reason  round.Reason
	Retries uint64
	Cause   string
}

func (f *RunFailure) Error() string {
	msg := fmt.Sprintf("run %s failed at round %d after %d retries: %s", f.RunID, f.Round, f.Retries, f.Reason)
	if f.Cause != "" {
		msg += ": " + f.Cause
	}

	return msg
}

func (f *RunFailure) Unwrap() []error {
	if err := f.Reason.Err(); err != nil {
		return []error{ErrRunFailed, err}
	}

	return []error{ErrRunFailed}
}
