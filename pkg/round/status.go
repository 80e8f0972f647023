package round

import (
	"fmt"
	"strings"
)

type Status uint8

const (
	Pending Status = iota
	Selecting
	Dispatched
	Collecting
	Aggregating
	Completed
	Abandoned
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Selecting:
		return "SELECTING"
	case Dispatched:
		return "DISPATCHED"
	case Collecting:
		return "COLLECTING"
	case Aggregating:
		return "AGGREGATING"
	case Completed:
		return "COMPLETED"
	case Abandoned:
		return "ABANDONED"
	default:
		return "UNKNOWN"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v

	return nil
}

func ParseStatus(s string) (Status, error) {
	for st := Pending; st <= Abandoned; st++ {
		if strings.EqualFold(st.String(), s) {
			return st, nil
		}
	}

	return Pending, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s Status) Terminal() bool {
	return s == Completed || s == Abandoned
}

// Reason explains why a round was abandoned.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonInsufficientClients Reason = "InsufficientClients"
	ReasonQuorumNotReached    Reason = "QuorumNotReached"
	ReasonAggregationError    Reason = "AggregationError"
	ReasonCancelled           Reason = "Cancelled"
)

// Err maps a reason to its sentinel error.
func (r Reason) Err() error {
	switch r {
	case ReasonInsufficientClients:
		return ErrInsufficientClients
	case ReasonQuorumNotReached:
		return ErrQuorumNotReached
	case ReasonAggregationError:
		return ErrAggregation
	case ReasonCancelled:
		return ErrCancelled
	default:
		return nil
	}
}
