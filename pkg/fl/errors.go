package fl

import "errors"

var (
	ErrNoUpdates          = errors.New("no updates provided for aggregation")
	ErrOverflow           = errors.New("sample count overflow during aggregation")
	ErrSchemaMismatch     = errors.New("snapshot schema mismatch")
	ErrShapeMismatch      = errors.New("profile shape mismatch")
	ErrInvalidSampleCount = errors.New("sample count must be positive")
	ErrInvalidTensor      = errors.New("tensor data does not match its shape")
	ErrMissingClientID    = errors.New("missing client id")
)
