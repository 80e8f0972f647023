package client

import "errors"

var (
	ErrMissingClientID     = errors.New("missing client id")
	ErrMissingTrainer      = errors.New("missing trainer")
	ErrEvaluateUnsupported = errors.New("client does not evaluate")
	ErrProfileUnsupported  = errors.New("client does not produce a profile")
	ErrMissingAddress      = errors.New("missing client address")
)
