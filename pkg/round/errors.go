package round

import "errors"

var (
	ErrInvalidTransition   = errors.New("invalid round state transition")
	ErrUnknownStatus       = errors.New("unknown round status")
	ErrInsufficientClients = errors.New("insufficient clients available")
	ErrQuorumNotReached    = errors.New("quorum not reached before deadline")
	ErrAggregation         = errors.New("aggregation failed")
	ErrRoundClosed         = errors.New("round is no longer collecting")
	ErrCancelled           = errors.New("run stopped while the round was open")
)
