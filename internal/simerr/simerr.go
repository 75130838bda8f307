// Package simerr defines the sentinel errors shared across the engine so
// callers can classify failures with errors.Is instead of matching
// strings.
package simerr

import "errors"

var (
	// ErrInvalidArgument marks a malformed or out-of-range CLI flag.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConfigMalformed marks a syntax or structural problem in a
	// topology configuration file.
	ErrConfigMalformed = errors.New("config malformed")

	// ErrPowerSumViolation marks a topology whose miner mining powers
	// do not sum to 1.0 within tolerance.
	ErrPowerSumViolation = errors.New("mining power does not sum to 1.0")

	// ErrOutOfTransactions marks a miner that was asked to mine a
	// block with fewer transactions in its mempool than the block
	// size requires.
	ErrOutOfTransactions = errors.New("mempool exhausted while mining a block")

	// ErrOutputIO marks a failure opening or writing one of the
	// output sinks.
	ErrOutputIO = errors.New("output io failure")
)
