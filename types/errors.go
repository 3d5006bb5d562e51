package types

import "errors"

var (
	// ErrQuoteUnavailable marks a single route quote that could not be produced
	ErrQuoteUnavailable = errors.New("quote unavailable")
	// ErrChainUnreachable marks RPC failures that take a chain out of rotation
	ErrChainUnreachable = errors.New("chain unreachable")
	// ErrInsufficientBalance aborts an execution before any transaction is sent
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrTransactionFailed marks a reverted or unconfirmed on-chain step
	ErrTransactionFailed = errors.New("transaction failed")
	// ErrConfigurationMissing is fatal at startup
	ErrConfigurationMissing = errors.New("configuration missing")

	ErrExecutionInFlight = errors.New("execution already in flight")
	ErrUnknownStrategy   = errors.New("unknown strategy")
	ErrAlreadyRunning    = errors.New("already running")
)
