package domain

import "errors"

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotFound         = errors.New("not found")
	ErrMarketNotFound   = errors.New("market not found")
	ErrInvalidTimeRange = errors.New("close time must be after start time")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidCurrency  = errors.New("unsupported currency")
	ErrInvalidSide      = errors.New("invalid side")
	ErrMarketClosed     = errors.New("market is not open for predictions")
	ErrMarketNotClosed  = errors.New("market has not closed yet")
	ErrAlreadyResolved  = errors.New("market already resolved")
	ErrInvalidOutcome   = errors.New("invalid outcome")
	ErrInsufficientFees = errors.New("insufficient accumulated fees")
	ErrLockHeld         = errors.New("lock already held")
)
