package exchange

import "errors"

var (
	ErrInstrumentNotFound  = errors.New("instrument not found")
	ErrInstrumentInactive  = errors.New("instrument inactive")
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrInvalidPrice        = errors.New("invalid price")
	ErrInvalidSide         = errors.New("invalid order side")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrOrderNotFound       = errors.New("order not found")
	ErrNotOwner            = errors.New("order belongs to another account")
	ErrOrderNotCancellable = errors.New("order can no longer be cancelled")
	ErrSettlementFailure   = errors.New("settlement failure")
)
