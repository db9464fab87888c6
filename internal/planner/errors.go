package planner

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/coinforge/pkg/types"
)

// Planning errors. All of them are detected from local state before any
// external call is made.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotEnoughObjects    = errors.New("not enough coin objects")
	ErrNoRecipients        = errors.New("no recipients")
	ErrNoCoinSelected      = errors.New("no coin selected")
	ErrObjectConsumed      = errors.New("object already consumed in this transaction")
)

// InsufficientError carries the amounts behind an ErrInsufficientBalance.
// All amounts are in base units of CoinType.
type InsufficientError struct {
	CoinType  types.CoinType
	Required  types.Amount
	Available types.Amount
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("%s: %s: need %s, have %s", ErrInsufficientBalance, e.CoinType, e.Required, e.Available)
}

// Unwrap makes errors.Is(err, ErrInsufficientBalance) hold.
func (e *InsufficientError) Unwrap() error {
	return ErrInsufficientBalance
}

// Shortfall is Required minus Available.
func (e *InsufficientError) Shortfall() types.Amount {
	return e.Required.Sub(e.Available)
}
