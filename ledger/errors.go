package ledger

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrAlreadyInitialized       = errors.New("already initialized")
	ErrNotInitialized           = errors.New("not initialized")
	ErrInvalidArgument          = errors.New("invalid argument")
	ErrUnauthorized             = errors.New("unauthorized")
	ErrInvalidState             = errors.New("invalid state")
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrInsufficientAvailability = errors.New("insufficient availability")
	ErrNotFound                 = errors.New("not found")
	ErrReadOnly                 = errors.New("read-only invocation")
)

// AddAmount returns a+b, failing instead of wrapping around.
func AddAmount(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, fmt.Errorf("%w: amount overflow", ErrInvalidArgument)
	}
	return a + b, nil
}
