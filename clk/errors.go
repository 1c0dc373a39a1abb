package clk

import (
	"errors"
	"fmt"
)

var (
	ErrRateUnsupported      = errors.New("rate unsupported")
	ErrUnsupportedFrequency = errors.New("unsupported frequency")
	ErrLockTimeout          = errors.New("pll lock timeout")
	ErrSlewTimeout          = errors.New("pll slew timeout")
	ErrUpdateTimeout        = errors.New("rcg update timeout")
	ErrMeasureTimeout       = errors.New("measurement timeout")
	ErrNotPermitted         = errors.New("operation not permitted")
	ErrNotFound             = errors.New("no such clock")
	ErrNotEnabled           = errors.New("clock not enabled")
)

// TimeoutError is returned when a bounded hardware poll runs out of
// iterations. It unwraps to one of the timeout sentinels.
type TimeoutError struct {
	Clock string
	Op    string
	Iters int
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s: %v after %d polls", e.Clock, e.Op, e.Err, e.Iters)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}
