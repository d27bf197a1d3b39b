package calculator

import "errors"

// ErrNoData is returned when an indicator is asked to work on an empty series.
var ErrNoData = errors.New("no candle data")

var errPeriod = errors.New("period must be positive")
