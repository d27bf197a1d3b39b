package collector

import (
	"errors"
	"fmt"
)

// ErrUnmapped is returned by a source that has no identifier for the symbol.
// The oracle skips such a source without counting it as an attempt.
var ErrUnmapped = errors.New("symbol not mapped for source")

// ErrUnsupportedInterval is returned for a kline interval the provider does not serve.
var ErrUnsupportedInterval = errors.New("unsupported interval")

// TransportError wraps a network failure, timeout or non-2xx response from an upstream.
type TransportError struct {
	Source     string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DataFormatError reports a payload that does not match the expected shape.
type DataFormatError struct {
	Source string
	Reason string
}

func (e *DataFormatError) Error() string {
	return fmt.Sprintf("%s: malformed response: %s", e.Source, e.Reason)
}

func formatErr(source, format string, args ...any) error {
	return &DataFormatError{Source: source, Reason: fmt.Sprintf(format, args...)}
}
