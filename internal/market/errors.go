package market

import (
	"errors"
	"fmt"
)

// FaultKind classifies why a fetch attempt produced no usable data.
type FaultKind string

const (
	KindNone      FaultKind = ""          // no fault
	KindEmpty     FaultKind = "empty"     // provider answered with no records
	KindTransport FaultKind = "transport" // timeout, connection failure, bad status, open breaker
	KindSchema    FaultKind = "schema"    // payload could not be decoded
	KindProvider  FaultKind = "provider"  // provider reported an error code
	KindStale     FaultKind = "stale"     // newest record too old
	KindExhausted FaultKind = "exhausted" // every provider returned nothing
)

var (
	ErrEmptyPage = errors.New("empty page")
	ErrSchema    = errors.New("unrecognized payload shape")
)

// FetchError is a classified provider fault.
type FetchError struct {
	Provider string
	Kind     FaultKind
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s fault: %v", e.Provider, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err with a provider and kind.
func NewFetchError(provider string, kind FaultKind, err error) *FetchError {
	return &FetchError{Provider: provider, Kind: kind, Err: err}
}

// KindOf extracts the fault kind of err. Unclassified errors count as transport faults.
func KindOf(err error) FaultKind {
	if err == nil {
		return KindNone
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, ErrSchema) {
		return KindSchema
	}
	return KindTransport
}
