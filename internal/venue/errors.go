package venue

import (
	"errors"
	"fmt"
)

// Kind classifies a venue error for propagation policy
type Kind int

const (
	KindInternal Kind = iota
	KindTransientNetwork
	KindProtocolDecode
	KindProtocolNack
	KindSymbolDiscovery
	KindConfig
)

// String returns the metrics-friendly name of the kind
func (k Kind) String() string {
	switch k {
	case KindTransientNetwork:
		return "transient_network"
	case KindProtocolDecode:
		return "protocol_decode"
	case KindProtocolNack:
		return "protocol_nack"
	case KindSymbolDiscovery:
		return "symbol_discovery"
	case KindConfig:
		return "config"
	default:
		return "internal"
	}
}

// Error is a classified venue failure
type Error struct {
	Venue Venue
	Kind  Kind
	Err   error
}

// WrapError classifies an underlying error
func WrapError(v Venue, k Kind, err error) *Error {
	return &Error{Venue: v, Kind: k, Err: err}
}

// Errorf classifies a formatted error
func Errorf(v Venue, k Kind, format string, args ...interface{}) *Error {
	return &Error{Venue: v, Kind: k, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Venue, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the kind from an error chain, defaulting to KindInternal
func KindOf(err error) Kind {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return KindInternal
}
