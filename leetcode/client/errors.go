package client

import (
	"errors"
	"fmt"

	"github.com/tnicklin/leetcode_tracker/models"
)

// Class classifies why a lookup failed.
type Class int

const (
	// TransportFailure covers connection errors and timeouts.
	TransportFailure Class = iota + 1
	// ProtocolFailure is a non-2xx response.
	ProtocolFailure
	// DecodeFailure is a body that is not a JSON object.
	DecodeFailure
)

var (
	ErrTransport = errors.New("transport failure")
	ErrProtocol  = errors.New("protocol failure")
	ErrDecode    = errors.New("decode failure")
)

func (c Class) String() string {
	switch c {
	case TransportFailure:
		return "transport"
	case ProtocolFailure:
		return "protocol"
	case DecodeFailure:
		return "decode"
	default:
		return "unknown"
	}
}

func (c Class) sentinel() error {
	switch c {
	case TransportFailure:
		return ErrTransport
	case ProtocolFailure:
		return ErrProtocol
	default:
		return ErrDecode
	}
}

// FetchError is returned by Fetch for every failed lookup.
type FetchError struct {
	Class      Class
	Kind       Kind
	Identity   models.Identity
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("leetcode: %s lookup for %q: %s: %v", e.Kind, e.Identity.String(), e.Class, e.Err)
}

// Unwrap exposes both the class sentinel and the underlying cause, so
// errors.Is(err, ErrTransport) and errors.Is(err, context.DeadlineExceeded)
// both work.
func (e *FetchError) Unwrap() []error {
	return []error{e.Class.sentinel(), e.Err}
}
