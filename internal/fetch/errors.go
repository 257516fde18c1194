package fetch

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind classifies why a fetch failed
type Kind int

const (
	// KindTransient is a network or 5xx failure that survived its retry
	KindTransient Kind = iota + 1
	// KindRequest is a non-404 4xx response; never retried
	KindRequest
	// KindDecode is a 2xx response whose body is not valid JSON
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRequest:
		return "request"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is returned by Fetch for every failure except context cancellation
type Error struct {
	Kind   Kind
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s failure (status %d): %v", e.URL, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s failure: %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a fetch Error of the given kind
func IsKind(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}
