package importer

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide whether it is fatal for the
// run or should be folded into statistics.
type Kind int

const (
	KindOther Kind = iota
	KindNetwork
	KindRateLimit
	KindHTTPStatus
	KindMissingAPIKey
	KindTileServer
	KindInvalidRecord
	KindDecode
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindRateLimit:
		return "rate-limit"
	case KindHTTPStatus:
		return "http-status"
	case KindMissingAPIKey:
		return "missing-api-key"
	case KindTileServer:
		return "tile-server"
	case KindInvalidRecord:
		return "invalid-record"
	case KindDecode:
		return "decode"
	case KindIO:
		return "io"
	default:
		return "other"
	}
}

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// E builds a classified error.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first classified error in err's chain,
// or KindOther when err carries no classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
