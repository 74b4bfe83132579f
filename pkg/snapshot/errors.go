package snapshot

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrSpaceNotFound is returned by GetSpace when the API knows no such space.
var ErrSpaceNotFound = errors.New("space not found")

// Kind classifies gateway failures.
type Kind string

const (
	KindTransport  Kind = "transport"
	KindHTTPStatus Kind = "http_status"
	KindGraphQL    Kind = "graphql"
	KindDecode     Kind = "decode"
)

// Error is returned by every HTTPClient operation that fails.
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int
	Messages   []string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "snapshot %s: %s", e.Op, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " %d", e.StatusCode)
	}
	if len(e.Messages) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Messages, "; "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether err is worth another attempt: transport failures,
// rate limiting and server errors. API-reported errors and bad payloads are not.
func IsRetryable(err error) bool {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return false
	}
	switch gwErr.Kind {
	case KindTransport:
		return true
	case KindHTTPStatus:
		return gwErr.StatusCode == http.StatusTooManyRequests || gwErr.StatusCode >= 500
	default:
		return false
	}
}
