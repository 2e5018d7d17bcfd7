package httpfetch

import "fmt"

// Kind classifies a fetch failure. The kind decides retry behavior:
// timeouts, transport failures, and 5xx server errors are transient and
// retried; 4xx server errors and undecodable responses are not.
type Kind int

const (
	// KindTimeout: the request exceeded its per-attempt timeout.
	KindTimeout Kind = iota
	// KindTransport: the request never produced an HTTP response
	// (DNS failure, connection refused, reset, and so on).
	KindTransport
	// KindServer: the server answered with a non-2xx status.
	KindServer
	// KindInvalidResponse: the server answered 2xx but the body could not
	// be decoded into the expected shape.
	KindInvalidResponse
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport error"
	case KindServer:
		return "server error"
	case KindInvalidResponse:
		return "invalid response"
	default:
		return "unknown"
	}
}

// Error is a classified fetch failure. Status is set only for KindServer.
type Error struct {
	Kind   Kind
	Status int
	URL    string
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == KindServer {
		return fmt.Sprintf("GET %s: %s (status %d)", e.URL, e.Kind, e.Status)
	}
	return fmt.Sprintf("GET %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could plausibly succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindTransport:
		return true
	case KindServer:
		return e.Status >= 500
	default:
		return false
	}
}
