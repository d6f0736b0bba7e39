package portal

import (
	"errors"
	"fmt"
)

// Sentinel kinds carried by ProtocolError.
var (
	ErrHandshakeFailed   = errors.New("handshake failed")
	ErrMissingToken      = errors.New("missing token")
	ErrHTTPStatus        = errors.New("unexpected HTTP status")
	ErrMalformedResponse = errors.New("malformed response")
)

// ProtocolError reports a portal response that the protocol does not allow:
// a non-2xx status or a JSON envelope that is missing or undecodable.
type ProtocolError struct {
	Action     string // portal action, e.g. "get_all_channels"
	StatusCode int    // 0 when the status was fine but the body was not
	Kind       error  // one of the Err* sentinels above
	Detail     string
}

func (e *ProtocolError) Error() string {
	msg := e.Kind.Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return fmt.Sprintf("portal %s: %s", e.Action, msg)
}

func (e *ProtocolError) Unwrap() error { return e.Kind }

// TransportError wraps a network-level failure reaching the portal.
type TransportError struct {
	Action string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("portal %s: transport: %v", e.Action, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsHTTPStatus reports whether err is a ProtocolError caused by a non-2xx
// response. Pagination treats these as end-of-data.
func IsHTTPStatus(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe) && pe.StatusCode != 0
}
