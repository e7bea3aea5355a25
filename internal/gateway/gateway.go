// Package gateway holds the contract shared by every inference backend
// implementation: the error taxonomy and the fixed behavioral instructions
// the backend is prompted with.
package gateway

import "fmt"

// ErrorKind classifies gateway failures.
type ErrorKind string

const (
	// KindTransport covers network, credential and availability failures
	// reaching the backend.
	KindTransport ErrorKind = "TRANSPORT"
	// KindProtocol means the backend was reachable but its reply violated
	// the structured-output contract.
	KindProtocol ErrorKind = "PROTOCOL"
)

// Error is the failure type returned by backend gateways.
type Error struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("gateway: %s (%s)", e.Kind, e.Reason)
	}
	return fmt.Sprintf("gateway: %s (%s): %v", e.Kind, e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transport wraps a failure to reach the backend.
func Transport(reason string, err error) *Error {
	return &Error{Kind: KindTransport, Reason: reason, Err: err}
}

// Protocol wraps a backend reply that failed the output contract.
func Protocol(reason string, err error) *Error {
	return &Error{Kind: KindProtocol, Reason: reason, Err: err}
}
