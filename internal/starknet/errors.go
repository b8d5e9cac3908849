package starknet

import (
	"errors"
	"fmt"
)

// ErrNotAuthorized is returned by Invoke when no signing capability is
// supplied. State-changing calls always require a signer.
var ErrNotAuthorized = errors.New("invoke requires a signer")

// ErrorKind classifies an RPC failure.
type ErrorKind string

const (
	// ErrKindUnreachable covers transport failures and timeouts.
	ErrKindUnreachable ErrorKind = "unreachable"
	// ErrKindProtocol covers non-200 responses and malformed envelopes.
	ErrKindProtocol ErrorKind = "protocol"
	// ErrKindApplication covers error objects returned by the node,
	// e.g. reverted execution.
	ErrKindApplication ErrorKind = "application"
)

// RPCError is a classified RPC failure.
type RPCError struct {
	Kind    ErrorKind
	Code    int // node error code, application errors only
	Message string
	cause   error
}

func (e *RPCError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("starknet rpc (%s) %d: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("starknet rpc (%s): %s", e.Kind, e.Message)
}

func (e *RPCError) Unwrap() error { return e.cause }

// IsUnreachable reports whether err is a transport-level RPC failure.
func IsUnreachable(err error) bool { return isKind(err, ErrKindUnreachable) }

// IsProtocol reports whether err is a malformed-envelope RPC failure.
func IsProtocol(err error) bool { return isKind(err, ErrKindProtocol) }

// IsApplication reports whether err is a node-reported execution failure.
func IsApplication(err error) bool { return isKind(err, ErrKindApplication) }

func isKind(err error, kind ErrorKind) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Kind == kind
}
