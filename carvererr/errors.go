// Package carvererr defines the typed error kinds produced by the carver
// movement engine. Each kind carries a distinct recovery story for
// sync.Coordinator: some are retried simply by exiting clean and letting
// the next invocation re-try the un-committed block, others are fatal.
package carvererr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies which of the engine's error categories an error belongs
// to.
type Kind int

// The closed set of error kinds produced anywhere in the carver engine.
const (
	// KindRPC covers network/timeout/node-reported RPC failures. Retried
	// on next invocation: the current block is simply not committed.
	KindRPC Kind = iota

	// KindStore covers store connection loss or write failure. Same
	// retry semantics as KindRPC; recovery depends on the startup
	// cleanup pass.
	KindStore

	// KindReconciliation is raised when SequenceApplier detects a
	// sequence violation on apply. Fatal: indicates a builder ordering
	// bug, never a transient condition.
	KindReconciliation

	// KindUnreconciliation is raised when Unwinder detects a forward
	// write against an older sequence during unwind. Fatal: indicates a
	// corrupted log.
	KindUnreconciliation

	// KindDecode covers malformed RPC responses. Fatal for the block in
	// progress.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindRPC:
		return "RpcError"
	case KindStore:
		return "StoreError"
	case KindReconciliation:
		return "ReconciliationError"
	case KindUnreconciliation:
		return "UnreconciliationError"
	case KindDecode:
		return "DecodeError"
	default:
		return "UnknownError"
	}
}

// Fatal reports whether an error of this kind should halt the engine
// entirely rather than being left for the next invocation to retry.
func (k Kind) Fatal() bool {
	return k == KindReconciliation || k == KindUnreconciliation || k == KindDecode
}

// carverError wraps a cause with a Kind and a formatted message. It
// implements Unwrap (stdlib errors.Is/As) and Cause (github.com/pkg/errors
// convention) so both error-handling idioms work against it.
type carverError struct {
	kind  Kind
	msg   string
	cause error
}

func (e *carverError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.kind, e.msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.kind, e.msg, e.cause)
}

func (e *carverError) Unwrap() error { return e.cause }
func (e *carverError) Cause() error  { return e.cause }

// KindOf returns the error kind of err, walking the cause chain if
// necessary. The zero Kind (KindRPC) is returned alongside ok=false when
// err does not carry a carverError anywhere in its chain.
func KindOf(err error) (Kind, bool) {
	var ce *carverError
	if errors.As(err, &ce) {
		return ce.kind, true
	}
	return 0, false
}

// Is reports whether err (or something it wraps) is a carvererr of the
// given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func newf(kind Kind, cause error, format string, args ...interface{}) error {
	return &carverError{kind: kind, msg: fmt.Sprintf(format, args...), cause: cause}
}

// RPC wraps cause as a KindRPC error.
func RPC(cause error, format string, args ...interface{}) error {
	return newf(KindRPC, cause, format, args...)
}

// Store wraps cause as a KindStore error.
func Store(cause error, format string, args ...interface{}) error {
	return newf(KindStore, cause, format, args...)
}

// Reconciliation builds a KindReconciliation error. It never wraps a
// cause: it is raised directly by the applier when it detects an
// out-of-order sequence.
func Reconciliation(format string, args ...interface{}) error {
	return newf(KindReconciliation, nil, format, args...)
}

// Unreconciliation builds a KindUnreconciliation error, raised directly by
// the unwinder when it detects a forward write against an older sequence.
func Unreconciliation(format string, args ...interface{}) error {
	return newf(KindUnreconciliation, nil, format, args...)
}

// Decode wraps cause as a KindDecode error.
func Decode(cause error, format string, args ...interface{}) error {
	return newf(KindDecode, cause, format, args...)
}
