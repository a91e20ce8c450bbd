package registryerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// These constants are used to identify a specific RuleError.
var (
	// ErrMultipleRegistryInputs indicates a transaction spends more than
	// one domain-operation output.
	ErrMultipleRegistryInputs = newRuleError("ErrMultipleRegistryInputs")

	// ErrMultipleRegistryOutputs indicates a transaction creates more than
	// one domain-operation output.
	ErrMultipleRegistryOutputs = newRuleError("ErrMultipleRegistryOutputs")

	// ErrUnmarkedTransaction indicates a transaction that does not carry
	// the registry version spends or creates a domain-operation output.
	ErrUnmarkedTransaction = newRuleError("ErrUnmarkedTransaction")

	// ErrNoRegistryOutput indicates a registry-versioned transaction has
	// no domain-operation output.
	ErrNoRegistryOutput = newRuleError("ErrNoRegistryOutput")

	// ErrLockedAmountTooLow indicates the domain-operation output locks
	// less than the minimum required amount.
	ErrLockedAmountTooLow = newRuleError("ErrLockedAmountTooLow")

	// ErrNewWithRegistryInput indicates a new-operation transaction also
	// spends a domain-operation output.
	ErrNewWithRegistryInput = newRuleError("ErrNewWithRegistryInput")

	// ErrBadCommitmentHash indicates a new operation whose commitment
	// hash is not exactly 20 bytes.
	ErrBadCommitmentHash = newRuleError("ErrBadCommitmentHash")

	// ErrMissingRegistryInput indicates an update or first-update that
	// does not spend a domain-operation output.
	ErrMissingRegistryInput = newRuleError("ErrMissingRegistryInput")

	// ErrDomainTooLong indicates a domain name longer than the maximum
	// allowed length.
	ErrDomainTooLong = newRuleError("ErrDomainTooLong")

	// ErrValueTooLong indicates a domain value longer than the maximum
	// allowed length.
	ErrValueTooLong = newRuleError("ErrValueTooLong")

	// ErrInputNotUpdate indicates an update whose spent domain output is
	// not itself an update-type operation.
	ErrInputNotUpdate = newRuleError("ErrInputNotUpdate")

	// ErrDomainMismatch indicates an update whose input and output name
	// different domains.
	ErrDomainMismatch = newRuleError("ErrDomainMismatch")

	// ErrDomainExpired indicates an update on a domain whose record has
	// already expired.
	ErrDomainExpired = newRuleError("ErrDomainExpired")

	// ErrInputNotNew indicates a first-update whose spent domain output
	// is not a new operation.
	ErrInputNotNew = newRuleError("ErrInputNotNew")

	// ErrRegistrationNotMature indicates a first-update that spends a new
	// operation before it has the required confirmation depth. The
	// transaction may become valid once the chain grows.
	ErrRegistrationNotMature = newRuleError("ErrRegistrationNotMature")

	// ErrRandTooLong indicates a first-update salt longer than the
	// maximum allowed length.
	ErrRandTooLong = newRuleError("ErrRandTooLong")

	// ErrCommitmentMismatch indicates a first-update whose salt and
	// domain do not hash to the value committed by the spent new
	// operation.
	ErrCommitmentMismatch = newRuleError("ErrCommitmentMismatch")

	// ErrDomainNotExpired indicates a first-update on a domain that still
	// has a live record. The transaction may become valid once that
	// record expires.
	ErrDomainNotExpired = newRuleError("ErrDomainNotExpired")
)

// temporalErrors are the rule violations that depend only on the current
// height. A transaction rejected with one of these is invalid now but may
// become valid on a later block.
var temporalErrors = []RuleError{
	ErrRegistrationNotMature,
	ErrDomainNotExpired,
}

// IsTemporal reports whether err is a rule violation that may resolve
// itself as the chain grows. The mempool uses this to decide between
// dropping a transaction outright and re-checking it on future blocks.
func IsTemporal(err error) bool {
	for _, temporal := range temporalErrors {
		if errors.Is(err, temporal) {
			return true
		}
	}
	return false
}

// RuleError identifies a rule violation. It is used to indicate that
// processing of a transaction failed due to one of the registry validation
// rules. The caller can use type assertions to determine if a failure was
// specifically due to a rule violation.
type RuleError struct {
	message string
	inner   error
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	if e.inner != nil {
		return e.message + ": " + e.inner.Error()
	}
	return e.message
}

// Unwrap satisfies the errors.Unwrap interface
func (e RuleError) Unwrap() error {
	return e.inner
}

// Cause satisfies the github.com/pkg/errors.Cause interface
func (e RuleError) Cause() error {
	return e.inner
}

func newRuleError(message string) RuleError {
	return RuleError{message: message, inner: nil}
}

// StateError identifies an inconsistency between the domain registry and
// the state the rules guarantee, such as an indexed domain that is missing
// from the store or an owning coin that does not carry an update-type
// script. It indicates database corruption rather than an invalid
// transaction, so callers must halt further block processing instead of
// rejecting the offending object and carrying on.
type StateError struct {
	message string
}

// Error satisfies the error interface and prints human-readable errors.
func (e StateError) Error() string {
	return e.message
}

// NewStateError creates a new StateError with the stack trace of the
// caller attached.
func NewStateError(format string, args ...interface{}) error {
	return errors.WithStack(StateError{message: fmt.Sprintf(format, args...)})
}
