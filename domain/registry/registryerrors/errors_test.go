package registryerrors

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestRuleErrorMatching(t *testing.T) {
	wrapped := errors.Wrapf(ErrDomainTooLong, "domain is %d bytes", 300)

	if !errors.Is(wrapped, ErrDomainTooLong) {
		t.Fatalf("TestRuleErrorMatching: wrapped error does not match " +
			"its sentinel")
	}
	if errors.Is(wrapped, ErrValueTooLong) {
		t.Fatalf("TestRuleErrorMatching: wrapped error unexpectedly " +
			"matches an unrelated sentinel")
	}

	ruleError := &RuleError{}
	if !errors.As(wrapped, ruleError) {
		t.Fatalf("TestRuleErrorMatching: wrapped error is not a RuleError")
	}
	if ruleError.message != "ErrDomainTooLong" {
		t.Fatalf("TestRuleErrorMatching: wrong message. Want: %s, got: %s",
			"ErrDomainTooLong", ruleError.message)
	}

	if !strings.Contains(wrapped.Error(), "300") {
		t.Fatalf("TestRuleErrorMatching: wrapping context missing from "+
			"the error string: %s", wrapped)
	}
}

func TestIsTemporal(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		isTemporal bool
	}{
		{"immature registration", errors.Wrap(ErrRegistrationNotMature, "too early"), true},
		{"unexpired domain", errors.Wrap(ErrDomainNotExpired, "still live"), true},
		{"structural violation", errors.Wrap(ErrCommitmentMismatch, "bad hash"), false},
		{"state error", NewStateError("missing record"), false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, test := range tests {
		if got := IsTemporal(test.err); got != test.isTemporal {
			t.Fatalf("TestIsTemporal: %s: expected %t, got %t",
				test.name, test.isTemporal, got)
		}
	}
}

func TestStateError(t *testing.T) {
	err := NewStateError("domain '%s' not found in the store", "d/example")

	stateError := &StateError{}
	if !errors.As(err, stateError) {
		t.Fatalf("TestStateError: error is not a StateError")
	}
	if stateError.message != "domain 'd/example' not found in the store" {
		t.Fatalf("TestStateError: wrong message: %s", stateError.message)
	}

	if errors.As(err, &RuleError{}) {
		t.Fatalf("TestStateError: StateError unexpectedly matches RuleError")
	}

	// The stack trace of the NewStateError caller is attached
	if _, ok := errors.Cause(err).(StateError); !ok {
		t.Fatalf("TestStateError: cause is not the bare StateError")
	}
}
