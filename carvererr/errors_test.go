package carvererr

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
)

func TestKindOfAndIs(t *testing.T) {
	cause := errors.New("connection refused")
	err := Store(cause, "loading block %d", 7)

	kind, ok := KindOf(err)
	if !ok || kind != KindStore {
		t.Fatalf("KindOf = (%v, %v), want (%v, true)", kind, ok, KindStore)
	}
	if !Is(err, KindStore) {
		t.Fatalf("Is(err, KindStore) = false, want true")
	}
	if Is(err, KindRPC) {
		t.Fatalf("Is(err, KindRPC) = true, want false")
	}
}

func TestKindOfUnwrapped(t *testing.T) {
	_, ok := KindOf(errors.New("plain error"))
	if ok {
		t.Fatalf("KindOf on a plain error returned ok=true")
	}
}

func TestUnwrapAndCause(t *testing.T) {
	cause := errors.New("timeout")
	err := RPC(cause, "fetching height %d", 12)

	ce, ok := err.(*carverError)
	if !ok {
		t.Fatalf("RPC did not return *carverError")
	}
	if ce.Unwrap() != cause {
		t.Fatalf("Unwrap() = %v, want %v", ce.Unwrap(), cause)
	}
	if ce.Cause() != cause {
		t.Fatalf("Cause() = %v, want %v", ce.Cause(), cause)
	}
	if !pkgerrors.Is(err, cause) {
		t.Fatalf("pkg/errors.Is did not see through the wrapped cause")
	}
}

func TestFatal(t *testing.T) {
	cases := []struct {
		kind  Kind
		fatal bool
	}{
		{KindRPC, false},
		{KindStore, false},
		{KindReconciliation, true},
		{KindUnreconciliation, true},
		{KindDecode, true},
	}
	for _, c := range cases {
		if got := c.kind.Fatal(); got != c.fatal {
			t.Errorf("%s.Fatal() = %v, want %v", c.kind, got, c.fatal)
		}
	}
}

func TestReconciliationAndUnreconciliationCarryNoCause(t *testing.T) {
	err := Reconciliation("address %q already at sequence %d", "tx:abc", 5)
	if !Is(err, KindReconciliation) {
		t.Fatalf("expected KindReconciliation")
	}
	ce := err.(*carverError)
	if ce.cause != nil {
		t.Fatalf("Reconciliation error unexpectedly carries a cause: %v", ce.cause)
	}

	err = Unreconciliation("address %q ahead of movement %d", "tx:abc", 5)
	if !Is(err, KindUnreconciliation) {
		t.Fatalf("expected KindUnreconciliation")
	}
}

func TestErrorStringIncludesKindAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := Decode(cause, "unmarshaling %s", "reply")
	want := "DecodeError: unmarshaling reply: boom"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
