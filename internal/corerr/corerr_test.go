package corerr

import (
	"errors"
	"testing"
)

func TestIsMatchesDirectKind(t *testing.T) {
	err := New(OutOfRange, "line 5 out of range")
	if !Is(err, OutOfRange) {
		t.Fatalf("expected Is to match the error's own kind")
	}
	if Is(err, Encoding) {
		t.Fatalf("did not expect Is to match an unrelated kind")
	}
}

func TestIsMatchesThroughWrap(t *testing.T) {
	inner := errors.New("disk full")
	wrapped := Wrap(Encoding, inner, "writing document")
	if !Is(wrapped, Encoding) {
		t.Fatalf("expected Is to match through Wrap")
	}
}

func TestWrapOfNilIsNil(t *testing.T) {
	if err := Wrap(InvalidState, nil, "no-op"); err != nil {
		t.Fatalf("Wrap(nil) = %v, want nil", err)
	}
}

func TestNewfFormatsMessage(t *testing.T) {
	err := Newf(OutOfRange, "line %d out of range (last=%d)", 5, 2)
	want := "out of range: line 5 out of range (last=2)"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestKindStringNames(t *testing.T) {
	cases := map[Kind]string{
		OutOfRange:     "out of range",
		InvalidState:   "invalid state",
		Encoding:       "encoding",
		Listener:       "listener",
		CoreCorruption: "core corruption",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Fatalf("%v.String() = %q, want %q", kind, got, want)
		}
	}
}
