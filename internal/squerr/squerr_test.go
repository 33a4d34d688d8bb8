package squerr

import (
	"errors"
	"testing"
)

func TestErrorMessageWithoutCause(t *testing.T) {
	err := New(MissingFunction, "add")
	want := "MissingFunction: add"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestErrorMessageWithCause(t *testing.T) {
	cause := errors.New("no such file")
	err := Wrap(MissingRuntime, "wasm_runtime.bc", cause)
	want := "MissingRuntime: wasm_runtime.bc: no such file"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err.Unwrap(), cause) {
		t.Fatalf("Unwrap() did not return the wrapped cause")
	}
}

func TestErrorAsRecoversKind(t *testing.T) {
	var wrapped error = Wrap(BadPattern, "[", errors.New("bad regex"))

	var target *Error
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As failed to recover *squerr.Error")
	}
	if target.Kind != BadPattern {
		t.Fatalf("Kind = %v, want %v", target.Kind, BadPattern)
	}
}

func TestKindStringKnownAndUnknown(t *testing.T) {
	cases := []struct {
		kind Kind
		want string
	}{
		{ParseError, "ParseError"},
		{MissingRuntime, "MissingRuntime"},
		{MissingFunction, "MissingFunction"},
		{MissingStructType, "MissingStructType"},
		{MissingEnvSize, "MissingEnvSize"},
		{BadPattern, "BadPattern"},
		{NotWasm2C, "NotWasm2C"},
		{Kind(99), "Unknown"},
	}
	for _, c := range cases {
		if got := c.kind.String(); got != c.want {
			t.Errorf("Kind(%d).String() = %q, want %q", c.kind, got, c.want)
		}
	}
}
