package driver

import "testing"

func TestStateStringOrder(t *testing.T) {
	want := []string{"Init", "Loaded", "Linked", "PerFunctionLoop", "Extracted", "Optimised", "Written"}
	for i, name := range want {
		if got := State(i).String(); got != name {
			t.Errorf("State(%d).String() = %q, want %q", i, got, name)
		}
	}
}

func TestStateStringUnknown(t *testing.T) {
	if got := State(99).String(); got != "Unknown" {
		t.Fatalf("State(99).String() = %q, want Unknown", got)
	}
}
