package x

import "testing"

func TestAssertTrue_PanicsOnFalse(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	AssertTrue(false)
}

func TestAssertTrue_NoPanicOnTrue(t *testing.T) {
	AssertTrue(true)
}

func TestAssertTruef_IncludesFormattedMessage(t *testing.T) {
	defer func() {
		msg, ok := recover().(string)
		if !ok || msg != "x: assertion failed: leaf 3 has no successor" {
			t.Fatalf("unexpected panic message: %v", msg)
		}
	}()
	AssertTruef(false, "leaf %d has no successor", 3)
}
