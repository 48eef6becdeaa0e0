// Package x holds the handful of invariant-checking helpers shared by
// rowstore and its drivers, in the style of the teacher's own x package.
package x

import "fmt"

// AssertTrue panics if b is false. Reserved for broken invariants
// (corrupted pointer graphs, double-published arrays) — never used for
// expected control flow like restart or write-conflict.
func AssertTrue(b bool) {
	if !b {
		panic("x: assertion failed")
	}
}

// AssertTruef is AssertTrue with a formatted message.
func AssertTruef(b bool, format string, args ...interface{}) {
	if !b {
		panic(fmt.Sprintf("x: assertion failed: "+format, args...))
	}
}
