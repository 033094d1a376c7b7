package convert

import (
	"fmt"
	"reflect"
	"testing"
)

// TestLogRingKeepsMostRecentLines checks oldest-first eviction.
func TestLogRingKeepsMostRecentLines(t *testing.T) {
	ring := NewLogRing(3)
	for i := 1; i <= 5; i++ {
		ring.Push(fmt.Sprintf("line-%d", i))
	}

	got := ring.Lines()
	want := []string{"line-3", "line-4", "line-5"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("lines = %v, want %v", got, want)
	}
}

// TestLogRingUnderCapacity checks order before the ring wraps.
func TestLogRingUnderCapacity(t *testing.T) {
	ring := NewLogRing(10)
	ring.Push("a")
	ring.Push("b")

	got := ring.Lines()
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("lines = %v", got)
	}
}
