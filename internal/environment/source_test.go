package environment

import (
	"testing"

	"github.com/amaydixit11/deltacrdt/internal/core"
)

func newTimestamp(cnt int64, rid string) core.Timestamp {
	return core.Timestamp{Counter: cnt, Replica: core.ReplicaID(rid)}
}

func TestClockNextIsStrictlyIncreasing(t *testing.T) {
	c := NewClock("a", 0)
	prev := c.Next()
	for i := 0; i < 5; i++ {
		next := c.Next()
		if next.Counter <= prev.Counter {
			t.Fatalf("expected strictly increasing counters, got %d then %d", prev.Counter, next.Counter)
		}
		prev = next
	}
}

func TestClockObserveIgnoresOtherReplicas(t *testing.T) {
	c := NewClock("a", 0)
	c.Observe(newTimestamp(100, "b"))
	if got := c.Next().Counter; got != 1 {
		t.Errorf("observing a foreign replica's timestamp must not advance this clock, got %d", got)
	}
}

func TestClockObserveAdvancesOwnReplica(t *testing.T) {
	c := NewClock("a", 0)
	c.Observe(newTimestamp(41, "a"))
	if got := c.Next().Counter; got != 42 {
		t.Errorf("expected counter to resume after the observed value, got %d", got)
	}
}

func TestDeriveReplicaIDIsDeterministic(t *testing.T) {
	salt := []byte("fixed-salt-for-test")
	a := DeriveReplicaID([]byte("correct horse battery staple"), salt)
	b := DeriveReplicaID([]byte("correct horse battery staple"), salt)
	if a != b {
		t.Error("expected the same passphrase and salt to derive the same replica id")
	}

	c := DeriveReplicaID([]byte("a different passphrase"), salt)
	if a == c {
		t.Error("expected different passphrases to derive different replica ids")
	}
}
