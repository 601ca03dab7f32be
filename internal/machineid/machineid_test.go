package machineid

import "testing"

func TestHash(t *testing.T) {
	a := Hash("host-a")
	if len(a) != 32 {
		t.Fatalf("len = %d, want 32 hex chars", len(a))
	}
	if a != Hash("host-a") {
		t.Fatal("hash not stable")
	}
	if a == Hash("host-b") {
		t.Fatal("distinct inputs collide")
	}
}

func TestID(t *testing.T) {
	id, err := ID()
	if err != nil {
		t.Fatalf("ID() error = %v", err)
	}
	if id == "" {
		t.Fatal("empty id")
	}
}
