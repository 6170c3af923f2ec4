package services

import (
	"errors"
	"testing"
)

func TestBusyGuard_RejectsReentry(t *testing.T) {
	g := NewBusyGuard()

	release, err := g.TryAcquire(OpSave)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if !g.Busy(OpSave) {
		t.Fatal("save should be busy")
	}
	if _, err := g.TryAcquire(OpSave); !errors.Is(err, ErrBusy) {
		t.Fatalf("second acquire = %v, want ErrBusy", err)
	}

	// Other kinds are independent.
	releaseDelete, err := g.TryAcquire(OpDelete)
	if err != nil {
		t.Fatalf("delete acquire while saving: %v", err)
	}
	releaseDelete()

	release()
	release()
	if g.Busy(OpSave) {
		t.Fatal("save should be free after release")
	}
	if _, err := g.TryAcquire(OpSave); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestBusyGuard_StaleReleaseDoesNotFreeNewHolder(t *testing.T) {
	g := NewBusyGuard()
	first, _ := g.TryAcquire(OpToggle)
	first()
	second, err := g.TryAcquire(OpToggle)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer second()

	first()
	if !g.Busy(OpToggle) {
		t.Fatal("a repeated release of an old holder freed the new one")
	}
}
