package services

import (
	"errors"
	"fmt"
	"sync"
)

// Operation is a kind of mutating request guarded against re-entry.
type Operation string

const (
	OpSave   Operation = "save"
	OpDelete Operation = "delete"
	OpClear  Operation = "clear"
	OpToggle Operation = "toggle"
)

// ErrBusy is returned when an operation of the same kind is still in flight.
var ErrBusy = errors.New("operation already in progress")

// BusyGuard allows at most one in-flight operation per kind. A second
// trigger of the same kind is rejected rather than queued.
type BusyGuard struct {
	mu   sync.Mutex
	busy map[Operation]bool
}

func NewBusyGuard() *BusyGuard {
	return &BusyGuard{busy: make(map[Operation]bool)}
}

// TryAcquire marks op as busy. The returned release must be called once the
// operation finishes, whether it succeeded or not; extra calls are no-ops.
func (g *BusyGuard) TryAcquire(op Operation) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy[op] {
		return nil, fmt.Errorf("%s: %w", op, ErrBusy)
	}
	g.busy[op] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, op)
			g.mu.Unlock()
		})
	}, nil
}

// Busy reports whether an operation of the given kind is in flight.
func (g *BusyGuard) Busy(op Operation) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy[op]
}
