package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"billiard/internal/core"
	"billiard/internal/ledger"
	"billiard/internal/ledger/memory"
)

var _ ledger.Exporter = (*fakeExporter)(nil)

type fakeExporter struct {
	mu        sync.Mutex
	rows      map[string]bool
	paid      map[ledger.ShareRef]bool
	updates   int
	failOn    string
	exportErr error
	// block, when set, stalls ExportedSessionIDs until it is closed.
	block chan struct{}
}

func newFakeExporter(ids ...string) *fakeExporter {
	f := &fakeExporter{rows: make(map[string]bool), paid: make(map[ledger.ShareRef]bool)}
	for _, id := range ids {
		f.rows[id] = true
	}
	return f
}

func (f *fakeExporter) ExportSession(_ context.Context, s core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == f.failOn {
		return f.exportErr
	}
	f.rows[s.ID] = true
	for _, p := range s.Players {
		f.paid[ledger.ShareRef{SessionID: s.ID, ShareID: p.ID}] = p.Paid
	}
	return nil
}

func (f *fakeExporter) RemoveSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	for ref := range f.paid {
		if ref.SessionID == id {
			delete(f.paid, ref)
		}
	}
	return nil
}

func (f *fakeExporter) UpdatePaid(_ context.Context, sessionID, shareID string, paid bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.paid[ledger.ShareRef{SessionID: sessionID, ShareID: shareID}] = paid
	return nil
}

func (f *fakeExporter) ClearAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = make(map[string]bool)
	f.paid = make(map[ledger.ShareRef]bool)
	return nil
}

func (f *fakeExporter) ExportedSessionIDs(context.Context) ([]string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.rows))
	for id := range f.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeExporter) ExportedPaid(context.Context) (map[ledger.ShareRef]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[ledger.ShareRef]bool, len(f.paid))
	for ref, paid := range f.paid {
		out[ref] = paid
	}
	return out, nil
}

func seedStore(t *testing.T, n int) (*memory.Store, []core.Session) {
	t.Helper()
	store := memory.New()
	var out []core.Session
	for i := 0; i < n; i++ {
		s, err := core.NewSession(saveDraft("2024-03-09", 1000, core.PlayerInput{ID: 1, Name: "A", Hours: 1}))
		if err != nil {
			t.Fatalf("new session: %v", err)
		}
		saved, err := store.CreateSession(context.Background(), s)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		out = append(out, saved)
	}
	return store, out
}

func TestDefaultReconcilerConfig(t *testing.T) {
	config := DefaultReconcilerConfig()
	if config.Interval != 10*time.Minute {
		t.Errorf("expected Interval 10m, got %v", config.Interval)
	}
	if config.BatchSize != 20 {
		t.Errorf("expected BatchSize 20, got %d", config.BatchSize)
	}

	r := NewExportReconciler(nil, nil, ReconcilerConfig{})
	if r.config != config {
		t.Errorf("zero config should fall back to defaults, got %+v", r.config)
	}
}

func TestExportReconciler_ExportsMissingInBatches(t *testing.T) {
	ctx := context.Background()
	store, sessions := seedStore(t, 5)
	exp := newFakeExporter(sessions[0].ID, "orphan")

	r := NewExportReconciler(store, exp, ReconcilerConfig{Interval: time.Hour, BatchSize: 3})

	res, err := r.Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Exported != 3 || res.Removed != 1 || res.Pending != 1 {
		t.Fatalf("first pass = %+v", res)
	}

	res, err = r.Reconcile(ctx)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if res.Exported != 1 || res.Removed != 0 || res.Pending != 0 {
		t.Fatalf("second pass = %+v", res)
	}

	ids, _ := exp.ExportedSessionIDs(ctx)
	if len(ids) != 5 {
		t.Fatalf("sheet holds %d sessions, want 5", len(ids))
	}
}

func TestExportReconciler_FailedExportStaysPending(t *testing.T) {
	store, sessions := seedStore(t, 2)
	exp := newFakeExporter()
	exp.failOn = sessions[0].ID
	exp.exportErr = errors.New("quota exceeded")

	r := NewExportReconciler(store, exp, DefaultReconcilerConfig())
	res, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Exported != 1 || res.Pending != 1 {
		t.Fatalf("pass = %+v", res)
	}
}

func TestExportReconciler_Lifecycle(t *testing.T) {
	store, _ := seedStore(t, 1)
	exp := newFakeExporter()
	r := NewExportReconciler(store, exp, ReconcilerConfig{Interval: time.Hour, BatchSize: 10})

	if r.IsRunning() {
		t.Fatal("reconciler should not be running initially")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := r.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Start(ctx); err == nil {
		t.Error("expected error when starting already running reconciler")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if r.IsRunning() {
		t.Error("reconciler should not be running after stop")
	}
	if err := r.Stop(stopCtx); err != nil {
		t.Errorf("stopping a stopped reconciler should be a no-op, got %v", err)
	}
}

func TestExportReconciler_RepairsStalePaidCells(t *testing.T) {
	ctx := context.Background()
	store, sessions := seedStore(t, 2)
	exp := newFakeExporter()

	r := NewExportReconciler(store, exp, DefaultReconcilerConfig())
	if _, err := r.Reconcile(ctx); err != nil {
		t.Fatalf("initial reconcile: %v", err)
	}

	// The share.paid event for this toggle never reached the worker.
	share := sessions[1].Players[0]
	if err := store.SetPaid(ctx, sessions[1].ID, share.ID, true); err != nil {
		t.Fatalf("set paid: %v", err)
	}

	res, err := r.Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Repaired != 1 || res.Exported != 0 {
		t.Fatalf("pass = %+v, want one repaired share", res)
	}
	flags, _ := exp.ExportedPaid(ctx)
	if !flags[ledger.ShareRef{SessionID: sessions[1].ID, ShareID: share.ID}] {
		t.Fatalf("paid cell not repaired: %v", flags)
	}

	res, _ = r.Reconcile(ctx)
	if res.Repaired != 0 {
		t.Fatalf("in-sync sheet repaired again: %+v", res)
	}
	if exp.updates != 1 {
		t.Fatalf("UpdatePaid called %d times, want 1", exp.updates)
	}
}

func TestExportReconciler_StopAfterTimeout(t *testing.T) {
	store, _ := seedStore(t, 1)
	exp := newFakeExporter()
	exp.block = make(chan struct{})
	r := NewExportReconciler(store, exp, ReconcilerConfig{Interval: time.Hour, BatchSize: 10})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	expired, expire := context.WithCancel(context.Background())
	expire()
	if err := r.Stop(expired); !errors.Is(err, context.Canceled) {
		t.Fatalf("stop with a stalled pass = %v, want context.Canceled", err)
	}
	if err := r.Stop(expired); !errors.Is(err, context.Canceled) {
		t.Fatalf("second stop = %v, want context.Canceled", err)
	}

	close(exp.block)
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("stop after the pass finished: %v", err)
	}
	if r.IsRunning() {
		t.Error("reconciler should not be running after stop")
	}
}
