package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"billiard/internal/core"
	"billiard/internal/ledger"
	"billiard/internal/metrics"
)

// ReconcilerConfig holds configuration for the export reconciler
type ReconcilerConfig struct {
	// Interval is how often the sheet is compared to the store (default: 10m)
	Interval time.Duration

	// BatchSize is the max number of sessions exported per pass (default: 20)
	BatchSize int
}

// DefaultReconcilerConfig returns sensible defaults
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		Interval:  10 * time.Minute,
		BatchSize: 20,
	}
}

// ReconcileResult reports what one pass changed in the sheet.
type ReconcileResult struct {
	Exported int
	Removed  int
	Repaired int
	Pending  int
}

// ExportReconciler repairs drift between the store and the spreadsheet
// left behind by lost or failed events.
type ExportReconciler struct {
	store    ledger.SessionLister
	exporter ledger.Exporter
	config   ReconcilerConfig

	// Lifecycle management
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	stopOnce *sync.Once
	doneCh   chan struct{}
}

func NewExportReconciler(store ledger.SessionLister, exporter ledger.Exporter, config ReconcilerConfig) *ExportReconciler {
	if config.Interval <= 0 {
		config.Interval = DefaultReconcilerConfig().Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultReconcilerConfig().BatchSize
	}
	return &ExportReconciler{
		store:    store,
		exporter: exporter,
		config:   config,
	}
}

// Start begins the reconcile loop. Returns an error if already running.
func (r *ExportReconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("export reconciler is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.stopOnce = &sync.Once{}
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	slog.InfoContext(ctx, "Export reconciler started",
		"interval", r.config.Interval,
		"batch_size", r.config.BatchSize)

	return nil
}

// Stop gracefully stops the reconciler and waits for the current pass.
func (r *ExportReconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, stopOnce, doneCh := r.stopCh, r.stopOnce, r.doneCh
	r.mu.Unlock()

	// A previous Stop may have timed out after closing stopCh.
	stopOnce.Do(func() { close(stopCh) })

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Export reconciler stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export reconciler stop timed out")
		return ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	return nil
}

func (r *ExportReconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *ExportReconciler) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	// Reconcile immediately on startup
	r.pass(ctx)

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pass(ctx)
		}
	}
}

func (r *ExportReconciler) pass(ctx context.Context) {
	res, err := r.Reconcile(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Export reconcile failed", "error", err)
		return
	}
	if res.Exported > 0 || res.Removed > 0 || res.Repaired > 0 {
		slog.InfoContext(ctx, "Export reconcile pass finished",
			"exported", res.Exported,
			"removed", res.Removed,
			"repaired", res.Repaired,
			"pending", res.Pending)
	}
}

// Reconcile exports up to BatchSize sessions missing from the sheet,
// removes sheet rows whose session no longer exists and rewrites paid cells
// that disagree with the store. Sessions left over are picked up by the
// next pass.
func (r *ExportReconciler) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult

	sessions, err := r.store.ListSessions(ctx)
	if err != nil {
		return res, fmt.Errorf("list sessions: %w", err)
	}
	exported, err := r.exporter.ExportedSessionIDs(ctx)
	if err != nil {
		return res, fmt.Errorf("list exported sessions: %w", err)
	}

	inSheet := make(map[string]bool, len(exported))
	for _, id := range exported {
		inSheet[id] = true
	}
	inStore := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		inStore[s.ID] = true
	}

	for _, id := range exported {
		if inStore[id] {
			continue
		}
		if err := r.stopping(ctx); err != nil {
			return res, err
		}
		err := r.exporter.RemoveSession(ctx, id)
		metrics.EventsExported.WithLabelValues("reconcile.remove", metrics.Result(err)).Inc()
		if err != nil {
			slog.WarnContext(ctx, "Failed to remove orphan sheet rows", "session_id", id, "error", err)
			continue
		}
		res.Removed++
	}

	if err := r.repairPaid(ctx, sessions, inSheet, &res); err != nil {
		return res, err
	}

	for _, s := range sessions {
		if inSheet[s.ID] {
			continue
		}
		if res.Exported >= r.config.BatchSize {
			res.Pending++
			continue
		}
		if err := r.stopping(ctx); err != nil {
			return res, err
		}
		err := r.exporter.ExportSession(ctx, s)
		metrics.EventsExported.WithLabelValues("reconcile.export", metrics.Result(err)).Inc()
		if err != nil {
			slog.WarnContext(ctx, "Failed to export session", "session_id", s.ID, "error", err)
			res.Pending++
			continue
		}
		res.Exported++
	}

	return res, nil
}

// repairPaid fixes paid cells left stale by lost share.paid events.
func (r *ExportReconciler) repairPaid(ctx context.Context, sessions []core.Session, inSheet map[string]bool, res *ReconcileResult) error {
	flags, err := r.exporter.ExportedPaid(ctx)
	if err != nil {
		return fmt.Errorf("list exported paid flags: %w", err)
	}

	for _, s := range sessions {
		if !inSheet[s.ID] {
			continue
		}
		for _, p := range s.Players {
			sheetPaid, ok := flags[ledger.ShareRef{SessionID: s.ID, ShareID: p.ID}]
			if !ok || sheetPaid == p.Paid {
				continue
			}
			if err := r.stopping(ctx); err != nil {
				return err
			}
			err := r.exporter.UpdatePaid(ctx, s.ID, p.ID, p.Paid)
			metrics.EventsExported.WithLabelValues("reconcile.paid", metrics.Result(err)).Inc()
			if err != nil {
				slog.WarnContext(ctx, "Failed to repair paid cell",
					"session_id", s.ID,
					"share_id", p.ID,
					"error", err)
				continue
			}
			res.Repaired++
		}
	}
	return nil
}

func (r *ExportReconciler) stopping(ctx context.Context) error {
	if r.stopCh != nil {
		select {
		case <-r.stopCh:
			return fmt.Errorf("export reconciler stopped")
		default:
		}
	}
	return ctx.Err()
}
