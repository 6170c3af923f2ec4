package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"billiard/internal/amqp"
	"billiard/internal/ledger"
	"billiard/internal/metrics"
)

// ExportWorker mirrors session events from AMQP into the spreadsheet.
// Events only carry ids; the session itself is read from the store.
type ExportWorker struct {
	store    ledger.SessionGetter
	exporter ledger.Exporter
}

func NewExportWorker(store ledger.SessionGetter, exporter ledger.Exporter) *ExportWorker {
	return &ExportWorker{
		store:    store,
		exporter: exporter,
	}
}

// HandleEvent processes one session event. A returned error requeues the message.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *amqp.SessionEvent) error {
	slog.InfoContext(ctx, "Processing session event",
		"type", ev.Type,
		"session_id", ev.SessionID,
		"version", ev.Version)

	var err error
	switch ev.Type {
	case amqp.EventSessionCreated:
		err = w.exportSession(ctx, ev.SessionID)
	case amqp.EventSessionDeleted:
		err = w.exporter.RemoveSession(ctx, ev.SessionID)
	case amqp.EventSessionsCleared:
		err = w.exporter.ClearAll(ctx)
	case amqp.EventSharePaid:
		err = w.updatePaid(ctx, ev)
	default:
		// Unknown types cannot succeed on retry.
		slog.WarnContext(ctx, "Dropping event of unknown type", "type", ev.Type)
		return nil
	}

	metrics.EventsExported.WithLabelValues(string(ev.Type), metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("export %s event: %w", ev.Type, err)
	}
	return nil
}

func (w *ExportWorker) exportSession(ctx context.Context, id string) error {
	s, err := w.store.GetSession(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		// Deleted before we got to it; the delete event removes any rows.
		slog.InfoContext(ctx, "Session no longer exists, skipping export", "session_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get session %s: %w", id, err)
	}
	if err := w.exporter.ExportSession(ctx, s); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Exported session to spreadsheet",
		"session_id", s.ID,
		"date", s.Date.Key(),
		"players", len(s.Players))
	return nil
}

// updatePaid falls back to a full export when the session never reached the
// sheet; the exported rows then carry the current paid flags.
func (w *ExportWorker) updatePaid(ctx context.Context, ev *amqp.SessionEvent) error {
	err := w.exporter.UpdatePaid(ctx, ev.SessionID, ev.ShareID, ev.Paid)
	if errors.Is(err, ledger.ErrNotFound) {
		return w.exportSession(ctx, ev.SessionID)
	}
	return err
}
