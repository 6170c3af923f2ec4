package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"billiard/internal/amqp"
	"billiard/internal/core"
	"billiard/internal/ledger"
	"billiard/internal/ledger/memory"
)

type recordingExporter struct {
	calls     []string
	paidErr   error
	exportErr error
}

func (r *recordingExporter) ExportSession(_ context.Context, s core.Session) error {
	r.calls = append(r.calls, "export:"+s.ID)
	return r.exportErr
}

func (r *recordingExporter) RemoveSession(_ context.Context, id string) error {
	r.calls = append(r.calls, "remove:"+id)
	return nil
}

func (r *recordingExporter) UpdatePaid(_ context.Context, sessionID, shareID string, paid bool) error {
	r.calls = append(r.calls, fmt.Sprintf("paid:%s/%s=%v", sessionID, shareID, paid))
	return r.paidErr
}

func (r *recordingExporter) ClearAll(context.Context) error {
	r.calls = append(r.calls, "clear")
	return nil
}

func (r *recordingExporter) ExportedSessionIDs(context.Context) ([]string, error) { return nil, nil }

func (r *recordingExporter) ExportedPaid(context.Context) (map[ledger.ShareRef]bool, error) {
	return nil, nil
}

func savedSession(t *testing.T, store *memory.Store) core.Session {
	t.Helper()
	s, err := core.NewSession(core.SessionDraft{
		Date:       core.NewDate(2024, 3, 9),
		TotalHours: 2,
		TotalCost:  50000,
		Players:    []core.PlayerInput{{ID: 1, Name: "Alex", Hours: 2}},
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	saved, err := store.CreateSession(context.Background(), s)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return saved
}

func TestExportWorker_HandleEvent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := savedSession(t, store)

	tests := []struct {
		name string
		ev   *amqp.SessionEvent
		want string
	}{
		{"created", amqp.NewSessionCreated(s.ID), "export:" + s.ID},
		{"deleted", amqp.NewSessionDeleted(s.ID), "remove:" + s.ID},
		{"cleared", amqp.NewSessionsCleared(), "clear"},
		{"paid", amqp.NewSharePaid(s.ID, s.Players[0].ID, true), fmt.Sprintf("paid:%s/%s=true", s.ID, s.Players[0].ID)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := &recordingExporter{}
			w := NewExportWorker(store, exp)
			if err := w.HandleEvent(ctx, tt.ev); err != nil {
				t.Fatalf("handle: %v", err)
			}
			if len(exp.calls) != 1 || exp.calls[0] != tt.want {
				t.Fatalf("calls = %v, want [%s]", exp.calls, tt.want)
			}
		})
	}
}

func TestExportWorker_CreatedForMissingSessionIsAcked(t *testing.T) {
	exp := &recordingExporter{}
	w := NewExportWorker(memory.New(), exp)

	if err := w.HandleEvent(context.Background(), amqp.NewSessionCreated("gone")); err != nil {
		t.Fatalf("missing session should not requeue: %v", err)
	}
	if len(exp.calls) != 0 {
		t.Fatalf("nothing should be exported, got %v", exp.calls)
	}
}

func TestExportWorker_PaidFallsBackToExport(t *testing.T) {
	store := memory.New()
	s := savedSession(t, store)
	exp := &recordingExporter{paidErr: fmt.Errorf("row: %w", ledger.ErrNotFound)}
	w := NewExportWorker(store, exp)

	if err := w.HandleEvent(context.Background(), amqp.NewSharePaid(s.ID, s.Players[0].ID, true)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(exp.calls) != 2 || exp.calls[1] != "export:"+s.ID {
		t.Fatalf("calls = %v", exp.calls)
	}
}

func TestExportWorker_ExporterErrorRequeues(t *testing.T) {
	store := memory.New()
	s := savedSession(t, store)
	boom := errors.New("quota exceeded")
	w := NewExportWorker(store, &recordingExporter{exportErr: boom})

	if err := w.HandleEvent(context.Background(), amqp.NewSessionCreated(s.ID)); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped exporter error", err)
	}
}
