package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"billiard/internal/amqp"
	"billiard/internal/cache"
	"billiard/internal/core"
	"billiard/internal/ledger"
	"billiard/internal/metrics"
)

// EventPublisher announces history changes. *amqp.Client implements it.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.SessionEvent) error
}

// SessionService orchestrates session operations across the ledger store,
// the summary cache and AMQP.
type SessionService struct {
	store     ledger.Store
	publisher EventPublisher
	summaries cache.Cache[core.MonthSummary]
	guard     *BusyGuard

	loads      singleflight.Group
	generation atomic.Uint64
	now        func() time.Time
}

// NewSessionService wires the service. publisher and summaries may be nil;
// pass a nil interface, not a typed nil pointer, when AMQP is disabled.
func NewSessionService(store ledger.Store, publisher EventPublisher, summaries cache.Cache[core.MonthSummary]) *SessionService {
	return &SessionService{
		store:     store,
		publisher: publisher,
		summaries: summaries,
		guard:     NewBusyGuard(),
		now:       time.Now,
	}
}

// Preview computes the live cost split without persisting anything.
func (s *SessionService) Preview(totalCost float64, players []core.PlayerInput) []core.Share {
	return core.Allocate(totalCost, players)
}

// Save validates the draft, persists the session and publishes a created event.
func (s *SessionService) Save(ctx context.Context, draft core.SessionDraft) (core.Session, error) {
	release, err := s.acquire(OpSave)
	if err != nil {
		return core.Session{}, err
	}
	defer release()

	session, err := core.NewSession(draft)
	if err != nil {
		metrics.SessionOperations.WithLabelValues(string(OpSave), metrics.ResultRejected).Inc()
		return core.Session{}, err
	}

	saved, err := s.store.CreateSession(ctx, session)
	metrics.SessionOperations.WithLabelValues(string(OpSave), metrics.Result(err)).Inc()
	if err != nil {
		return core.Session{}, fmt.Errorf("save session: %w", err)
	}
	metrics.SessionCostTotal.Add(saved.TotalCost)

	s.invalidate(saved.Date.MonthKey())
	s.publish(ctx, amqp.NewSessionCreated(saved.ID))

	return saved, nil
}

// Delete removes one session and its shares.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	release, err := s.acquire(OpDelete)
	if err != nil {
		return err
	}
	defer release()

	err = s.store.DeleteSession(ctx, id)
	metrics.SessionOperations.WithLabelValues(string(OpDelete), metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.invalidateAll()
	s.publish(ctx, amqp.NewSessionDeleted(id))
	return nil
}

// Clear deletes the whole history. Clearing an empty history is a no-op.
func (s *SessionService) Clear(ctx context.Context) (int64, error) {
	release, err := s.acquire(OpClear)
	if err != nil {
		return 0, err
	}
	defer release()

	n, err := s.store.DeleteAllSessions(ctx)
	metrics.SessionOperations.WithLabelValues(string(OpClear), metrics.Result(err)).Inc()
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	s.invalidateAll()
	s.publish(ctx, amqp.NewSessionsCleared())
	return n, nil
}

// TogglePaid persists the flipped paid flag of one share and returns it.
// Portion and amount are never touched.
func (s *SessionService) TogglePaid(ctx context.Context, sessionID, shareID string, currentPaid bool) (bool, error) {
	release, err := s.acquire(OpToggle)
	if err != nil {
		return currentPaid, err
	}
	defer release()

	next := core.NextPaid(currentPaid)
	err = s.store.SetPaid(ctx, sessionID, shareID, next)
	metrics.SessionOperations.WithLabelValues(string(OpToggle), metrics.Result(err)).Inc()
	if err != nil {
		return currentPaid, fmt.Errorf("toggle paid: %w", err)
	}

	s.invalidateAll()
	s.publish(ctx, amqp.NewSharePaid(sessionID, shareID, next))
	return next, nil
}

// History returns every session, sorted by date then creation time.
// Concurrent loads share one store query.
func (s *SessionService) History(ctx context.Context) ([]core.Session, error) {
	load, err := s.loadHistory(ctx)
	if err != nil {
		return nil, err
	}
	return load.sessions, nil
}

// historyLoad carries the generation observed when its query started.
type historyLoad struct {
	sessions   []core.Session
	generation uint64
}

func (s *SessionService) loadHistory(ctx context.Context) (historyLoad, error) {
	v, err, _ := s.loads.Do("history", func() (interface{}, error) {
		gen := s.generation.Load()
		sessions, err := s.store.ListSessions(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		return historyLoad{sessions: sessions, generation: gen}, nil
	})
	if err != nil {
		return historyLoad{}, fmt.Errorf("load history: %w", err)
	}
	return v.(historyLoad), nil
}

func (s *SessionService) GetSession(ctx context.Context, id string) (core.Session, error) {
	return s.store.GetSession(ctx, id)
}

// Day returns the sessions played on the given YYYY-MM-DD date.
func (s *SessionService) Day(ctx context.Context, date core.Date) ([]core.Session, error) {
	history, err := s.History(ctx)
	if err != nil {
		return nil, err
	}
	day := core.GroupByDate(history)[date.Key()]
	if day == nil {
		day = []core.Session{}
	}
	return day, nil
}

// MonthSummary aggregates one YYYY-MM month, served from cache when possible.
func (s *SessionService) MonthSummary(ctx context.Context, monthKey string) (core.MonthSummary, error) {
	if _, err := core.ParseMonthKey(monthKey); err != nil {
		return core.MonthSummary{}, err
	}
	if s.summaries != nil {
		if summary, ok := s.summaries.Get(monthKey); ok {
			metrics.SummaryCacheHits.Inc()
			return summary, nil
		}
		metrics.SummaryCacheMisses.Inc()
	}

	load, err := s.loadHistory(ctx)
	if err != nil {
		return core.MonthSummary{}, err
	}
	summary := core.SummarizeMonth(load.sessions, monthKey)

	// Skip caching when a mutation landed after the load started.
	if s.summaries != nil && s.generation.Load() == load.generation {
		s.summaries.Set(monthKey, summary)
	}
	return summary, nil
}

// Calendar returns per-day recaps for the days of the month that have sessions.
func (s *SessionService) Calendar(ctx context.Context, monthKey string) ([]core.DayRecap, error) {
	if _, err := core.ParseMonthKey(monthKey); err != nil {
		return nil, err
	}
	history, err := s.History(ctx)
	if err != nil {
		return nil, err
	}
	return core.CalendarDays(history, monthKey), nil
}

// SessionInvoice builds the invoice of one share of a session.
func (s *SessionService) SessionInvoice(ctx context.Context, sessionID, shareID string) (core.Invoice, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return core.Invoice{}, err
	}
	share, ok := session.Share(shareID)
	if !ok {
		return core.Invoice{}, fmt.Errorf("share %s in session %s: %w", shareID, sessionID, ledger.ErrNotFound)
	}
	return core.SessionInvoice(session, share), nil
}

// MonthlyInvoice builds a player's invoice for the month.
func (s *SessionService) MonthlyInvoice(ctx context.Context, monthKey, name string) (core.Invoice, error) {
	summary, err := s.MonthSummary(ctx, monthKey)
	if err != nil {
		return core.Invoice{}, err
	}
	recap, ok := summary.Player(name)
	if !ok {
		return core.Invoice{}, fmt.Errorf("player %q in %s: %w", name, monthKey, ledger.ErrNotFound)
	}
	return core.MonthlyInvoice(recap, monthKey, s.now()), nil
}

// Busy reports whether an operation of the given kind is in flight.
func (s *SessionService) Busy(op Operation) bool {
	return s.guard.Busy(op)
}

func (s *SessionService) acquire(op Operation) (func(), error) {
	release, err := s.guard.TryAcquire(op)
	if err != nil {
		metrics.SessionOperations.WithLabelValues(string(op), metrics.ResultRejected).Inc()
		return nil, err
	}
	return release, nil
}

func (s *SessionService) invalidate(monthKey string) {
	s.generation.Add(1)
	s.loads.Forget("history")
	if s.summaries != nil {
		s.summaries.Delete(monthKey)
	}
}

func (s *SessionService) invalidateAll() {
	s.generation.Add(1)
	s.loads.Forget("history")
	if s.summaries != nil {
		s.summaries.Purge()
	}
}

// publish never fails the request: the change is already persisted.
func (s *SessionService) publish(ctx context.Context, ev *amqp.SessionEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping event", "type", ev.Type)
		return
	}
	err := s.publisher.Publish(ctx, ev)
	metrics.EventsPublished.WithLabelValues(string(ev.Type), metrics.Result(err)).Inc()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish session event",
			"type", ev.Type,
			"session_id", ev.SessionID,
			"error", err)
	}
}

// Close closes the store and the publisher when they hold resources.
func (s *SessionService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close session service: %w", errors.Join(errs...))
	}
	return nil
}
