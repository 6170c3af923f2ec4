package ledger

import (
	"context"
	"errors"

	"billiard/internal/core"
)

// ErrNotFound is returned when a session or player share does not exist.
var ErrNotFound = errors.New("not found")

// Ports for session persistence and outbound mirrors.
type (
	// SessionLister returns the full history sorted by date, then creation time.
	SessionLister interface {
		ListSessions(ctx context.Context) ([]core.Session, error)
	}

	SessionGetter interface {
		GetSession(ctx context.Context, id string) (core.Session, error)
	}

	// SessionWriter persists a session and its shares together. The store
	// assigns session and share ids and the creation time.
	SessionWriter interface {
		CreateSession(ctx context.Context, s core.Session) (core.Session, error)
	}

	SessionDeleter interface {
		DeleteSession(ctx context.Context, id string) error
		// DeleteAllSessions removes the whole history and reports how many
		// sessions were deleted.
		DeleteAllSessions(ctx context.Context) (int64, error)
	}

	// PaidUpdater sets the paid flag of exactly one player share.
	PaidUpdater interface {
		SetPaid(ctx context.Context, sessionID, shareID string, paid bool) error
	}

	Store interface {
		SessionLister
		SessionGetter
		SessionWriter
		SessionDeleter
		PaidUpdater
	}

	// Exporter mirrors the history into an external spreadsheet.
	Exporter interface {
		ExportSession(ctx context.Context, s core.Session) error
		RemoveSession(ctx context.Context, sessionID string) error
		UpdatePaid(ctx context.Context, sessionID, shareID string, paid bool) error
		ClearAll(ctx context.Context) error
		// ExportedSessionIDs lists the session ids currently in the sheet.
		ExportedSessionIDs(ctx context.Context) ([]string, error)
		// ExportedPaid returns the paid flag of every share row in the sheet.
		ExportedPaid(ctx context.Context) (map[ShareRef]bool, error)
	}
)

// ShareRef identifies one player share of one session.
type ShareRef struct {
	SessionID string
	ShareID   string
}
