package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"billiard/internal/core"
	"billiard/internal/ledger"

	_ "modernc.org/sqlite"
)

// Fixed-width so that lexical order in SQL matches chronological order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

var _ ledger.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection, used by readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateSession inserts the session and its player shares in one transaction.
func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) (core.Session, error) {
	s.ID = uuid.NewString()
	s.CreatedAt = r.now().UTC()
	players := make([]core.PlayerShare, len(s.Players))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Session{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.InsertSession(ctx, SessionRow{
		ID:               s.ID,
		Date:             s.Date.Key(),
		StartTime:        nullString(s.StartTime),
		TotalHours:       s.TotalHours,
		TotalCost:        s.TotalCost,
		TotalPlayerHours: s.TotalPlayerHours,
		SessionName:      nullString(s.SessionName),
		Location:         nullString(s.Location),
		CreatedAt:        s.CreatedAt.Format(timestampLayout),
	}); err != nil {
		return core.Session{}, fmt.Errorf("insert session: %w", err)
	}

	for i, p := range s.Players {
		p.ID = uuid.NewString()
		if err := q.InsertPlayer(ctx, PlayerRow{
			ID:        p.ID,
			SessionID: s.ID,
			Position:  int64(i),
			Name:      p.Name,
			Hours:     p.Hours,
			Portion:   p.Portion,
			Amount:    p.Amount,
			Paid:      p.Paid,
		}); err != nil {
			return core.Session{}, fmt.Errorf("insert player %q: %w", p.Name, err)
		}
		players[i] = p
	}

	if err := tx.Commit(); err != nil {
		return core.Session{}, fmt.Errorf("commit session: %w", err)
	}
	s.Players = players

	slog.InfoContext(ctx, "Session saved to SQLite",
		"id", s.ID,
		"date", s.Date.Key(),
		"total_cost", s.TotalCost,
		"players", len(s.Players))

	return s, nil
}

// ListSessions returns the history ordered by date, then creation time.
func (r *SQLiteRepository) ListSessions(ctx context.Context) ([]core.Session, error) {
	rows, err := r.queries.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	playerRows, err := r.queries.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	bySession := make(map[string][]core.PlayerShare, len(rows))
	for _, p := range playerRows {
		bySession[p.SessionID] = append(bySession[p.SessionID], toPlayerShare(p))
	}

	sessions := make([]core.Session, 0, len(rows))
	for _, row := range rows {
		s, err := toSession(row, bySession[row.ID])
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (core.Session, error) {
	row, err := r.queries.GetSession(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, fmt.Errorf("session %s: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	playerRows, err := r.queries.ListPlayersBySession(ctx, id)
	if err != nil {
		return core.Session{}, fmt.Errorf("list players of %s: %w", id, err)
	}
	players := make([]core.PlayerShare, 0, len(playerRows))
	for _, p := range playerRows {
		players = append(players, toPlayerShare(p))
	}
	return toSession(row, players)
}

// DeleteSession removes a session together with its player shares.
func (r *SQLiteRepository) DeleteSession(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeletePlayersBySession(ctx, id); err != nil {
		return fmt.Errorf("delete players of %s: %w", id, err)
	}
	n, err := q.DeleteSession(ctx, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ledger.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	slog.InfoContext(ctx, "Session deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) DeleteAllSessions(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteAllPlayers(ctx); err != nil {
		return 0, fmt.Errorf("delete all players: %w", err)
	}
	n, err := q.DeleteAllSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete all sessions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit clear: %w", err)
	}

	slog.WarnContext(ctx, "Session history cleared", "deleted", n)
	return n, nil
}

func (r *SQLiteRepository) SetPaid(ctx context.Context, sessionID, shareID string, paid bool) error {
	n, err := r.queries.SetPlayerPaid(ctx, paid, sessionID, shareID)
	if err != nil {
		return fmt.Errorf("set paid for %s/%s: %w", sessionID, shareID, err)
	}
	if n == 0 {
		return fmt.Errorf("share %s in session %s: %w", shareID, sessionID, ledger.ErrNotFound)
	}

	slog.InfoContext(ctx, "Share paid flag updated",
		"session_id", sessionID,
		"share_id", shareID,
		"paid", paid)
	return nil
}

func toSession(row SessionRow, players []core.PlayerShare) (core.Session, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Session{}, fmt.Errorf("session %s: %w", row.ID, err)
	}
	createdAt, err := time.Parse(timestampLayout, row.CreatedAt)
	if err != nil {
		return core.Session{}, fmt.Errorf("session %s created_at: %w", row.ID, err)
	}
	if players == nil {
		players = []core.PlayerShare{}
	}
	return core.Session{
		ID:               row.ID,
		Date:             date,
		StartTime:        row.StartTime.String,
		TotalHours:       row.TotalHours,
		TotalCost:        row.TotalCost,
		TotalPlayerHours: row.TotalPlayerHours,
		SessionName:      row.SessionName.String,
		Location:         row.Location.String,
		CreatedAt:        createdAt,
		Players:          players,
	}, nil
}

func toPlayerShare(p PlayerRow) core.PlayerShare {
	return core.PlayerShare{
		ID:      p.ID,
		Name:    p.Name,
		Hours:   p.Hours,
		Portion: p.Portion,
		Amount:  p.Amount,
		Paid:    p.Paid,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
