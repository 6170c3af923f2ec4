package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type SessionRow struct {
	ID               string
	Date             string
	StartTime        sql.NullString
	TotalHours       float64
	TotalCost        float64
	TotalPlayerHours float64
	SessionName      sql.NullString
	Location         sql.NullString
	CreatedAt        string
}

type PlayerRow struct {
	ID        string
	SessionID string
	Position  int64
	Name      string
	Hours     float64
	Portion   float64
	Amount    float64
	Paid      bool
}

const insertSession = `
INSERT INTO billiard_sessions (id, date, start_time, total_hours, total_cost, total_player_hours, session_name, location, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertSession(ctx context.Context, arg SessionRow) error {
	_, err := q.db.ExecContext(ctx, insertSession,
		arg.ID, arg.Date, arg.StartTime, arg.TotalHours, arg.TotalCost,
		arg.TotalPlayerHours, arg.SessionName, arg.Location, arg.CreatedAt)
	return err
}

const insertPlayer = `
INSERT INTO billiard_session_players (id, session_id, position, name, hours, portion, amount, paid)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertPlayer(ctx context.Context, arg PlayerRow) error {
	_, err := q.db.ExecContext(ctx, insertPlayer,
		arg.ID, arg.SessionID, arg.Position, arg.Name, arg.Hours, arg.Portion, arg.Amount, arg.Paid)
	return err
}

const sessionColumns = `id, date, start_time, total_hours, total_cost, total_player_hours, session_name, location, created_at`

const listSessions = `SELECT ` + sessionColumns + ` FROM billiard_sessions ORDER BY date ASC, created_at ASC`

func (q *Queries) ListSessions(ctx context.Context) ([]SessionRow, error) {
	rows, err := q.db.QueryContext(ctx, listSessions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SessionRow
	for rows.Next() {
		var i SessionRow
		if err := scanSession(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getSession = `SELECT ` + sessionColumns + ` FROM billiard_sessions WHERE id = ?`

func (q *Queries) GetSession(ctx context.Context, id string) (SessionRow, error) {
	row := q.db.QueryRowContext(ctx, getSession, id)
	var i SessionRow
	err := scanSession(row, &i)
	return i, err
}

const playerColumns = `id, session_id, position, name, hours, portion, amount, paid`

const listPlayers = `SELECT ` + playerColumns + ` FROM billiard_session_players ORDER BY session_id, position`

func (q *Queries) ListPlayers(ctx context.Context) ([]PlayerRow, error) {
	return q.queryPlayers(ctx, listPlayers)
}

const listPlayersBySession = `SELECT ` + playerColumns + ` FROM billiard_session_players WHERE session_id = ? ORDER BY position`

func (q *Queries) ListPlayersBySession(ctx context.Context, sessionID string) ([]PlayerRow, error) {
	return q.queryPlayers(ctx, listPlayersBySession, sessionID)
}

func (q *Queries) queryPlayers(ctx context.Context, query string, args ...interface{}) ([]PlayerRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PlayerRow
	for rows.Next() {
		var i PlayerRow
		if err := rows.Scan(&i.ID, &i.SessionID, &i.Position, &i.Name, &i.Hours, &i.Portion, &i.Amount, &i.Paid); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deletePlayersBySession = `DELETE FROM billiard_session_players WHERE session_id = ?`

func (q *Queries) DeletePlayersBySession(ctx context.Context, sessionID string) error {
	_, err := q.db.ExecContext(ctx, deletePlayersBySession, sessionID)
	return err
}

const deleteSession = `DELETE FROM billiard_sessions WHERE id = ?`

func (q *Queries) DeleteSession(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteSession, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteAllPlayers = `DELETE FROM billiard_session_players`

func (q *Queries) DeleteAllPlayers(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllPlayers)
	return err
}

const deleteAllSessions = `DELETE FROM billiard_sessions`

func (q *Queries) DeleteAllSessions(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAllSessions)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setPlayerPaid = `UPDATE billiard_session_players SET paid = ? WHERE session_id = ? AND id = ?`

func (q *Queries) SetPlayerPaid(ctx context.Context, paid bool, sessionID, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, setPlayerPaid, paid, sessionID, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(s scanner, i *SessionRow) error {
	return s.Scan(&i.ID, &i.Date, &i.StartTime, &i.TotalHours, &i.TotalCost,
		&i.TotalPlayerHours, &i.SessionName, &i.Location, &i.CreatedAt)
}
