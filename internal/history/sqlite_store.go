// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver
)

const (
	schemaVersion = 1
	defaultLimit  = 50
	busyTimeout   = 5 * time.Second
)

// SqliteStore implements Store on a single sqlite file.
type SqliteStore struct {
	DB *sql.DB
}

// NewSqliteStore opens (or creates) the history database and runs pending
// migrations. The PRAGMAs ride on the DSN so they apply to every pooled
// connection.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		dbPath, busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open failed: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping failed: %w", err)
	}

	s := &SqliteStore{DB: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migration failed: %w", err)
	}
	return s, nil
}

func (s *SqliteStore) Close() error { return s.DB.Close() }

func (s *SqliteStore) migrate() error {
	var currentVersion int
	if err := s.DB.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		started_at_ms INTEGER NOT NULL,
		ended_at_ms INTEGER,
		sensitivity REAL NOT NULL,
		interval_s REAL NOT NULL,
		camera INTEGER NOT NULL,
		stop_reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at_ms);

	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		at_ms INTEGER NOT NULL,
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_at ON alerts(at_ms);
	`

	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SqliteStore) StartSession(ctx context.Context, sess Session) error {
	query := `
	INSERT INTO sessions (session_id, started_at_ms, ended_at_ms, sensitivity, interval_s, camera, stop_reason)
	VALUES (?, ?, NULL, ?, ?, ?, NULL)
	ON CONFLICT(session_id) DO UPDATE SET
		started_at_ms = excluded.started_at_ms,
		sensitivity = excluded.sensitivity,
		interval_s = excluded.interval_s,
		camera = excluded.camera
	`
	_, err := s.DB.ExecContext(ctx, query,
		sess.ID, sess.StartedAt.UnixMilli(), sess.Sensitivity, sess.Interval, sess.Camera)
	return err
}

func (s *SqliteStore) EndSession(ctx context.Context, id string, endedAt time.Time, stopReason string) error {
	_, err := s.DB.ExecContext(ctx,
		"UPDATE sessions SET ended_at_ms = ?, stop_reason = ? WHERE session_id = ?",
		endedAt.UnixMilli(), stopReason, id)
	return err
}

func (s *SqliteStore) RecordAlert(ctx context.Context, a Alert) error {
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO alerts (session_id, at_ms, kind, title, body) VALUES (?, ?, ?, ?, ?)",
		a.SessionID, a.At.UnixMilli(), a.Kind, a.Title, a.Body)
	return err
}

func (s *SqliteStore) RecentAlerts(ctx context.Context, limit int) ([]Alert, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, session_id, at_ms, kind, title, body FROM alerts ORDER BY at_ms DESC, id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Alert
	for rows.Next() {
		var a Alert
		var atMS int64
		if err := rows.Scan(&a.ID, &a.SessionID, &atMS, &a.Kind, &a.Title, &a.Body); err != nil {
			return nil, err
		}
		a.At = time.UnixMilli(atMS)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SqliteStore) Sessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.DB.QueryContext(ctx,
		"SELECT session_id, started_at_ms, ended_at_ms, sensitivity, interval_s, camera, stop_reason FROM sessions ORDER BY started_at_ms DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Session
	for rows.Next() {
		var sess Session
		var startedMS int64
		var endedMS sql.NullInt64
		var stopReason sql.NullString
		if err := rows.Scan(&sess.ID, &startedMS, &endedMS, &sess.Sensitivity, &sess.Interval, &sess.Camera, &stopReason); err != nil {
			return nil, err
		}
		sess.StartedAt = time.UnixMilli(startedMS)
		if endedMS.Valid {
			sess.EndedAt = time.UnixMilli(endedMS.Int64)
		}
		sess.StopReason = stopReason.String
		out = append(out, sess)
	}
	return out, rows.Err()
}

var _ Store = (*SqliteStore)(nil)
