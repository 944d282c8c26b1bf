// Package history persists supervision history: one row per spawn
// attempt, plus its exits and reported errors. The daemon serves this
// over the API; it is diagnostic data, never consulted by the
// supervisor's own control flow.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Session is one spawn attempt of the supervised agent.
type Session struct {
	ID         string     `json:"id"`
	Mode       string     `json:"mode"`
	Executable string     `json:"executable"`
	PID        *int       `json:"pid,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	Disabled   bool       `json:"disabled"`
}

// Exit records how a session's process ended.
type Exit struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	ExitedAt  time.Time `json:"exited_at"`
	ExitCode  *int      `json:"exit_code,omitempty"`
	Signal    *string   `json:"signal,omitempty"`
	Expected  bool      `json:"expected"`
}

// RecordStart inserts a session row for a fresh spawn.
func (s *Store) RecordStart(ctx context.Context, session Session) error {
	if session.ID == "" {
		return fmt.Errorf("session id is empty")
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions(id, mode, executable, pid, started_at, disabled)
VALUES(?, ?, ?, ?, ?, 0);
`, session.ID, session.Mode, session.Executable, session.PID,
		session.StartedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record session start: %w", err)
	}
	return nil
}

// RecordExit appends an exit row and stamps the session's end time.
func (s *Store) RecordExit(ctx context.Context, exit Exit) error {
	if exit.SessionID == "" {
		return fmt.Errorf("session id is empty")
	}
	if exit.ID == "" {
		exit.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exitedAt := exit.ExitedAt.UTC().Format(time.RFC3339Nano)

	_, err = tx.ExecContext(ctx, `
INSERT INTO session_exits(id, session_id, exited_at, exit_code, signal, expected)
VALUES(?, ?, ?, ?, ?, ?);
`, exit.ID, exit.SessionID, exitedAt, exit.ExitCode, exit.Signal, exit.Expected)
	if err != nil {
		return fmt.Errorf("insert session exit: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
UPDATE sessions SET ended_at = ? WHERE id = ?;
`, exitedAt, exit.SessionID)
	if err != nil {
		return fmt.Errorf("update session end: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// MarkDisabled flags the session whose crash loop tripped the breaker.
func (s *Store) MarkDisabled(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET disabled = 1 WHERE id = ?;`, sessionID)
	if err != nil {
		return fmt.Errorf("mark session disabled: %w", err)
	}
	return nil
}

// RecordError appends an error report. sessionID may be empty for
// errors outside any live session (e.g. spawn failures).
func (s *Store) RecordError(ctx context.Context, sessionID, kind, message string) error {
	var sid any
	if sessionID != "" {
		sid = sessionID
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO session_errors(id, session_id, occurred_at, kind, message)
VALUES(?, ?, ?, ?, ?);
`, uuid.NewString(), sid, time.Now().UTC().Format(time.RFC3339Nano), kind, message)
	if err != nil {
		return fmt.Errorf("record error: %w", err)
	}
	return nil
}

// RecentSessions returns the newest sessions first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, mode, executable, pid, started_at, ended_at, disabled
FROM sessions
ORDER BY started_at DESC, rowid DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			sess      Session
			pid       sql.NullInt64
			startedAt string
			endedAt   sql.NullString
			disabled  int
		)
		if err := rows.Scan(&sess.ID, &sess.Mode, &sess.Executable, &pid, &startedAt, &endedAt, &disabled); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if pid.Valid {
			p := int(pid.Int64)
			sess.PID = &p
		}
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			sess.StartedAt = t
		}
		if endedAt.Valid {
			if t, err := time.Parse(time.RFC3339Nano, endedAt.String); err == nil {
				sess.EndedAt = &t
			}
		}
		sess.Disabled = disabled != 0
		out = append(out, sess)
	}
	return out, rows.Err()
}

// ExitsForSession returns a session's exits, oldest first.
func (s *Store) ExitsForSession(ctx context.Context, sessionID string) ([]Exit, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, exited_at, exit_code, signal, expected
FROM session_exits
WHERE session_id = ?
ORDER BY exited_at ASC;
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session exits: %w", err)
	}
	defer rows.Close()

	var out []Exit
	for rows.Next() {
		var (
			exit     Exit
			exitedAt string
			code     sql.NullInt64
			signal   sql.NullString
			expected int
		)
		if err := rows.Scan(&exit.ID, &exit.SessionID, &exitedAt, &code, &signal, &expected); err != nil {
			return nil, fmt.Errorf("scan exit: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, exitedAt); err == nil {
			exit.ExitedAt = t
		}
		if code.Valid {
			c := int(code.Int64)
			exit.ExitCode = &c
		}
		if signal.Valid {
			exit.Signal = &signal.String
		}
		exit.Expected = expected != 0
		out = append(out, exit)
	}
	return out, rows.Err()
}
