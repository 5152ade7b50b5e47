package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kalambet/gemsearch/internal/remote"
	"github.com/kalambet/gemsearch/internal/session"
)

// Fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SaveSession replaces the stored copy of sess, including its files and turns.
func (s *Store) SaveSession(sess *session.Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		sess.ID, sess.Title, formatTime(sess.CreatedAt), formatTime(sess.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", sess.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM session_files WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clearing files: %w", err)
	}
	for i, f := range sess.Files {
		if _, err := tx.Exec(`
			INSERT INTO session_files (session_id, position, uri, mime_type, display_name) VALUES (?, ?, ?, ?, ?)`,
			sess.ID, i, f.URI, f.MIMEType, f.DisplayName,
		); err != nil {
			return fmt.Errorf("saving file %s: %w", f.URI, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM session_turns WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clearing turns: %w", err)
	}
	for i, t := range sess.Turns {
		if _, err := tx.Exec(`
			INSERT INTO session_turns (session_id, seq, role, text, created_at) VALUES (?, ?, ?, ?, ?)`,
			sess.ID, i, string(t.Role), t.Text, formatTime(t.CreatedAt),
		); err != nil {
			return fmt.Errorf("saving turn %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadSession returns the session with the given ID or ErrNotFound.
func (s *Store) LoadSession(id string) (*session.Session, error) {
	sess := &session.Session{Files: []remote.FileRef{}, Turns: []session.Turn{}}
	var createdAt, updatedAt string
	err := s.db.QueryRow(`SELECT id, title, created_at, updated_at FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.Title, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if sess.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sess.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	files, err := s.db.Query(`
		SELECT uri, mime_type, display_name FROM session_files
		WHERE session_id = ? ORDER BY position ASC`, id)
	if err != nil {
		return nil, err
	}
	defer files.Close()
	for files.Next() {
		var f remote.FileRef
		if err := files.Scan(&f.URI, &f.MIMEType, &f.DisplayName); err != nil {
			return nil, err
		}
		sess.Files = append(sess.Files, f)
	}
	if err := files.Err(); err != nil {
		return nil, err
	}

	turns, err := s.db.Query(`
		SELECT role, text, created_at FROM session_turns
		WHERE session_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return nil, err
	}
	defer turns.Close()
	for turns.Next() {
		var t session.Turn
		var role, at string
		if err := turns.Scan(&role, &t.Text, &at); err != nil {
			return nil, err
		}
		t.Role = session.Role(role)
		if t.CreatedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		sess.Turns = append(sess.Turns, t)
	}
	return sess, turns.Err()
}

// ListSessions returns up to limit sessions, most recently updated first.
func (s *Store) ListSessions(limit int) ([]session.Summary, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.title, s.updated_at,
			(SELECT COUNT(*) FROM session_files f WHERE f.session_id = s.id),
			(SELECT COUNT(*) FROM session_turns t WHERE t.session_id = s.id)
		FROM sessions s ORDER BY s.updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []session.Summary
	for rows.Next() {
		var sum session.Summary
		var updatedAt string
		if err := rows.Scan(&sum.ID, &sum.Title, &updatedAt, &sum.Files, &sum.Turns); err != nil {
			return nil, err
		}
		if sum.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteSession removes a session with its files and turns.
func (s *Store) DeleteSession(id string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
