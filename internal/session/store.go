// Package session persists the authenticated identity across restarts.
// At most one identity exists at a time; it is written on login, read on
// startup, and removed on logout or on any authorization-denied response.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gibrocash/internal/core"
	"gibrocash/internal/log"

	_ "modernc.org/sqlite"
)

// ErrNotAuthenticated is returned by Login pass-throughs when the
// credential exchange failed without a server message.
var ErrNotAuthenticated = errors.New("not authenticated")

// Authenticator exchanges credentials for a session and its token. The
// API client satisfies this; the indirection keeps this package free of
// a dependency on it.
type Authenticator interface {
	Login(ctx context.Context, phone, password string) (core.Session, string, error)
}

// Store holds the current session in memory and mirrors it to SQLite.
// All methods are safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger *log.Logger

	mu      sync.RWMutex
	current core.Session
	token   string
}

// Open opens (creating if needed) the session database at dbPath, runs
// migrations, and restores any persisted session into memory.
func Open(dbPath string, logger *log.Logger) (*Store, error) {
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

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.restore(); err != nil {
		db.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// restore loads the persisted row, if any, into memory.
func (s *Store) restore() error {
	row := s.db.QueryRow(`SELECT token, user_id, name, phone, designation FROM session WHERE id = 1`)
	var token string
	var sess core.Session
	err := row.Scan(&token, &sess.UserID, &sess.Name, &sess.Phone, &sess.Designation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = sess
	s.token = token
	s.mu.Unlock()
	if s.logger != nil {
		s.logger.Info("session restored", log.FieldUserID, sess.UserID)
	}
	return nil
}

// Login exchanges credentials via auth and persists the resulting
// session. On failure the existing session, if any, is untouched.
func (s *Store) Login(ctx context.Context, auth Authenticator, phone, password string) (core.Session, error) {
	sess, token, err := auth.Login(ctx, phone, password)
	if err != nil {
		return core.Session{}, err
	}
	if sess.IsEmpty() || token == "" {
		return core.Session{}, ErrNotAuthenticated
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session (id, token, user_id, name, phone, designation)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_id = excluded.user_id,
			name = excluded.name,
			phone = excluded.phone,
			designation = excluded.designation`,
		token, sess.UserID, sess.Name, sess.Phone, sess.Designation)
	if err != nil {
		return core.Session{}, fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.current = sess
	s.token = token
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("login", log.FieldUserID, sess.UserID, "designation", sess.Designation)
	}
	return sess, nil
}

// Logout removes the session from memory and disk. Calling it with no
// session held is a no-op.
func (s *Store) Logout() error {
	s.mu.Lock()
	had := !s.current.IsEmpty()
	s.current = core.Session{}
	s.token = ""
	s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM session WHERE id = 1`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if had && s.logger != nil {
		s.logger.Info("logout")
	}
	return nil
}

// Clear is Logout with the error swallowed, shaped for use as the API
// client's auth-failure hook.
func (s *Store) Clear() {
	if err := s.Logout(); err != nil && s.logger != nil {
		s.logger.Error("clearing session", log.FieldError, err.Error())
	}
}

// Current returns the in-memory session, empty when logged out.
func (s *Store) Current() core.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token returns the bearer token for outbound requests, empty when
// logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a session is held.
func (s *Store) Authenticated() bool {
	return !s.Current().IsEmpty()
}

// IsAdmin reports whether the held session has the admin designation.
func (s *Store) IsAdmin() bool {
	return s.Current().IsAdmin()
}
