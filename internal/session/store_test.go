package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gibrocash/internal/core"
)

type fakeAuth struct {
	session core.Session
	token   string
	err     error
}

func (f fakeAuth) Login(ctx context.Context, phone, password string) (core.Session, string, error) {
	return f.session, f.token, f.err
}

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "session.db")
	s, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, dbPath
}

func TestStoreStartsEmpty(t *testing.T) {
	s, _ := openStore(t)
	if s.Authenticated() {
		t.Fatalf("fresh store must not be authenticated")
	}
	if s.Token() != "" {
		t.Fatalf("fresh store must hold no token")
	}
	if s.IsAdmin() {
		t.Fatalf("fresh store must not be admin")
	}
}

func TestLoginPersistsAcrossReopen(t *testing.T) {
	s, dbPath := openStore(t)
	auth := fakeAuth{
		session: core.Session{UserID: "7", Name: "Jane", Phone: "0712345678", Designation: "ADMIN"},
		token:   "tok-1",
	}
	sess, err := s.Login(context.Background(), auth, "0712345678", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.UserID != "7" || !s.IsAdmin() || s.Token() != "tok-1" {
		t.Fatalf("unexpected state after login: %+v token %q", sess, s.Token())
	}
	s.Close()

	reopened, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if !reopened.Authenticated() {
		t.Fatalf("session should survive reopen")
	}
	if got := reopened.Current(); got.Name != "Jane" || got.Designation != "ADMIN" {
		t.Fatalf("restored session: %+v", got)
	}
	if reopened.Token() != "tok-1" {
		t.Fatalf("restored token: %q", reopened.Token())
	}
}

func TestLoginFailureKeepsExistingSession(t *testing.T) {
	s, _ := openStore(t)
	good := fakeAuth{session: core.Session{UserID: "1", Designation: "STAFF"}, token: "tok"}
	if _, err := s.Login(context.Background(), good, "0712345678", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}

	boom := errors.New("invalid credentials")
	if _, err := s.Login(context.Background(), fakeAuth{err: boom}, "0712345678", "wrong"); !errors.Is(err, boom) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if !s.Authenticated() || s.Token() != "tok" {
		t.Fatalf("failed login must not disturb held session")
	}
}

func TestLoginRejectsEmptyResult(t *testing.T) {
	s, _ := openStore(t)
	if _, err := s.Login(context.Background(), fakeAuth{}, "0712345678", "secret1"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("got %v, want ErrNotAuthenticated", err)
	}
}

func TestLogoutIdempotent(t *testing.T) {
	s, dbPath := openStore(t)
	auth := fakeAuth{session: core.Session{UserID: "1"}, token: "tok"}
	if _, err := s.Login(context.Background(), auth, "0712345678", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := s.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if s.Authenticated() || s.Token() != "" {
		t.Fatalf("state not cleared after logout")
	}
	if err := s.Logout(); err != nil {
		t.Fatalf("second logout must be a no-op, got %v", err)
	}
	s.Close()

	reopened, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if reopened.Authenticated() {
		t.Fatalf("logout must clear the persisted row")
	}
}

func TestClearActsAsAuthFailureHook(t *testing.T) {
	s, _ := openStore(t)
	auth := fakeAuth{session: core.Session{UserID: "1"}, token: "stale"}
	if _, err := s.Login(context.Background(), auth, "0712345678", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	s.Clear()
	if s.Authenticated() || s.Token() != "" {
		t.Fatalf("clear must drop the session")
	}
}
