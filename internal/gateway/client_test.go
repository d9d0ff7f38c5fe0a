package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gibrocash/internal/core"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestClientAttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"response": []}`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("abc123"))
	if _, err := c.AdminImprests(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer abc123" {
		t.Fatalf("authorization header: got %q", gotAuth)
	}
}

func TestClientSkipsEmptyToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"token": "t", "id": 1, "name": "Jane", "designation": "STAFF"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken(""))
	session, token, err := c.Login(context.Background(), "0712345678", "secret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("expected no authorization header, got %q", gotAuth)
	}
	if token != "t" || session.UserID != "1" || session.Name != "Jane" {
		t.Fatalf("login result: token %q session %+v", token, session)
	}
}

func TestClientAuthFailureHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	fired := 0
	c := New(srv.URL, staticToken("stale"))
	c.OnAuthFailure(func() { fired++ })

	_, err := c.Proposals(context.Background())
	if !IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if fired != 1 {
		t.Fatalf("hook fired %d times, want 1", fired)
	}
	var ae *AuthError
	if !errors.As(err, &ae) || ae.Status != http.StatusUnauthorized {
		t.Fatalf("unexpected auth error detail: %v", err)
	}
}

func TestClientServerMessageExtraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message": "phone number already registered"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	err := c.CreateUser(context.Background(), core.UserForm{
		Name: "Jane", Phone: "0712345678", Password: "secret1", ConfirmPassword: "secret1", Designation: "STAFF",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if IsAuth(err) {
		t.Fatalf("409 must not be an auth error")
	}
	if got := UserMessage(err, "fallback"); got != "phone number already registered" {
		t.Fatalf("user message: got %q", got)
	}
}

func TestClientNetworkError(t *testing.T) {
	c := New("http://127.0.0.1:0", nil)
	_, err := c.AdminTotals(context.Background())
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected network error, got %v", err)
	}
	if got := UserMessage(err, "service unreachable"); got != "service unreachable" {
		t.Fatalf("fallback message: got %q", got)
	}
}

func TestTransactionsByImprestToleratesMissingRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/imprestAccount_trnsctns/9" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"transactions": {"count": 0}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	txns, err := c.TransactionsByImprest(context.Background(), "9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txns) != 0 {
		t.Fatalf("expected empty list, got %d", len(txns))
	}
}

func TestDeleteTransactionMethodAndPath(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	if err := c.DeleteTransaction(context.Background(), "42"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/create_transaction/42" {
		t.Fatalf("got %s %s", gotMethod, gotPath)
	}
}

func TestUpdateProposalStatusPatches(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	if err := c.UpdateProposalStatus(context.Background(), "4", core.ProposalApproved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodPatch {
		t.Fatalf("method: got %s", gotMethod)
	}
}

func TestUploadReceiptForImprestSendsImprestID(t *testing.T) {
	var gotImprest, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload_fromImprest" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart form: %v", err)
		}
		gotImprest = r.FormValue("imprest_id")
		if _, header, err := r.FormFile("file"); err == nil {
			gotFile = header.Filename
		}
		w.Write([]byte(`{"url": "receipts/7.png"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("tok"))
	url, err := c.UploadReceiptForImprest(context.Background(), "5", "receipt.png", strings.NewReader("png bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotImprest != "5" {
		t.Fatalf("imprest_id field: got %q, want %q", gotImprest, "5")
	}
	if gotFile != "receipt.png" {
		t.Fatalf("file part: got %q", gotFile)
	}
	if url != "receipts/7.png" {
		t.Fatalf("stored url: got %q", url)
	}
}

func TestImageURL(t *testing.T) {
	c := New("https://api.example.com/", nil)
	if got := c.ImageURL("receipts/7.png"); got != "https://api.example.com/gibroFinanceimages/receipts/7.png" {
		t.Fatalf("got %q", got)
	}
	if got := c.ImageURL(""); got != "" {
		t.Fatalf("empty path should yield empty url, got %q", got)
	}
}
