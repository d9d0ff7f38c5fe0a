package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"gibrocash/internal/gateway"
	"gibrocash/internal/session"
)

// newTestServer wires a Server against a fake remote API.
func newTestServer(t *testing.T, apiHandler http.Handler) (*Server, *httptest.Server) {
	t.Helper()

	api := httptest.NewServer(apiHandler)
	t.Cleanup(api.Close)

	store, err := session.Open(filepath.Join(t.TempDir(), "session.db"), nil)
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	client := gateway.New(api.URL, store)
	client.OnAuthFailure(store.Clear)

	srv := NewServer(":0", client, store, Options{})
	return srv, api
}

func loginAs(t *testing.T, srv *Server, designation string) {
	t.Helper()
	form := url.Values{"phone": {"0712345678"}, "password": {"secret1"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("HX-Redirect"); got != "/" {
		t.Fatalf("login HX-Redirect: got %q", got)
	}
	if !srv.sessions.Authenticated() {
		t.Fatalf("session not held after login")
	}
	if want := designation == "ADMIN"; srv.sessions.IsAdmin() != want {
		t.Fatalf("admin predicate: got %v for designation %s", srv.sessions.IsAdmin(), designation)
	}
}

// fakeAPI builds a remote API stub whose login reports the given
// designation.
func fakeAPI(designation string, extra map[string]http.HandlerFunc) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token": "tok", "id": 7, "name": "Jane", "phone": "0712345678", "designation": "` + designation + `"}`))
	})
	for pattern, h := range extra {
		mux.HandleFunc(pattern, h)
	}
	return mux
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, fakeAPI("STAFF", nil))

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s returned %d", path, rec.Code)
		}
	}
}

func TestDashboardRequiresSession(t *testing.T) {
	srv, _ := newTestServer(t, fakeAPI("STAFF", nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/login" {
		t.Fatalf("redirect location: got %q", got)
	}
}

func TestFragmentRequestGetsHXRedirect(t *testing.T) {
	srv, _ := newTestServer(t, fakeAPI("STAFF", nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("HX-Redirect"); got != "/login" {
		t.Fatalf("HX-Redirect: got %q", got)
	}
}

func TestStaffDashboardRenders(t *testing.T) {
	srv, _ := newTestServer(t, fakeAPI("STAFF", map[string]http.HandlerFunc{
		"GET /getImprests/7": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"response": [{"id": 5, "name": "Fuel", "amount": 1000, "totalTransactionPrice": 300, "source": "company imprest", "closedStatus_Flag": false}]}`))
		},
	}))
	loginAs(t, srv, "STAFF")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard returned %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"Fuel", "KES 1,000.00", "KES 700.00", "Jane"} {
		if !strings.Contains(body, want) {
			t.Fatalf("dashboard missing %q", want)
		}
	}
}

func TestAdminDashboardJoinsBothFetches(t *testing.T) {
	srv, _ := newTestServer(t, fakeAPI("ADMIN", map[string]http.HandlerFunc{
		"GET /adminSummaries": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"totalAllocated": 5000, "totalUsedAmount": 1200}`))
		},
		"GET /adminAllImprestSummation": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"response": [{"id": 1, "imprestName": "Travel", "allocated": 5000, "usedAmount": 1200}]}`))
		},
	}))
	loginAs(t, srv, "ADMIN")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard returned %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"KES 5,000.00", "KES 1,200.00", "KES 3,800.00", "Travel"} {
		if !strings.Contains(body, want) {
			t.Fatalf("dashboard missing %q", want)
		}
	}
}

func TestDashboardShowsBannerOnUpstreamFailure(t *testing.T) {
	srv, _ := newTestServer(t, fakeAPI("STAFF", map[string]http.HandlerFunc{
		"GET /getImprests/7": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message": "database is on fire"}`))
		},
	}))
	loginAs(t, srv, "STAFF")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard returned %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "database is on fire") {
		t.Fatalf("expected upstream message in banner")
	}
}

func TestAdminRouteForbiddenForStaff(t *testing.T) {
	srv, _ := newTestServer(t, fakeAPI("STAFF", nil))
	loginAs(t, srv, "STAFF")

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAuthFailureClearsSessionAndRedirects(t *testing.T) {
	srv, _ := newTestServer(t, fakeAPI("STAFF", map[string]http.HandlerFunc{
		"GET /getImprests/7": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
	}))
	loginAs(t, srv, "STAFF")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect after revoked token, got %d", rec.Code)
	}
	if srv.sessions.Authenticated() {
		t.Fatalf("session should be cleared after authorization denial")
	}
}

func TestTransactionDeleteRefreshes(t *testing.T) {
	var deleted string
	srv, _ := newTestServer(t, fakeAPI("STAFF", map[string]http.HandlerFunc{
		"DELETE /create_transaction/{id}": func(w http.ResponseWriter, r *http.Request) {
			deleted = r.PathValue("id")
			w.WriteHeader(http.StatusOK)
		},
	}))
	loginAs(t, srv, "STAFF")

	req := httptest.NewRequest(http.MethodPost, "/transactions/42/delete?imprest=5", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete returned %d: %s", rec.Code, rec.Body.String())
	}
	if deleted != "42" {
		t.Fatalf("remote delete id: got %q", deleted)
	}
	if rec.Header().Get("HX-Refresh") != "true" {
		t.Fatalf("expected HX-Refresh after delete")
	}
}

func TestTransactionCreateUploadsReceiptWithImprestID(t *testing.T) {
	var uploadImprest, createImage string
	srv, _ := newTestServer(t, fakeAPI("STAFF", map[string]http.HandlerFunc{
		"POST /upload_fromImprest": func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parsing upload form: %v", err)
			}
			uploadImprest = r.FormValue("imprest_id")
			w.Write([]byte(`{"url": "receipts/9.png"}`))
		},
		"POST /create_transaction": func(w http.ResponseWriter, r *http.Request) {
			var payload struct {
				ImageURL string `json:"url_image"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decoding create payload: %v", err)
			}
			createImage = payload.ImageURL
			w.WriteHeader(http.StatusOK)
		},
	}))
	loginAs(t, srv, "STAFF")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("imprest_id", "5")
	mw.WriteField("item", "Fuel")
	mw.WriteField("quantity", "2")
	mw.WriteField("unit_price", "150.00")
	part, err := mw.CreateFormFile("receipt", "receipt.png")
	if err != nil {
		t.Fatalf("building form file: %v", err)
	}
	part.Write([]byte("png bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/transactions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}
	if uploadImprest != "5" {
		t.Fatalf("upload imprest_id: got %q, want %q", uploadImprest, "5")
	}
	if createImage != "receipts/9.png" {
		t.Fatalf("transaction image url: got %q", createImage)
	}
}

func TestLoginValidationFailsFast(t *testing.T) {
	called := false
	srv, _ := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	form := url.Values{"phone": {"12345"}, "password": {"secret1"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if called {
		t.Fatalf("invalid phone must not reach the remote API")
	}
}

func TestSecurityHeadersPresent(t *testing.T) {
	srv, _ := newTestServer(t, fakeAPI("STAFF", nil))

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options: got %q", got)
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Fatalf("missing CSP header")
	}
}
