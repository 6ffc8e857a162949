package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lumera/salonbook/internal/model"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func newAuthFixture() (*AuthHandler, *fakeProfiles, *fakeRefresh) {
	profiles := newFakeProfiles()
	refresh := newFakeRefresh()
	h := NewAuthHandler(profiles, refresh, testSecret, time.Hour, 24*time.Hour)
	return h, profiles, refresh
}

func TestSignupIssuesSession(t *testing.T) {
	h, profiles, _ := newAuthFixture()

	body := `{"email":"jo@example.com","password":"secret123","full_name":"Jo"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Signup(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.User.Role != "customer" {
		t.Fatalf("role = %s, want customer", resp.User.Role)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected access and refresh tokens")
	}

	stored, err := profiles.GetByEmail(req.Context(), "jo@example.com")
	if err != nil {
		t.Fatalf("profile not stored: %v", err)
	}
	if stored.PasswordHash == "secret123" {
		t.Fatal("password stored in the clear")
	}
}

func TestSigninRejectsWrongPassword(t *testing.T) {
	h, profiles, _ := newAuthFixture()
	hash, _ := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.MinCost)
	profiles.byEmail["jo@example.com"] = model.Profile{
		ID: "p-1", Email: "jo@example.com", Role: model.RoleCustomer, PasswordHash: string(hash),
	}

	body := `{"email":"jo@example.com","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Signin(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	h, profiles, refresh := newAuthFixture()
	profiles.byID["p-1"] = model.Profile{ID: "p-1", Email: "jo@example.com", Role: model.RoleCustomer}
	raw := "raw-refresh-token"
	if _, err := refresh.Create(nil, "p-1", raw, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("seed refresh token: %v", err)
	}

	body := `{"refresh_token":"` + raw + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RefreshToken == raw {
		t.Fatal("refresh token was not rotated")
	}

	// The old token must be dead after rotation.
	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(body))
	h.Refresh(rec2, req2)
	if rec2.Code != http.StatusUnauthorized {
		t.Fatalf("reused token: status = %d, want 401", rec2.Code)
	}
}

func TestSignoutIsIdempotent(t *testing.T) {
	h, _, _ := newAuthFixture()
	body := `{"refresh_token":"never-issued"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signout", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Signout(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestRequireAuthMiddleware(t *testing.T) {
	var seen Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = identityFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAuth(testSecret)(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rec.Code)
	}

	h, profiles, _ := newAuthFixture()
	hash, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	profiles.byEmail["jo@example.com"] = model.Profile{
		ID: "p-1", Email: "jo@example.com", Role: model.RoleStaff, PasswordHash: string(hash), FullName: "Jo",
	}
	signin := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", strings.NewReader(`{"email":"jo@example.com","password":"pw"}`))
	signinRec := httptest.NewRecorder()
	h.Signin(signinRec, signin)
	var resp sessionResponse
	if err := json.Unmarshal(signinRec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode signin: %v", err)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200", rec2.Code)
	}
	if seen.ProfileID != "p-1" || seen.Role != model.RoleStaff {
		t.Fatalf("identity = %+v, want p-1/staff", seen)
	}
}
