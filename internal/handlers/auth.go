package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/lumera/salonbook/internal/model"
	"github.com/lumera/salonbook/internal/outbox"
	"github.com/lumera/salonbook/internal/sessions"
	"github.com/lumera/salonbook/internal/storage"
	"github.com/lumera/salonbook/libs/auth"
	"golang.org/x/crypto/bcrypt"
)

// ProfileStore is the slice of profile storage the auth handlers need.
type ProfileStore interface {
	Create(ctx context.Context, p *model.Profile, evt outbox.Event) error
	GetByEmail(ctx context.Context, email string) (model.Profile, error)
	GetByID(ctx context.Context, id string) (model.Profile, error)
}

type RefreshStore interface {
	Create(ctx context.Context, profileID string, rawToken string, expiresAt time.Time) (string, error)
	GetByHash(ctx context.Context, hash string) (sessions.RefreshToken, error)
	Revoke(ctx context.Context, id string) error
}

type AuthHandler struct {
	profiles   ProfileStore
	refresh    RefreshStore
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthHandler(profiles ProfileStore, refresh RefreshStore, secret string, accessTTL, refreshTTL time.Duration) *AuthHandler {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &AuthHandler{
		profiles:   profiles,
		refresh:    refresh,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role"`
}

type sessionResponse struct {
	User         userPayload `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func toUserPayload(p model.Profile) userPayload {
	return userPayload{
		ID:       p.ID,
		Email:    p.Email,
		FullName: p.FullName,
		Phone:    p.Phone,
		Role:     string(p.Role),
	}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Password = strings.TrimSpace(req.Password)
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	profile := model.Profile{
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		Role:         model.RoleCustomer,
		PasswordHash: string(hash),
	}

	payload, err := json.Marshal(map[string]any{
		"email":      profile.Email,
		"full_name":  profile.FullName,
		"role":       profile.Role,
		"created_at": time.Now().UTC(),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build signup event")
		return
	}

	err = h.profiles.Create(r.Context(), &profile, outbox.Event{
		AggregateType: "profile",
		EventType:     outbox.EventProfileCreated,
		Payload:       payload,
	})
	if err != nil {
		if storage.IsUniqueViolation(err) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create profile")
		return
	}

	h.writeSession(r.Context(), w, profile, http.StatusCreated)
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Password = strings.TrimSpace(req.Password)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	profile, err := h.profiles.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to look up profile")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.writeSession(r.Context(), w, profile, http.StatusOK)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token required")
		return
	}

	record, err := h.refresh.GetByHash(r.Context(), sessions.HashToken(req.RefreshToken))
	if err != nil {
		if sessions.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to look up refresh token")
		return
	}
	if record.RevokedAt != nil || record.ExpiresAt.Before(time.Now()) {
		writeError(w, http.StatusUnauthorized, "refresh token expired")
		return
	}

	profile, err := h.profiles.GetByID(r.Context(), record.ProfileID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to look up profile")
		return
	}

	// Rotation: the presented token dies with this request.
	if err := h.refresh.Revoke(r.Context(), record.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to rotate refresh token")
		return
	}

	h.writeSession(r.Context(), w, profile, http.StatusOK)
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token required")
		return
	}

	record, err := h.refresh.GetByHash(r.Context(), sessions.HashToken(req.RefreshToken))
	if err != nil {
		if sessions.IsNotFound(err) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to look up refresh token")
		return
	}
	if record.RevokedAt == nil {
		if err := h.refresh.Revoke(r.Context(), record.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to revoke refresh token")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	profile, err := h.profiles.GetByID(r.Context(), id.ProfileID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "profile no longer exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to look up profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserPayload(profile)})
}

func (h *AuthHandler) writeSession(ctx context.Context, w http.ResponseWriter, profile model.Profile, status int) {
	now := time.Now()
	access, err := auth.SignHS256(auth.Claims{
		Sub:      profile.ID,
		Role:     string(profile.Role),
		FullName: profile.FullName,
		Iat:      now.Unix(),
		Exp:      now.Add(h.accessTTL).Unix(),
	}, h.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	raw, err := newRefreshToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue refresh token")
		return
	}
	if _, err := h.refresh.Create(ctx, profile.ID, raw, now.Add(h.refreshTTL)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue refresh token")
		return
	}

	writeJSON(w, status, sessionResponse{
		User:         toUserPayload(profile),
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "Bearer",
	})
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
