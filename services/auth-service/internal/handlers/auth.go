package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/glowdesk/glowdesk/libs/auth"
	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/glowdesk/glowdesk/libs/eventx"
	"github.com/glowdesk/glowdesk/libs/httpx"
	"github.com/glowdesk/glowdesk/services/auth-service/internal/audit"
	"github.com/glowdesk/glowdesk/services/auth-service/internal/sessions"
	"github.com/glowdesk/glowdesk/services/auth-service/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

const accessTokenTTL = 1 * time.Hour

type AuthHandler struct {
	signer      TokenSigner
	pool        *db.Pool
	users       *storage.UserRepository
	audit       *audit.Repository
	outbox      *eventx.OutboxRepository
	refreshRepo *sessions.RefreshRepository
	refreshTTL  time.Duration
	logger      *slog.Logger
}

func NewAuthHandler(
	signer TokenSigner,
	pool *db.Pool,
	users *storage.UserRepository,
	auditRepo *audit.Repository,
	refreshRepo *sessions.RefreshRepository,
	refreshTTL time.Duration,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		signer:      signer,
		pool:        pool,
		users:       users,
		audit:       auditRepo,
		outbox:      eventx.NewOutboxRepository(pool),
		refreshRepo: refreshRepo,
		refreshTTL:  refreshTTL,
		logger:      logger,
	}
}

func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/auth/register", h.RegisterUser)
	mux.HandleFunc("/api/v1/auth/login", h.Login)
	mux.HandleFunc("/api/v1/auth/refresh", h.Refresh)
	mux.HandleFunc("/api/v1/auth/logout", h.Logout)
	mux.HandleFunc("/api/v1/auth/me", h.Me)
	mux.HandleFunc("/api/v1/auth/permissions", h.Permissions)
	mux.HandleFunc("/api/v1/auth/users", h.Users)
	mux.HandleFunc("/api/v1/auth/users/role", h.SetRole)
	mux.HandleFunc("/api/v1/auth/users/active", h.SetActive)
	mux.HandleFunc("/api/v1/auth/rotate", h.Rotate)
	mux.HandleFunc("/api/v1/auth/audit", h.Audit)
	mux.HandleFunc("/.well-known/jwks.json", h.JWKS)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type meResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

func (h *AuthHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Password = strings.TrimSpace(req.Password)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "email and password required")
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	ctx := r.Context()
	count, err := h.users.Count(ctx)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to count users")
		return
	}

	user := storage.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         defaultRole(count),
		Active:       true,
	}

	tx, err := h.pool.Begin(ctx)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to start transaction")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.users.CreateTx(ctx, tx, user); err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			httpx.WriteError(w, http.StatusConflict, "email already registered")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	createdPayload, err := json.Marshal(map[string]any{
		"user_id":    user.ID,
		"email":      user.Email,
		"name":       user.Name,
		"role":       user.Role,
		"created_at": time.Now().UTC(),
	})
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to marshal user event")
		return
	}
	if err := h.outbox.Insert(ctx, tx, eventx.Event{
		AggregateType: "user",
		AggregateID:   user.ID,
		EventType:     "auth.user.created.v1",
		Payload:       createdPayload,
	}); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to enqueue user event")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to commit transaction")
		return
	}

	_ = h.audit.Record(ctx, user.ID, "user.register", map[string]any{"role": user.Role})

	token, err := issueJWT(user, h.signer)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	refreshToken, err := h.issueRefreshToken(ctx, user.ID)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to issue refresh token")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, loginResponse{
		AccessToken:  token,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	})
}

// defaultRole grants admin to the very first registered user so a fresh
// deployment can bootstrap itself. Everyone after starts as receptionist
// until an admin promotes them.
func defaultRole(existingUsers int) string {
	if existingUsers == 0 {
		return auth.RoleAdmin
	}
	return auth.RoleReceptionist
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Password = strings.TrimSpace(req.Password)
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "email and password required")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "failed to lookup user")
		return
	}
	if !user.Active {
		httpx.WriteError(w, http.StatusUnauthorized, "account disabled")
		return
	}

	if err := verifyPassword(user.PasswordHash, req.Password); err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := issueJWT(user, h.signer)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	refreshToken, err := h.issueRefreshToken(r.Context(), user.ID)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to issue refresh token")
		return
	}

	_ = h.audit.Record(r.Context(), user.ID, "user.login", nil)

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken:  token,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "refresh_token required")
		return
	}

	hash := sessions.HashToken(req.RefreshToken)
	tokenRecord, err := h.refreshRepo.GetByHash(r.Context(), hash)
	if err != nil {
		if sessions.IsNotFound(err) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "failed to lookup refresh token")
		return
	}
	if tokenRecord.RevokedAt != nil || tokenRecord.ExpiresAt.Before(time.Now()) {
		httpx.WriteError(w, http.StatusUnauthorized, "refresh token expired")
		return
	}

	user, err := h.users.GetByID(r.Context(), tokenRecord.UserID)
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "failed to lookup user")
		return
	}
	if !user.Active {
		httpx.WriteError(w, http.StatusUnauthorized, "account disabled")
		return
	}

	if err := h.refreshRepo.Revoke(r.Context(), tokenRecord.ID); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to rotate refresh token")
		return
	}

	newRefreshToken, err := h.issueRefreshToken(r.Context(), user.ID)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to issue refresh token")
		return
	}
	newAccessToken, err := issueJWT(user, h.signer)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken:  newAccessToken,
		RefreshToken: newRefreshToken,
		TokenType:    "Bearer",
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "refresh_token required")
		return
	}

	hash := sessions.HashToken(req.RefreshToken)
	tokenRecord, err := h.refreshRepo.GetByHash(r.Context(), hash)
	if err != nil {
		if sessions.IsNotFound(err) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "failed to lookup refresh token")
		return
	}

	if tokenRecord.RevokedAt == nil {
		if err := h.refreshRepo.Revoke(r.Context(), tokenRecord.ID); err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "failed to revoke refresh token")
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	claims, ok := h.bearerClaims(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), claims.Sub)
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "failed to lookup user")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, meResponse{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
	})
}

// Permissions returns the explicit grant list for the caller's role so
// frontends can hide controls the user cannot act on.
func (h *AuthHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	claims, ok := h.bearerClaims(w, r)
	if !ok {
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"role":        claims.Role,
		"admin":       claims.Role == auth.RoleAdmin,
		"permissions": auth.Permissions(claims.Role),
	})
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *AuthHandler) Users(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	users, err := h.users.List(r.Context(), limit)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{
			ID: u.ID, Email: u.Email, Name: u.Name,
			Role: u.Role, Active: u.Active, CreatedAt: u.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type setRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (h *AuthHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.UserID == "" || !validRole(req.Role) {
		httpx.WriteError(w, http.StatusBadRequest, "user_id and a valid role required")
		return
	}

	if err := h.users.SetRole(r.Context(), req.UserID, req.Role); err != nil {
		if storage.IsNotFound(err) {
			httpx.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "failed to update role")
		return
	}

	// Existing sessions carry the old role in their access tokens; cutting
	// refresh tokens caps that exposure at the access token TTL.
	if err := h.refreshRepo.RevokeAllForUser(r.Context(), req.UserID); err != nil {
		h.logger.Warn("failed to revoke sessions after role change", "user_id", req.UserID, "error", err)
	}

	_ = h.audit.Record(r.Context(), actor.Sub, "user.role_changed", map[string]any{
		"user_id": req.UserID,
		"role":    req.Role,
	})

	w.WriteHeader(http.StatusNoContent)
}

type setActiveRequest struct {
	UserID string `json:"user_id"`
	Active bool   `json:"active"`
}

func (h *AuthHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.UserID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "user_id required")
		return
	}
	if req.UserID == actor.Sub && !req.Active {
		httpx.WriteError(w, http.StatusBadRequest, "cannot deactivate your own account")
		return
	}

	if err := h.users.SetActive(r.Context(), req.UserID, req.Active); err != nil {
		if storage.IsNotFound(err) {
			httpx.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	if !req.Active {
		if err := h.refreshRepo.RevokeAllForUser(r.Context(), req.UserID); err != nil {
			h.logger.Warn("failed to revoke sessions after deactivation", "user_id", req.UserID, "error", err)
		}
	}

	_ = h.audit.Record(r.Context(), actor.Sub, "user.active_changed", map[string]any{
		"user_id": req.UserID,
		"active":  req.Active,
	})

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) JWKS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	jwks := h.signer.JWKS()
	if len(jwks) == 0 {
		httpx.WriteError(w, http.StatusNotFound, "jwks not available")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"keys": jwks})
}

func (h *AuthHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !h.signer.CanRotate() {
		httpx.WriteError(w, http.StatusBadRequest, "rotation not enabled")
		return
	}

	reqKey := r.Header.Get("X-Rotate-Key")
	if reqKey == "" || reqKey != h.signer.RotateKey() {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		ActiveKid string `json:"active_kid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.ActiveKid == "" {
		httpx.WriteError(w, http.StatusBadRequest, "active_kid is required")
		return
	}

	if err := h.signer.SetActiveKid(req.ActiveKid); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid active_kid")
		return
	}

	_ = h.audit.Record(r.Context(), "", "jwt.rotate", map[string]any{
		"active_kid": req.ActiveKid,
	})

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Audit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	events, err := h.audit.ListRecent(r.Context(), limit)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load audit events")
		return
	}
	if events == nil {
		events = []audit.Entry{}
	}

	httpx.WriteJSON(w, http.StatusOK, events)
}

func (h *AuthHandler) bearerClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") || len(strings.TrimSpace(authHeader)) <= len("Bearer ") {
		httpx.WriteError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
		return nil, false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	claims, err := h.signer.Verify(token)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
		return nil, false
	}
	return claims, true
}

func (h *AuthHandler) requireAdmin(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := h.bearerClaims(w, r)
	if !ok {
		return nil, false
	}
	if !auth.Allowed(claims.Role, auth.ActionWrite, auth.ResourceUsers) {
		httpx.WriteError(w, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return claims, true
}

func validRole(role string) bool {
	switch role {
	case auth.RoleAdmin, auth.RoleManager, auth.RoleProfessional, auth.RoleReceptionist:
		return true
	}
	return false
}

func issueJWT(user storage.User, signer TokenSigner) (string, error) {
	now := time.Now()
	return signer.Sign(auth.Claims{
		Sub:  user.ID,
		Role: user.Role,
		Iat:  now.Unix(),
		Exp:  now.Add(accessTokenTTL).Unix(),
	})
}

func (h *AuthHandler) issueRefreshToken(ctx context.Context, userID string) (string, error) {
	raw, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	expiresAt := time.Now().Add(h.refreshTTL)
	if _, err := h.refreshRepo.Create(ctx, userID, raw, expiresAt); err != nil {
		return "", err
	}
	return raw, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashPassword(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(hash string, raw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
}
