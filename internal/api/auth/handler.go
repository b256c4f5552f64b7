package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/good-yellow-bee/alertdesk/internal/models"
	"github.com/good-yellow-bee/alertdesk/internal/storage"
)

// Error codes used by the auth endpoints.
const (
	errCodeBadRequest    = "BAD_REQUEST"
	errCodeUnauthorized  = "UNAUTHORIZED"
	errCodeAccountLocked = "ACCOUNT_LOCKED"
	errCodeInternalError = "INTERNAL_ERROR"
)

// Handler serves login, token refresh and logout.
type Handler struct {
	storage storage.Storage
	jwt     *JWTService
	tokens  *TokenService
	lockout *LockoutTracker
}

// NewHandler creates the auth handler. The refresh token service is
// built here since nothing else uses it.
func NewHandler(store storage.Storage, jwt *JWTService, lockout *LockoutTracker, refreshTTL time.Duration) *Handler {
	return &Handler{
		storage: store,
		jwt:     jwt,
		tokens:  NewTokenService(store, refreshTTL),
		lockout: lockout,
	}
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenRequest is the request body for refresh and logout, both of
// which take only the refresh token.
type TokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse is returned by login and refresh.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Login verifies credentials and issues an access/refresh token pair.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "username and password required")
		return
	}

	if h.lockout.IsLocked(req.Username) {
		log.Printf("login blocked: account %s locked for %v",
			req.Username, h.lockout.RemainingLockoutTime(req.Username))
		jsonError(w, http.StatusTooManyRequests, errCodeAccountLocked,
			"account temporarily locked due to too many failed attempts")
		return
	}

	user, ok := h.authenticate(w, r, &req)
	if !ok {
		return
	}
	h.lockout.ClearFailures(req.Username)

	refreshToken, err := h.tokens.CreateRefreshToken(r.Context(), user.ID)
	if err != nil {
		log.Printf("login error: create refresh token: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	h.respondWithTokens(w, user, refreshToken, "login")
}

// authenticate resolves the user and checks the password, recording
// lockout failures and writing the error response itself. The bool is
// false when a response has already been sent.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, req *LoginRequest) (*models.User, bool) {
	user, err := h.storage.Users().GetByUsername(r.Context(), req.Username)
	if err != nil {
		log.Printf("login error: get user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return nil, false
	}

	// Unknown user and wrong password produce the same response, so the
	// endpoint does not leak which usernames exist.
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		h.lockout.RecordFailure(req.Username)
		log.Printf("login failed: user %s", req.Username)
		jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid credentials")
		return nil, false
	}
	return user, true
}

// Refresh rotates a refresh token and issues a new access token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTokenRequest(w, r)
	if !ok {
		return
	}

	user, err := h.tokens.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		log.Printf("refresh failed: %v", err)
		jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid or expired token")
		return
	}

	newRefreshToken, err := h.tokens.RotateRefreshToken(r.Context(), req.RefreshToken, user.ID)
	if err != nil {
		log.Printf("refresh error: rotate refresh token: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	h.respondWithTokens(w, user, newRefreshToken, "refresh")
}

// Logout revokes the refresh token. Revoking an unknown or already
// revoked token is not an error.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTokenRequest(w, r)
	if !ok {
		return
	}
	if err := h.tokens.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
		log.Printf("logout: revoke token: %v", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeTokenRequest(w http.ResponseWriter, r *http.Request) (*TokenRequest, bool) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return nil, false
	}
	if req.RefreshToken == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "refresh_token required")
		return nil, false
	}
	return &req, true
}

func (h *Handler) respondWithTokens(w http.ResponseWriter, user *models.User, refreshToken, action string) {
	accessToken, err := h.jwt.GenerateToken(user)
	if err != nil {
		log.Printf("%s error: generate access token: %v", action, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	log.Printf("%s success: user %s", action, user.Username)
	jsonOK(w, &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    h.jwt.TTLSeconds(),
		TokenType:    "Bearer",
	})
}

// Response helpers, local to avoid an import cycle with the api package.

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(struct {
		Data any `json:"data"`
	}{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}
