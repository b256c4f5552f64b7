// Package notifications provides API endpoints for notification
// settings, recipients, manual dispatch and the delivery audit log.
package notifications

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/good-yellow-bee/alertdesk/internal/api/middleware"
	"github.com/good-yellow-bee/alertdesk/internal/models"
	"github.com/good-yellow-bee/alertdesk/internal/notifier"
	"github.com/good-yellow-bee/alertdesk/internal/storage"
)

// Response helpers (local to avoid import cycle)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type dataResponse struct {
	Data any `json:"data"`
}

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeNotFound         = "NOT_FOUND"
	errCodeConflict         = "CONFLICT"
	errCodeRateLimited      = "RATE_LIMITED"
	errCodeInternalError    = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}})
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

func jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Handler handles notification endpoints.
type Handler struct {
	storage    storage.Storage
	dispatcher *notifier.Dispatcher
}

// NewHandler creates a new notifications handler.
func NewHandler(store storage.Storage, dispatcher *notifier.Dispatcher) *Handler {
	return &Handler{storage: store, dispatcher: dispatcher}
}

// ConfigRequest is the request body for creating or replacing the
// notification settings.
type ConfigRequest struct {
	AlertThreshold int    `json:"alert_threshold"`
	IsEnabled      bool   `json:"is_enabled"`
	SMTPHost       string `json:"smtp_host"`
	SMTPPort       int    `json:"smtp_port"`
	SMTPUsername   string `json:"smtp_username"`
	SMTPPassword   string `json:"smtp_password"`
	SenderEmail    string `json:"sender_email"`
	SenderName     string `json:"sender_name"`
}

// EmailRequest is the request body for creating or updating a recipient.
type EmailRequest struct {
	Email       string `json:"email"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// SendRequest is the request body for a manual notification.
type SendRequest struct {
	AlertID      string   `json:"alert_id"`
	RecipientIDs []string `json:"recipient_ids"`
	Message      string   `json:"message"`
}

// GetConfig returns the stored notification settings.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.storage.Notifications().GetConfig(r.Context())
	if err != nil {
		log.Printf("get notification config error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if cfg == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "notification settings have not been created")
		return
	}

	jsonOK(w, cfg)
}

// PutConfig creates or replaces the notification settings.
func (h *Handler) PutConfig(w http.ResponseWriter, r *http.Request) {
	var req ConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if req.AlertThreshold < 0 || req.AlertThreshold > 15 {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "alert_threshold must be between 0 and 15")
		return
	}
	if req.SMTPHost == "" || req.SMTPPort == 0 || req.SenderEmail == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "smtp_host, smtp_port and sender_email are required")
		return
	}
	// Most SMTP providers authenticate with the sender address
	if req.SMTPUsername == "" {
		req.SMTPUsername = req.SenderEmail
	}

	ctx := r.Context()
	existing, err := h.storage.Notifications().GetConfig(ctx)
	if err != nil {
		log.Printf("put notification config error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	now := time.Now()
	cfg := &models.NotificationConfig{
		AlertThreshold: req.AlertThreshold,
		IsEnabled:      req.IsEnabled,
		SMTPHost:       req.SMTPHost,
		SMTPPort:       req.SMTPPort,
		SMTPUsername:   req.SMTPUsername,
		SMTPPassword:   req.SMTPPassword,
		SenderEmail:    req.SenderEmail,
		SenderName:     req.SenderName,
		UpdatedAt:      now,
	}

	if existing == nil {
		cfg.ID = uuid.New().String()
		cfg.CreatedAt = now
		err = h.storage.Notifications().CreateConfig(ctx, cfg)
	} else {
		cfg.ID = existing.ID
		cfg.CreatedAt = existing.CreatedAt
		// Keep the stored password when the request omits it
		if cfg.SMTPPassword == "" {
			cfg.SMTPPassword = existing.SMTPPassword
		}
		err = h.storage.Notifications().UpdateConfig(ctx, cfg)
	}
	if err != nil {
		log.Printf("put notification config error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("notification config updated by %s", middleware.GetUsername(ctx))

	jsonOK(w, cfg)
}

// ListEmails returns all recipients.
func (h *Handler) ListEmails(w http.ResponseWriter, r *http.Request) {
	emails, err := h.storage.Notifications().ListEmails(r.Context())
	if err != nil {
		log.Printf("list notification emails error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if emails == nil {
		emails = []*models.NotificationEmail{}
	}

	jsonOK(w, emails)
}

// CreateEmail adds a recipient.
func (h *Handler) CreateEmail(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "a valid email address is required")
		return
	}

	rec := models.NewNotificationEmail(email, req.Description)
	if req.IsActive != nil {
		rec.IsActive = *req.IsActive
	}

	err := h.storage.Notifications().CreateEmail(r.Context(), rec)
	if errors.Is(err, storage.ErrAlreadyExists) {
		jsonError(w, http.StatusConflict, errCodeConflict, "email already exists")
		return
	}
	if err != nil {
		log.Printf("create notification email error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonCreated(w, rec)
}

// UpdateEmail updates a recipient.
func (h *Handler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "a valid email address is required")
		return
	}

	rec := &models.NotificationEmail{
		ID:          id,
		Email:       email,
		Description: req.Description,
		IsActive:    true,
	}
	if req.IsActive != nil {
		rec.IsActive = *req.IsActive
	}

	err := h.storage.Notifications().UpdateEmail(r.Context(), rec)
	if errors.Is(err, storage.ErrNotFound) {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "recipient not found")
		return
	}
	if err != nil {
		log.Printf("update notification email error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, rec)
}

// DeleteEmail removes a recipient.
func (h *Handler) DeleteEmail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.storage.Notifications().DeleteEmail(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "recipient not found")
		return
	}
	if err != nil {
		log.Printf("delete notification email error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonNoContent(w)
}

// Send dispatches a manual notification for a managed alert to the
// selected recipients. Inactive or unknown recipient ids are dropped;
// if none remain the request is rejected.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.AlertID == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "alert_id is required")
		return
	}
	if len(req.RecipientIDs) == 0 {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "recipient_ids is required")
		return
	}

	ctx := r.Context()

	alert, err := h.storage.ManagedAlerts().GetByID(ctx, req.AlertID)
	if err != nil {
		log.Printf("send notification error: get alert: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if alert == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "alert not found")
		return
	}

	recipients, err := h.storage.Notifications().ActiveEmailsByID(ctx, req.RecipientIDs)
	if err != nil {
		log.Printf("send notification error: resolve recipients: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if len(recipients) == 0 {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "no active recipients match the given ids")
		return
	}

	userID := middleware.GetUserID(ctx)
	err = h.dispatcher.Send(ctx, alert, userID, recipients, req.Message)
	switch {
	case errors.Is(err, notifier.ErrNotConfigured):
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	case errors.Is(err, notifier.ErrRateLimited):
		jsonError(w, http.StatusTooManyRequests, errCodeRateLimited, "too many notifications, try again later")
		return
	case err != nil:
		log.Printf("send notification error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "notification delivery failed")
		return
	}

	jsonOK(w, map[string]any{
		"alert_id":   alert.ID,
		"recipients": len(recipients),
		"sent":       true,
	})
}

// ListHistory returns one page of the delivery audit log.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	perPage := 20
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "page must be a positive integer")
			return
		}
		page = n
	}
	if v := q.Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "per_page must be between 1 and 100")
			return
		}
		perPage = n
	}

	entries, total, err := h.storage.Notifications().ListHistory(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		log.Printf("list notification history error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if entries == nil {
		entries = []*models.NotificationHistory{}
	}

	jsonOK(w, map[string]any{
		"items":    entries,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}
