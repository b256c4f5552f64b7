// Package review provides API endpoints for the managed alert review
// workflow: registration, state transitions and operator notes.
package review

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/alertdesk/internal/api/middleware"
	"github.com/good-yellow-bee/alertdesk/internal/models"
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

// ListResponse is one page of managed alerts.
type ListResponse struct {
	Items   any   `json:"items"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Handler handles managed alert review endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new review handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// RegisterRequest is the request body for manually registering an alert.
type RegisterRequest struct {
	Alert models.Alert `json:"alert"`
}

// UpdateStateRequest is the request body for a state transition.
type UpdateStateRequest struct {
	State string `json:"state"`
}

// NoteRequest is the request body for creating or updating a note.
type NoteRequest struct {
	Content string `json:"content"`
}

// List returns one page of managed alerts, optionally filtered by state.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	perPage := defaultPerPage
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
		if err != nil || n < 1 || n > maxPerPage {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "per_page must be between 1 and 100")
			return
		}
		perPage = n
	}

	var state models.AlertState
	if v := q.Get("state"); v != "" {
		state = models.AlertState(strings.ToLower(v))
		if !state.Valid() {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "state must be open or closed")
			return
		}
	}

	alerts, total, err := h.storage.ManagedAlerts().List(r.Context(), perPage, (page-1)*perPage, state)
	if err != nil {
		log.Printf("list managed alerts error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if alerts == nil {
		alerts = []*models.ManagedAlert{}
	}

	jsonOK(w, &ListResponse{Items: alerts, Total: total, Page: page, PerPage: perPage})
}

// Register manually registers an alert for review. A duplicate source
// alert ID is a conflict, mirroring the poller's dedup gate.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.Alert.ID == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "alert id is required")
		return
	}
	if req.Alert.Agent.ID == "" || req.Alert.Rule.ID == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "alert agent and rule are required")
		return
	}

	managed := models.NewManagedAlert(&req.Alert)
	err := h.storage.ManagedAlerts().Register(r.Context(), managed)
	if errors.Is(err, storage.ErrAlreadyExists) {
		jsonError(w, http.StatusConflict, errCodeConflict, "alert is already registered")
		return
	}
	if err != nil {
		log.Printf("register alert error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("alert registered: %s (source %s)", managed.ID, managed.AlertID)

	jsonCreated(w, managed)
}

// GetByID returns a managed alert.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	alert, err := h.storage.ManagedAlerts().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get managed alert error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if alert == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "alert not found")
		return
	}

	jsonOK(w, alert)
}

// UpdateState transitions a managed alert between open and closed.
// The state is validated here so the store never sees an invalid value.
func (h *Handler) UpdateState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	state := models.AlertState(strings.ToLower(strings.TrimSpace(req.State)))
	if !state.Valid() {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "state must be open or closed")
		return
	}

	alert, err := h.storage.ManagedAlerts().UpdateState(r.Context(), id, state)
	if errors.Is(err, storage.ErrNotFound) {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "alert not found")
		return
	}
	if err != nil {
		log.Printf("update alert state error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("alert %s transitioned to %s by %s", id, state, middleware.GetUsername(r.Context()))

	jsonOK(w, alert)
}

// ListNotes returns all notes for a managed alert, newest first.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	alert, err := h.storage.ManagedAlerts().GetByID(ctx, id)
	if err != nil {
		log.Printf("list notes error: get alert: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if alert == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "alert not found")
		return
	}

	notes, err := h.storage.Notes().ListByAlert(ctx, id)
	if err != nil {
		log.Printf("list notes error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if notes == nil {
		notes = []*models.AlertNote{}
	}

	jsonOK(w, notes)
}

// CreateNote attaches a note to a managed alert, authored by the
// current user.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "note content is required")
		return
	}

	alert, err := h.storage.ManagedAlerts().GetByID(ctx, id)
	if err != nil {
		log.Printf("create note error: get alert: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if alert == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "alert not found")
		return
	}

	note := models.NewAlertNote(id, req.Content, middleware.GetUserID(ctx))
	if err := h.storage.Notes().Create(ctx, note); err != nil {
		log.Printf("create note error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonCreated(w, note)
}

// UpdateNote replaces a note's content. Authorship moves to the
// updating user.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "id")
	noteID := chi.URLParam(r, "noteID")
	ctx := r.Context()

	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "note content is required")
		return
	}

	note, err := h.storage.Notes().Update(ctx, alertID, noteID, req.Content, middleware.GetUserID(ctx))
	if errors.Is(err, storage.ErrNotFound) {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "note not found")
		return
	}
	if err != nil {
		log.Printf("update note error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, note)
}
