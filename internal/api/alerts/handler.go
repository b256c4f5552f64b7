package alerts

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/good-yellow-bee/alertdesk/internal/search"
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
	errCodeBadRequest    = "BAD_REQUEST"
	errCodeInternalError = "INTERNAL_ERROR"
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

// SearchResponse is one page of alerts with the total hit count.
type SearchResponse struct {
	Items   any   `json:"items"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}

// Handler handles alert search and report endpoints.
type Handler struct {
	reader *search.Reader
}

// NewHandler creates a new alerts handler.
func NewHandler(reader *search.Reader) *Handler {
	return &Handler{reader: reader}
}

// Search returns one page of alerts matching the query filters.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, perPage, err := parsePagination(q)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}
	filters, err := parseFilters(q)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	total, alerts, err := h.reader.Search(r.Context(), page, perPage, filters)
	if err != nil {
		log.Printf("search alerts error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, &SearchResponse{
		Items:   alerts,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

// WeeklyStats returns aggregate counts for the trailing seven days.
func (h *Handler) WeeklyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reader.WeeklyStats(r.Context())
	if err != nil {
		log.Printf("weekly stats error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonOK(w, stats)
}

// MonthlyStats returns aggregate counts for the current month to date.
func (h *Handler) MonthlyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reader.MonthlyStats(r.Context())
	if err != nil {
		log.Printf("monthly stats error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonOK(w, stats)
}
