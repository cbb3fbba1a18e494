// Package alerts provides the alert management API endpoints.
package alerts

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JoethonDev/stockwatcher/internal/api/middleware"
	"github.com/JoethonDev/stockwatcher/internal/models"
	"github.com/JoethonDev/stockwatcher/internal/storage"
)

// Response helpers (local to keep the package free of import cycles)
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

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// AlertResponse is the API representation of an alert.
type AlertResponse struct {
	ID                string `json:"id"`
	Symbol            string `json:"symbol"`
	CompanyID         string `json:"company_id"`
	Kind              string `json:"kind"`
	Direction         string `json:"direction"`
	TargetPrice       string `json:"target_price"`
	DurationSeconds   int64  `json:"duration_seconds,omitempty"`
	IsActive          bool   `json:"is_active"`
	ConditionMetSince string `json:"condition_met_since,omitempty"`
	LastEvaluatedAt   string `json:"last_evaluated_at,omitempty"`
	TriggeredAt       string `json:"triggered_at,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// TriggerResponse is the API representation of a firing record.
type TriggerResponse struct {
	ID               string `json:"id"`
	AlertID          string `json:"alert_id"`
	Symbol           string `json:"symbol"`
	Kind             string `json:"kind"`
	Direction        string `json:"direction"`
	TargetPrice      string `json:"target_price"`
	ObservedPrice    string `json:"observed_price"`
	SustainedSeconds int64  `json:"sustained_seconds,omitempty"`
	FiredAt          string `json:"fired_at"`
	Notified         bool   `json:"notified"`
	NotifiedAt       string `json:"notified_at,omitempty"`
}

type Handler struct {
	storage storage.Storage
}

func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// CreateRequest is the request body for creating an alert.
type CreateRequest struct {
	Symbol          string      `json:"symbol"`
	Kind            string      `json:"kind"`
	Direction       string      `json:"direction"`
	TargetPrice     json.Number `json:"target_price"`
	DurationSeconds int64       `json:"duration_seconds"`
}

// List returns the caller's alerts, optionally filtered by is_active and
// triggered query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	filter, err := parseListFilter(r.URL.Query())
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	alerts, err := h.storage.Alerts().ListByUser(ctx, userID, filter)
	if err != nil {
		log.Printf("list alerts error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	resp := make([]AlertResponse, 0, len(alerts))
	for _, alert := range alerts {
		resp = append(resp, alertToResponse(alert))
	}

	jsonOK(w, resp)
}

// Get returns one of the caller's alerts by ID.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	alertID := chi.URLParam(r, "id")

	alert, err := h.storage.Alerts().GetByIDForUser(ctx, alertID, userID)
	if err != nil {
		log.Printf("get alert %s error: %v", alertID, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if alert == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "alert not found")
		return
	}

	jsonOK(w, alertToResponse(alert))
}

// Create creates a new alert for the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	alert, err := alertFromRequest(&req)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	// The symbol universe is fixed; alerts only attach to known companies.
	company, err := h.storage.Companies().GetBySymbol(ctx, req.Symbol)
	if err != nil {
		log.Printf("create alert: lookup symbol %s: %v", req.Symbol, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if company == nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "unknown symbol")
		return
	}

	alert.UserID = userID
	alert.CompanyID = company.ID
	alert.Symbol = company.Symbol

	if err := h.storage.Alerts().Create(ctx, alert); err != nil {
		log.Printf("create alert error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("alert created: %s %s %s %s by user %s",
		alert.ID, alert.Symbol, alert.Kind, alert.Direction, userID)

	jsonCreated(w, alertToResponse(alert))
}

// Delete removes one of the caller's alerts.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	alertID := chi.URLParam(r, "id")

	if err := h.storage.Alerts().Delete(ctx, alertID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "alert not found")
			return
		}
		log.Printf("delete alert %s error: %v", alertID, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("alert deleted: %s by user %s", alertID, userID)

	jsonNoContent(w)
}

// Reactivate puts a fired alert back into evaluation.
func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	alertID := chi.URLParam(r, "id")

	if err := h.storage.Alerts().Reactivate(ctx, alertID, userID); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			jsonError(w, http.StatusNotFound, errCodeNotFound, "alert not found")
		case errors.Is(err, storage.ErrConflict):
			jsonError(w, http.StatusConflict, errCodeConflict, "alert has not fired")
		default:
			log.Printf("reactivate alert %s error: %v", alertID, err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		}
		return
	}

	alert, err := h.storage.Alerts().GetByIDForUser(ctx, alertID, userID)
	if err != nil || alert == nil {
		log.Printf("reactivate alert %s: reload: %v", alertID, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("alert reactivated: %s by user %s", alertID, userID)

	jsonOK(w, alertToResponse(alert))
}

// ListTriggers returns the firing history for one of the caller's alerts.
func (h *Handler) ListTriggers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	alertID := chi.URLParam(r, "id")

	alert, err := h.storage.Alerts().GetByIDForUser(ctx, alertID, userID)
	if err != nil {
		log.Printf("list triggers: get alert %s: %v", alertID, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if alert == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "alert not found")
		return
	}

	triggers, err := h.storage.Triggers().ListByAlert(ctx, alertID)
	if err != nil {
		log.Printf("list triggers for alert %s error: %v", alertID, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	resp := make([]TriggerResponse, 0, len(triggers))
	for _, trigger := range triggers {
		resp = append(resp, TriggerToResponse(trigger))
	}

	jsonOK(w, resp)
}

// History returns the caller's firing history across all alerts,
// newest first, with limit/offset pagination.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "offset must be non-negative")
			return
		}
		offset = n
	}

	triggers, total, err := h.storage.Triggers().ListByUser(ctx, userID, limit, offset)
	if err != nil {
		log.Printf("list trigger history error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	items := make([]TriggerResponse, 0, len(triggers))
	for _, trigger := range triggers {
		items = append(items, TriggerToResponse(trigger))
	}

	jsonOK(w, map[string]any{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// parseListFilter builds an AlertFilter from query parameters.
func parseListFilter(query map[string][]string) (storage.AlertFilter, error) {
	var filter storage.AlertFilter

	if values, ok := query["is_active"]; ok && len(values) > 0 {
		b, err := strconv.ParseBool(values[0])
		if err != nil {
			return filter, errors.New("is_active must be true or false")
		}
		filter.IsActive = &b
	}
	if values, ok := query["triggered"]; ok && len(values) > 0 {
		b, err := strconv.ParseBool(values[0])
		if err != nil {
			return filter, errors.New("triggered must be true or false")
		}
		filter.Triggered = &b
	}

	return filter, nil
}

func alertToResponse(alert *models.Alert) AlertResponse {
	resp := AlertResponse{
		ID:              alert.ID,
		Symbol:          alert.Symbol,
		CompanyID:       alert.CompanyID,
		Kind:            string(alert.Kind),
		Direction:       string(alert.Direction),
		TargetPrice:     alert.TargetPrice.String(),
		DurationSeconds: alert.DurationSeconds,
		IsActive:        alert.IsActive,
		CreatedAt:       alert.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       alert.UpdatedAt.Format(time.RFC3339),
	}
	if alert.ConditionMetSince != nil {
		resp.ConditionMetSince = alert.ConditionMetSince.Format(time.RFC3339)
	}
	if alert.LastEvaluatedAt != nil {
		resp.LastEvaluatedAt = alert.LastEvaluatedAt.Format(time.RFC3339)
	}
	if alert.TriggeredAt != nil {
		resp.TriggeredAt = alert.TriggeredAt.Format(time.RFC3339)
	}
	return resp
}

// TriggerToResponse converts a trigger to its API representation. It is
// exported for reuse by the trigger history endpoint.
func TriggerToResponse(trigger *models.Trigger) TriggerResponse {
	resp := TriggerResponse{
		ID:               trigger.ID,
		AlertID:          trigger.AlertID,
		Symbol:           trigger.Symbol,
		Kind:             string(trigger.Kind),
		Direction:        string(trigger.Direction),
		TargetPrice:      trigger.TargetPrice.String(),
		ObservedPrice:    trigger.ObservedPrice.String(),
		SustainedSeconds: trigger.SustainedSeconds,
		FiredAt:          trigger.FiredAt.Format(time.RFC3339),
		Notified:         trigger.Notified,
	}
	if trigger.NotifiedAt != nil {
		resp.NotifiedAt = trigger.NotifiedAt.Format(time.RFC3339)
	}
	return resp
}
