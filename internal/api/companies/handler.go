// Package companies provides the tracked-symbol API endpoints.
//
// The company list and cached prices are readable without
// authentication; they carry no per-user data.
package companies

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JoethonDev/stockwatcher/internal/models"
	"github.com/JoethonDev/stockwatcher/internal/storage"
)

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
	errCodeNotFound      = "NOT_FOUND"
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

// CompanyResponse is the API representation of a tracked company.
type CompanyResponse struct {
	ID             string `json:"id"`
	Symbol         string `json:"symbol"`
	Name           string `json:"name,omitempty"`
	CurrentPrice   string `json:"current_price"`
	PriceUpdatedAt string `json:"price_updated_at,omitempty"`
}

type Handler struct {
	storage storage.Storage
}

func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// List returns every tracked company with its cached price.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companies, err := h.storage.Companies().List(r.Context())
	if err != nil {
		log.Printf("list companies error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	resp := make([]CompanyResponse, 0, len(companies))
	for _, company := range companies {
		resp = append(resp, companyToResponse(company))
	}

	// Prices move at most once per scheduler tick.
	w.Header().Set("Cache-Control", "public, max-age=30")
	jsonOK(w, resp)
}

// Get returns one company by symbol.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	company, err := h.storage.Companies().GetBySymbol(r.Context(), symbol)
	if err != nil {
		log.Printf("get company %s error: %v", symbol, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if company == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "unknown symbol")
		return
	}

	jsonOK(w, companyToResponse(company))
}

func companyToResponse(company *models.Company) CompanyResponse {
	resp := CompanyResponse{
		ID:           company.ID,
		Symbol:       company.Symbol,
		Name:         company.Name,
		CurrentPrice: company.CurrentPrice.String(),
	}
	if company.PriceUpdatedAt != nil {
		resp.PriceUpdatedAt = company.PriceUpdatedAt.Format(time.RFC3339)
	}
	return resp
}
