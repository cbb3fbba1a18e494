package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/JoethonDev/stockwatcher/internal/api/middleware"
	"github.com/JoethonDev/stockwatcher/internal/engine"
	"github.com/JoethonDev/stockwatcher/internal/models"
	"github.com/JoethonDev/stockwatcher/internal/storage"
)

// Mock repositories

type mockAlertRepository struct {
	alerts      []*models.Alert
	getError    error
	createError error
	deleteError error
	listError   error
}

func (m *mockAlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	if m.createError != nil {
		return m.createError
	}
	if alert.ID == "" {
		alert.ID = "alert-" + alert.Symbol
	}
	m.alerts = append(m.alerts, alert)
	return nil
}

func (m *mockAlertRepository) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	for _, a := range m.alerts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockAlertRepository) GetByIDForUser(ctx context.Context, id, userID string) (*models.Alert, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	for _, a := range m.alerts {
		if a.ID == id && a.UserID == userID {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockAlertRepository) ListByUser(ctx context.Context, userID string, filter storage.AlertFilter) ([]*models.Alert, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	var result []*models.Alert
	for _, a := range m.alerts {
		if a.UserID != userID {
			continue
		}
		if filter.IsActive != nil && a.IsActive != *filter.IsActive {
			continue
		}
		if filter.Triggered != nil && a.HasTriggered() != *filter.Triggered {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}

func (m *mockAlertRepository) ListActive(ctx context.Context) ([]*models.Alert, error) {
	return nil, nil
}

func (m *mockAlertRepository) ApplyDelta(ctx context.Context, id string, delta engine.StateDelta) error {
	return nil
}

func (m *mockAlertRepository) MarkFired(ctx context.Context, id string, delta engine.StateDelta, trigger *models.Trigger) error {
	return nil
}

func (m *mockAlertRepository) Reactivate(ctx context.Context, id, userID string) error {
	for _, a := range m.alerts {
		if a.ID == id && a.UserID == userID {
			if a.TriggeredAt == nil {
				return storage.ErrConflict
			}
			a.IsActive = true
			a.TriggeredAt = nil
			a.ConditionMetSince = nil
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *mockAlertRepository) Delete(ctx context.Context, id, userID string) error {
	if m.deleteError != nil {
		return m.deleteError
	}
	for i, a := range m.alerts {
		if a.ID == id && a.UserID == userID {
			m.alerts = append(m.alerts[:i], m.alerts[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

type mockTriggerRepository struct {
	triggers  []*models.Trigger
	listError error
}

func (m *mockTriggerRepository) GetByID(ctx context.Context, id string) (*models.Trigger, error) {
	return nil, nil
}

func (m *mockTriggerRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Trigger, int64, error) {
	if m.listError != nil {
		return nil, 0, m.listError
	}
	var result []*models.Trigger
	for _, tr := range m.triggers {
		if tr.UserID == userID {
			result = append(result, tr)
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockTriggerRepository) ListByAlert(ctx context.Context, alertID string) ([]*models.Trigger, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	var result []*models.Trigger
	for _, tr := range m.triggers {
		if tr.AlertID == alertID {
			result = append(result, tr)
		}
	}
	return result, nil
}

func (m *mockTriggerRepository) MarkNotified(ctx context.Context, id string, at time.Time) error {
	return nil
}

type mockCompanyRepository struct {
	companies []*models.Company
}

func (m *mockCompanyRepository) Create(ctx context.Context, company *models.Company) error {
	return nil
}

func (m *mockCompanyRepository) GetByID(ctx context.Context, id string) (*models.Company, error) {
	return nil, nil
}

func (m *mockCompanyRepository) GetBySymbol(ctx context.Context, symbol string) (*models.Company, error) {
	symbol = strings.ToUpper(symbol)
	for _, c := range m.companies {
		if c.Symbol == symbol {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockCompanyRepository) List(ctx context.Context) ([]*models.Company, error) {
	return m.companies, nil
}

func (m *mockCompanyRepository) UpdatePrices(ctx context.Context, prices map[string]decimal.Decimal, at time.Time) error {
	return nil
}

func (m *mockCompanyRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.companies)), nil
}

type mockStorage struct {
	alertRepo   *mockAlertRepository
	triggerRepo *mockTriggerRepository
	companyRepo *mockCompanyRepository
}

func (m *mockStorage) Open() error                           { return nil }
func (m *mockStorage) Close() error                          { return nil }
func (m *mockStorage) Migrate() error                        { return nil }
func (m *mockStorage) EnsureAdminUser() error                { return nil }
func (m *mockStorage) Users() storage.UserRepository         { return nil }
func (m *mockStorage) Companies() storage.CompanyRepository  { return m.companyRepo }
func (m *mockStorage) Alerts() storage.AlertRepository       { return m.alertRepo }
func (m *mockStorage) Triggers() storage.TriggerRepository   { return m.triggerRepo }
func (m *mockStorage) Tokens() storage.TokenRepository       { return nil }

func newMockStorage() (*mockStorage, *mockAlertRepository, *mockTriggerRepository) {
	alertRepo := &mockAlertRepository{}
	triggerRepo := &mockTriggerRepository{}
	store := &mockStorage{
		alertRepo:   alertRepo,
		triggerRepo: triggerRepo,
		companyRepo: &mockCompanyRepository{
			companies: []*models.Company{
				{ID: "company-aapl", Symbol: "AAPL", Name: "Apple Inc."},
				{ID: "company-tsla", Symbol: "TSLA", Name: "Tesla, Inc."},
			},
		},
	}
	return store, alertRepo, triggerRepo
}

func withUserContext(r *http.Request, userID string) *http.Request {
	ctx := middleware.WithUserContext(r.Context(), userID, "tester", models.RoleMember)
	return r.WithContext(ctx)
}

// withURLParam attaches a chi route parameter to the request.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func seedAlert(repo *mockAlertRepository, id, userID string, active bool, triggeredAt *time.Time) *models.Alert {
	alert := models.NewAlert(userID, "company-aapl", models.KindThreshold, models.DirectionAbove, decimal.NewFromInt(150))
	alert.ID = id
	alert.Symbol = "AAPL"
	alert.IsActive = active
	alert.TriggeredAt = triggeredAt
	repo.alerts = append(repo.alerts, alert)
	return alert
}

func TestList_Empty(t *testing.T) {
	mockStore, _, _ := newMockStorage()
	handler := NewHandler(mockStore)

	req := httptest.NewRequest("GET", "/api/v1/alerts", nil)
	req = withUserContext(req, "user-1")
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Data []*AlertResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Data) != 0 {
		t.Errorf("items count = %d, want 0", len(resp.Data))
	}
}

func TestList_ScopedToOwner(t *testing.T) {
	mockStore, alertRepo, _ := newMockStorage()
	seedAlert(alertRepo, "alert-1", "user-1", true, nil)
	seedAlert(alertRepo, "alert-2", "user-2", true, nil)

	handler := NewHandler(mockStore)
	req := httptest.NewRequest("GET", "/api/v1/alerts", nil)
	req = withUserContext(req, "user-1")
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	var resp struct {
		Data []*AlertResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Data) != 1 {
		t.Fatalf("items count = %d, want 1", len(resp.Data))
	}
	if resp.Data[0].ID != "alert-1" {
		t.Errorf("id = %q, want alert-1", resp.Data[0].ID)
	}
}

func TestList_Filters(t *testing.T) {
	mockStore, alertRepo, _ := newMockStorage()
	now := time.Now()
	seedAlert(alertRepo, "active", "user-1", true, nil)
	seedAlert(alertRepo, "fired", "user-1", false, &now)

	handler := NewHandler(mockStore)

	tests := []struct {
		name   string
		query  string
		wantID string
	}{
		{"active only", "?is_active=true", "active"},
		{"inactive only", "?is_active=false", "fired"},
		{"triggered only", "?triggered=true", "fired"},
		{"never fired", "?triggered=false", "active"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/alerts"+tc.query, nil)
			req = withUserContext(req, "user-1")
			rec := httptest.NewRecorder()

			handler.List(rec, req)

			var resp struct {
				Data []*AlertResponse `json:"data"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if len(resp.Data) != 1 {
				t.Fatalf("items count = %d, want 1", len(resp.Data))
			}
			if resp.Data[0].ID != tc.wantID {
				t.Errorf("id = %q, want %q", resp.Data[0].ID, tc.wantID)
			}
		})
	}
}

func TestList_BadFilter(t *testing.T) {
	mockStore, _, _ := newMockStorage()
	handler := NewHandler(mockStore)

	req := httptest.NewRequest("GET", "/api/v1/alerts?is_active=banana", nil)
	req = withUserContext(req, "user-1")
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreate_Success(t *testing.T) {
	mockStore, alertRepo, _ := newMockStorage()
	handler := NewHandler(mockStore)

	body := `{
		"symbol": "aapl",
		"kind": "threshold",
		"direction": "above",
		"target_price": 150.50
	}`

	req := httptest.NewRequest("POST", "/api/v1/alerts", strings.NewReader(body))
	req = withUserContext(req, "user-1")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp struct {
		Data AlertResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Data.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", resp.Data.Symbol)
	}
	if resp.Data.TargetPrice != "150.5" {
		t.Errorf("target_price = %q, want 150.5", resp.Data.TargetPrice)
	}
	if !resp.Data.IsActive {
		t.Error("new alert should be active")
	}
	if len(alertRepo.alerts) != 1 {
		t.Fatalf("stored alerts = %d, want 1", len(alertRepo.alerts))
	}
	if alertRepo.alerts[0].UserID != "user-1" {
		t.Errorf("stored user_id = %q, want user-1", alertRepo.alerts[0].UserID)
	}
	if alertRepo.alerts[0].CompanyID != "company-aapl" {
		t.Errorf("stored company_id = %q, want company-aapl", alertRepo.alerts[0].CompanyID)
	}
}

func TestCreate_DurationAlert(t *testing.T) {
	mockStore, _, _ := newMockStorage()
	handler := NewHandler(mockStore)

	body := `{
		"symbol": "TSLA",
		"kind": "duration",
		"direction": "below",
		"target_price": "200",
		"duration_seconds": 600
	}`

	req := httptest.NewRequest("POST", "/api/v1/alerts", strings.NewReader(body))
	req = withUserContext(req, "user-1")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp struct {
		Data AlertResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.DurationSeconds != 600 {
		t.Errorf("duration_seconds = %d, want 600", resp.Data.DurationSeconds)
	}
}

func TestCreate_ValidationFailures(t *testing.T) {
	mockStore, _, _ := newMockStorage()
	handler := NewHandler(mockStore)

	tests := []struct {
		name string
		body string
	}{
		{"missing symbol", `{"kind":"threshold","direction":"above","target_price":100}`},
		{"bad kind", `{"symbol":"AAPL","kind":"fancy","direction":"above","target_price":100}`},
		{"bad direction", `{"symbol":"AAPL","kind":"threshold","direction":"sideways","target_price":100}`},
		{"missing target", `{"symbol":"AAPL","kind":"threshold","direction":"above"}`},
		{"negative target", `{"symbol":"AAPL","kind":"threshold","direction":"above","target_price":-5}`},
		{"duration without seconds", `{"symbol":"AAPL","kind":"duration","direction":"above","target_price":100}`},
		{"duration beyond cap", `{"symbol":"AAPL","kind":"duration","direction":"above","target_price":100,"duration_seconds":10000000000}`},
		{"threshold with seconds", `{"symbol":"AAPL","kind":"threshold","direction":"above","target_price":100,"duration_seconds":60}`},
		{"unknown symbol", `{"symbol":"NOPE","kind":"threshold","direction":"above","target_price":100}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/alerts", strings.NewReader(tc.body))
			req = withUserContext(req, "user-1")
			rec := httptest.NewRecorder()

			handler.Create(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestGet_NotFoundForOtherUser(t *testing.T) {
	mockStore, alertRepo, _ := newMockStorage()
	seedAlert(alertRepo, "alert-1", "user-2", true, nil)

	handler := NewHandler(mockStore)
	req := httptest.NewRequest("GET", "/api/v1/alerts/alert-1", nil)
	req = withUserContext(req, "user-1")
	req = withURLParam(req, "id", "alert-1")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestDelete_Success(t *testing.T) {
	mockStore, alertRepo, _ := newMockStorage()
	seedAlert(alertRepo, "alert-1", "user-1", true, nil)

	handler := NewHandler(mockStore)
	req := httptest.NewRequest("DELETE", "/api/v1/alerts/alert-1", nil)
	req = withUserContext(req, "user-1")
	req = withURLParam(req, "id", "alert-1")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if len(alertRepo.alerts) != 0 {
		t.Errorf("stored alerts = %d, want 0", len(alertRepo.alerts))
	}
}

func TestDelete_NotFound(t *testing.T) {
	mockStore, _, _ := newMockStorage()

	handler := NewHandler(mockStore)
	req := httptest.NewRequest("DELETE", "/api/v1/alerts/missing", nil)
	req = withUserContext(req, "user-1")
	req = withURLParam(req, "id", "missing")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestReactivate_Success(t *testing.T) {
	mockStore, alertRepo, _ := newMockStorage()
	now := time.Now()
	seedAlert(alertRepo, "alert-1", "user-1", false, &now)

	handler := NewHandler(mockStore)
	req := httptest.NewRequest("POST", "/api/v1/alerts/alert-1/reactivate", nil)
	req = withUserContext(req, "user-1")
	req = withURLParam(req, "id", "alert-1")
	rec := httptest.NewRecorder()

	handler.Reactivate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Data AlertResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Data.IsActive {
		t.Error("reactivated alert should be active")
	}
	if resp.Data.TriggeredAt != "" {
		t.Errorf("triggered_at = %q, want empty", resp.Data.TriggeredAt)
	}
}

func TestReactivate_NotFired(t *testing.T) {
	mockStore, alertRepo, _ := newMockStorage()
	seedAlert(alertRepo, "alert-1", "user-1", true, nil)

	handler := NewHandler(mockStore)
	req := httptest.NewRequest("POST", "/api/v1/alerts/alert-1/reactivate", nil)
	req = withUserContext(req, "user-1")
	req = withURLParam(req, "id", "alert-1")
	rec := httptest.NewRecorder()

	handler.Reactivate(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestReactivate_NotFound(t *testing.T) {
	mockStore, _, _ := newMockStorage()

	handler := NewHandler(mockStore)
	req := httptest.NewRequest("POST", "/api/v1/alerts/missing/reactivate", nil)
	req = withUserContext(req, "user-1")
	req = withURLParam(req, "id", "missing")
	rec := httptest.NewRecorder()

	handler.Reactivate(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestListTriggers(t *testing.T) {
	mockStore, alertRepo, triggerRepo := newMockStorage()
	seedAlert(alertRepo, "alert-1", "user-1", false, nil)
	triggerRepo.triggers = []*models.Trigger{
		{
			ID:            "trigger-1",
			AlertID:       "alert-1",
			UserID:        "user-1",
			Symbol:        "AAPL",
			Kind:          models.KindThreshold,
			Direction:     models.DirectionAbove,
			TargetPrice:   decimal.NewFromInt(150),
			ObservedPrice: decimal.RequireFromString("151.25"),
			FiredAt:       time.Now(),
		},
		{ID: "trigger-2", AlertID: "other-alert", UserID: "user-1", FiredAt: time.Now()},
	}

	handler := NewHandler(mockStore)
	req := httptest.NewRequest("GET", "/api/v1/alerts/alert-1/triggers", nil)
	req = withUserContext(req, "user-1")
	req = withURLParam(req, "id", "alert-1")
	rec := httptest.NewRecorder()

	handler.ListTriggers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Data []*TriggerResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("items count = %d, want 1", len(resp.Data))
	}
	if resp.Data[0].ObservedPrice != "151.25" {
		t.Errorf("observed_price = %q, want 151.25", resp.Data[0].ObservedPrice)
	}
}

func TestListTriggers_AlertNotOwned(t *testing.T) {
	mockStore, alertRepo, _ := newMockStorage()
	seedAlert(alertRepo, "alert-1", "user-2", true, nil)

	handler := NewHandler(mockStore)
	req := httptest.NewRequest("GET", "/api/v1/alerts/alert-1/triggers", nil)
	req = withUserContext(req, "user-1")
	req = withURLParam(req, "id", "alert-1")
	rec := httptest.NewRecorder()

	handler.ListTriggers(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestList_StorageError(t *testing.T) {
	mockStore, alertRepo, _ := newMockStorage()
	alertRepo.listError = errors.New("db gone")

	handler := NewHandler(mockStore)
	req := httptest.NewRequest("GET", "/api/v1/alerts", nil)
	req = withUserContext(req, "user-1")
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
