package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/JoethonDev/stockwatcher/internal/models"
	"github.com/JoethonDev/stockwatcher/internal/storage"
)

// testServer creates a test server backed by a temp SQLite database.
func testServer(t *testing.T) (*Server, storage.Storage, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "stockwatcher-test-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	tmpFile.Close()

	store := storage.NewSQLiteStorage(tmpFile.Name())
	if err := store.Open(); err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("open storage: %v", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		os.Remove(tmpFile.Name())
		t.Fatalf("migrate storage: %v", err)
	}

	cfg := &Config{
		Address:          ":0",
		JWTSecret:        []byte("test-jwt-secret-32-bytes-long!!"),
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  24 * time.Hour,
		RateLimitPerIP:   100,
		RateLimitPerUser: 100,
		LockoutThreshold: 5,
		LockoutDuration:  30 * time.Minute,
		AllowSignup:      true,
		Verbose:          false,
	}

	srv, err := New(cfg, store)
	if err != nil {
		store.Close()
		os.Remove(tmpFile.Name())
		t.Fatalf("create server: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.Remove(tmpFile.Name())
	}

	return srv, store, cleanup
}

// createTestUser creates a user in the database for testing
func createTestUser(t *testing.T, store storage.Storage, username, password string, role models.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	now := time.Now()
	user := &models.User{
		ID:           "test-" + username,
		Username:     username,
		Email:        username + "@test.com",
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	return user
}

// createTestCompany seeds a company for alert creation tests.
func createTestCompany(t *testing.T, store storage.Storage, symbol, name string) *models.Company {
	t.Helper()

	company := models.NewCompany(symbol, name)
	if err := store.Companies().Create(context.Background(), company); err != nil {
		t.Fatalf("create company: %v", err)
	}
	return company
}

// handler returns the HTTP handler for the server
func handler(srv *Server) http.Handler {
	return srv.server.Handler
}

// login performs a login request and returns the access and refresh tokens.
func login(t *testing.T, srv *Server, username, password string) (string, string) {
	t.Helper()

	body := `{"username":"` + username + `","password":"` + password + `"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login: status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Data.AccessToken, resp.Data.RefreshToken
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestLogin_Success(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "testuser", "TestPassword123!", models.RoleMember)

	body := `{"username":"testuser","password":"TestPassword123!"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Data struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
			ExpiresIn    int    `json:"expires_in"`
			TokenType    string `json:"token_type"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Data.AccessToken == "" {
		t.Error("expected non-empty access_token")
	}
	if resp.Data.RefreshToken == "" {
		t.Error("expected non-empty refresh_token")
	}
	if resp.Data.TokenType != "Bearer" {
		t.Errorf("token_type = %q, want Bearer", resp.Data.TokenType)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "testuser", "TestPassword123!", models.RoleMember)

	body := `{"username":"testuser","password":"wrongpassword"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRegister_Success(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	body := `{"username":"newuser","email":"new@example.com","password":"MyP@ssw0rd123!"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.AccessToken == "" {
		t.Error("expected non-empty access_token")
	}

	user, err := store.Users().GetByUsername(context.Background(), "newuser")
	if err != nil || user == nil {
		t.Fatalf("user not created: %v", err)
	}
	if user.Role != models.RoleMember {
		t.Errorf("role = %q, want member", user.Role)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "taken", "TestPassword123!", models.RoleMember)

	body := `{"username":"taken","email":"other@example.com","password":"MyP@ssw0rd123!"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestRegister_WeakPassword(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	body := `{"username":"newuser","email":"new@example.com","password":"weak"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRefresh_Success(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "testuser", "TestPassword123!", models.RoleMember)
	_, refreshToken := login(t, srv, "testuser", "TestPassword123!")

	refreshBody := `{"refresh_token":"` + refreshToken + `"}`
	refreshReq := httptest.NewRequest("POST", "/api/v1/auth/refresh", bytes.NewBufferString(refreshBody))
	refreshReq.Header.Set("Content-Type", "application/json")
	refreshRec := httptest.NewRecorder()
	handler(srv).ServeHTTP(refreshRec, refreshReq)

	if refreshRec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d; body: %s", refreshRec.Code, http.StatusOK, refreshRec.Body.String())
	}
}

func TestProtectedEndpoint_NoToken(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	req := httptest.NewRequest("GET", "/api/v1/users/me", nil)
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestProtectedEndpoint_WithToken(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "testuser", "TestPassword123!", models.RoleMember)
	accessToken, _ := login(t, srv, "testuser", "TestPassword123!")

	req := httptest.NewRequest("GET", "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Username != "testuser" {
		t.Errorf("username = %q, want testuser", resp.Data.Username)
	}
}

func TestCompanies_Public(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestCompany(t, store, "AAPL", "Apple Inc.")

	req := httptest.NewRequest("GET", "/api/v1/companies/", nil)
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Data []struct {
			Symbol string `json:"symbol"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].Symbol != "AAPL" {
		t.Errorf("unexpected companies: %+v", resp.Data)
	}
}

func TestAlertLifecycle(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "testuser", "TestPassword123!", models.RoleMember)
	createTestCompany(t, store, "AAPL", "Apple Inc.")
	accessToken, _ := login(t, srv, "testuser", "TestPassword123!")

	// Create
	createBody := `{"symbol":"AAPL","kind":"threshold","direction":"above","target_price":"150.00"}`
	createReq := httptest.NewRequest("POST", "/api/v1/alerts/", bytes.NewBufferString(createBody))
	createReq.Header.Set("Content-Type", "application/json")
	createReq.Header.Set("Authorization", "Bearer "+accessToken)
	createRec := httptest.NewRecorder()
	handler(srv).ServeHTTP(createRec, createReq)

	if createRec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body: %s", createRec.Code, createRec.Body.String())
	}

	var createResp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(createRec.Body).Decode(&createResp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	alertID := createResp.Data.ID

	// List
	listReq := httptest.NewRequest("GET", "/api/v1/alerts/", nil)
	listReq.Header.Set("Authorization", "Bearer "+accessToken)
	listRec := httptest.NewRecorder()
	handler(srv).ServeHTTP(listRec, listReq)

	if listRec.Code != http.StatusOK {
		t.Fatalf("list: status = %d, body: %s", listRec.Code, listRec.Body.String())
	}

	var listResp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(listRec.Body).Decode(&listResp); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(listResp.Data) != 1 || listResp.Data[0].ID != alertID {
		t.Errorf("unexpected alerts: %+v", listResp.Data)
	}

	// Reactivate before firing is a conflict
	reactReq := httptest.NewRequest("POST", "/api/v1/alerts/"+alertID+"/reactivate", nil)
	reactReq.Header.Set("Authorization", "Bearer "+accessToken)
	reactRec := httptest.NewRecorder()
	handler(srv).ServeHTTP(reactRec, reactReq)

	if reactRec.Code != http.StatusConflict {
		t.Errorf("reactivate: status = %d, want %d", reactRec.Code, http.StatusConflict)
	}

	// Delete
	delReq := httptest.NewRequest("DELETE", "/api/v1/alerts/"+alertID, nil)
	delReq.Header.Set("Authorization", "Bearer "+accessToken)
	delRec := httptest.NewRecorder()
	handler(srv).ServeHTTP(delRec, delReq)

	if delRec.Code != http.StatusNoContent {
		t.Errorf("delete: status = %d, want %d", delRec.Code, http.StatusNoContent)
	}
}

func TestLogout(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "testuser", "TestPassword123!", models.RoleMember)
	accessToken, refreshToken := login(t, srv, "testuser", "TestPassword123!")

	// Logout
	logoutBody := `{"refresh_token":"` + refreshToken + `"}`
	logoutReq := httptest.NewRequest("POST", "/api/v1/auth/logout", bytes.NewBufferString(logoutBody))
	logoutReq.Header.Set("Content-Type", "application/json")
	logoutReq.Header.Set("Authorization", "Bearer "+accessToken)
	logoutRec := httptest.NewRecorder()

	handler(srv).ServeHTTP(logoutRec, logoutReq)

	if logoutRec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", logoutRec.Code, http.StatusNoContent)
	}

	// Try to refresh with revoked token
	refreshBody := `{"refresh_token":"` + refreshToken + `"}`
	refreshReq := httptest.NewRequest("POST", "/api/v1/auth/refresh", bytes.NewBufferString(refreshBody))
	refreshReq.Header.Set("Content-Type", "application/json")
	refreshRec := httptest.NewRecorder()
	handler(srv).ServeHTTP(refreshRec, refreshReq)

	if refreshRec.Code != http.StatusUnauthorized {
		t.Errorf("refresh after logout: status = %d, want %d", refreshRec.Code, http.StatusUnauthorized)
	}
}

func TestNotFoundRoute(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	req := httptest.NewRequest("GET", "/api/v1/nope", nil)
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestListUsersAdminOnly(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "boss", "TestPassword123!", models.RoleAdmin)
	createTestUser(t, store, "worker", "TestPassword123!", models.RoleMember)

	// A member gets 403.
	memberToken, _ := login(t, srv, "worker", "TestPassword123!")
	req := httptest.NewRequest("GET", "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+memberToken)
	rec := httptest.NewRecorder()
	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("member list users: status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	// An admin gets the full listing.
	adminToken, _ := login(t, srv, "boss", "TestPassword123!")
	req = httptest.NewRequest("GET", "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("admin list users: status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data []struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Errorf("listed %d users, want 2", len(resp.Data))
	}
}

func TestGetUserAdminOrSelf(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "boss", "TestPassword123!", models.RoleAdmin)
	owner := createTestUser(t, store, "owner", "TestPassword123!", models.RoleMember)
	createTestUser(t, store, "other", "TestPassword123!", models.RoleMember)

	get := func(token, id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/api/v1/users/"+id, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler(srv).ServeHTTP(rec, req)
		return rec
	}

	ownerToken, _ := login(t, srv, "owner", "TestPassword123!")
	adminToken, _ := login(t, srv, "boss", "TestPassword123!")

	// Members read their own account.
	if rec := get(ownerToken, owner.ID); rec.Code != http.StatusOK {
		t.Errorf("owner reading self: status = %d, want %d", rec.Code, http.StatusOK)
	}

	// Members cannot read anyone else's.
	if rec := get(ownerToken, "test-other"); rec.Code != http.StatusForbidden {
		t.Errorf("owner reading other: status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	// Admins read any account.
	rec := get(adminToken, owner.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin reading member: status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Username != "owner" {
		t.Errorf("username = %q, want %q", resp.Data.Username, "owner")
	}
}
