package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/plant-scanner/internal/models"
	"github.com/plant-scanner/internal/recognizer"
	"github.com/plant-scanner/internal/service"
	"github.com/plant-scanner/internal/types"
)

// Mock services for testing

type mockAccountService struct {
	registerFunc     func(ctx context.Context, input *service.RegisterInput) (*models.User, error)
	authenticateFunc func(ctx context.Context, identifier, password string) (string, *models.User, error)
}

func (m *mockAccountService) Register(ctx context.Context, input *service.RegisterInput) (*models.User, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, input)
	}
	return &models.User{
		ID:             "user-123",
		Username:       input.Username,
		Email:          input.Email,
		ProfilePicture: models.DefaultProfilePicture,
		CreatedAt:      time.Now(),
	}, nil
}

func (m *mockAccountService) Authenticate(ctx context.Context, identifier, password string) (string, *models.User, error) {
	if m.authenticateFunc != nil {
		return m.authenticateFunc(ctx, identifier, password)
	}
	return "token-abc", &models.User{
		ID:             "user-123",
		Username:       "alice",
		Email:          "alice@example.com",
		ProfilePicture: models.DefaultProfilePicture,
	}, nil
}

func (m *mockAccountService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	return nil
}

func (m *mockAccountService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return &models.Profile{
		ID:             userID,
		Username:       "alice",
		Email:          "alice@example.com",
		ProfilePicture: models.DefaultProfilePicture,
	}, nil
}

func (m *mockAccountService) UpdateProfilePicture(ctx context.Context, userID, uri string) error {
	return nil
}

type mockScanService struct {
	ingestFunc func(ctx context.Context, input *service.IngestInput) (*service.IngestResult, error)
}

func (m *mockScanService) Ingest(ctx context.Context, input *service.IngestInput) (*service.IngestResult, error) {
	if m.ingestFunc != nil {
		return m.ingestFunc(ctx, input)
	}
	return &service.IngestResult{
		Record: &models.PlantRecord{
			ID:         "record-1",
			Species:    input.Species,
			Confidence: input.Confidence,
			Rarity:     input.Rarity,
			CreatedAt:  time.Now(),
		},
		AddedToCollection: true,
	}, nil
}

func (m *mockScanService) GetHistory(ctx context.Context, userID string) ([]*models.PlantRecord, error) {
	return []*models.PlantRecord{
		{ID: "record-1", Species: "Rosa chinensis", Confidence: 0.91, Rarity: types.RarityCommon},
	}, nil
}

func (m *mockScanService) GetCollection(ctx context.Context, userID string) ([]*models.PlantRecord, error) {
	return []*models.PlantRecord{
		{ID: "record-1", Species: "Rosa chinensis", Confidence: 0.91, Rarity: types.RarityCommon},
	}, nil
}

type mockLeaderboardService struct {
	computeFunc func(ctx context.Context) ([]*models.Standing, error)
}

func (m *mockLeaderboardService) Compute(ctx context.Context) ([]*models.Standing, error) {
	if m.computeFunc != nil {
		return m.computeFunc(ctx)
	}
	return []*models.Standing{
		{Username: "alice", CollectionSize: 3},
		{Username: "bob", CollectionSize: 1},
	}, nil
}

type mockRecognizer struct {
	identifyFunc func(ctx context.Context, image io.Reader, filename string) (*recognizer.Identification, error)
}

func (m *mockRecognizer) Identify(ctx context.Context, image io.Reader, filename string) (*recognizer.Identification, error) {
	if m.identifyFunc != nil {
		return m.identifyFunc(ctx, image, filename)
	}
	return &recognizer.Identification{
		BestMatch: "Rosa chinensis",
		Candidates: []recognizer.Candidate{
			{Species: "Rosa chinensis", Score: 0.91, Rarity: types.RarityCommon},
		},
	}, nil
}

// mockTokens accepts exactly one token and maps it to a fixed user ID
type mockTokens struct{}

func (m *mockTokens) Verify(token string) (string, error) {
	if token == "good-token" {
		return "user-123", nil
	}
	return "", errors.New("invalid token")
}

// Helper function to create test server
// Note: This creates a server with mock-backed services for testing
// For full integration tests, use real service implementations
func createTestServer() *Server {
	config := &ServerConfig{
		Host:              "localhost",
		Port:              "8080",
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		RequestsPerSecond: 100,
		Burst:             100,
	}

	server := &Server{
		router:             mux.NewRouter(),
		accountService:     &mockAccountService{},
		scanService:        &mockScanService{},
		leaderboardService: &mockLeaderboardService{},
		recognizerClient:   &mockRecognizer{},
		tokens:             &mockTokens{},
		config:             config,
	}
	server.setupRouter()
	return server
}

func authedRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer good-token")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// TestHealthEndpoint tests the health check endpoint
func TestHealthEndpoint(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", response["status"])
	}
}

// TestRegister_Success tests successful registration
func TestRegister_Success(t *testing.T) {
	server := createTestServer()

	reqBody := map[string]interface{}{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123",
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest("POST", "/api/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}

	var response struct {
		Message string         `json:"message"`
		User    models.Profile `json:"user"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response.User.Username != "alice" {
		t.Errorf("Expected username 'alice', got '%s'", response.User.Username)
	}
	if response.User.ProfilePicture == "" {
		t.Error("Expected a default profile picture")
	}
}

// TestRegister_Conflict tests registration with a taken username
func TestRegister_Conflict(t *testing.T) {
	server := createTestServer()
	server.accountService = &mockAccountService{
		registerFunc: func(ctx context.Context, input *service.RegisterInput) (*models.User, error) {
			return nil, &types.ServiceError{Code: types.CodeConflict, Message: "username is already taken"}
		},
	}

	reqBody := map[string]interface{}{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123",
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest("POST", "/api/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
}

// TestLogin_Success tests successful login
func TestLogin_Success(t *testing.T) {
	server := createTestServer()

	reqBody := map[string]interface{}{
		"identifier": "alice",
		"password":   "secret123",
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest("POST", "/api/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Token string         `json:"token"`
		User  models.Profile `json:"user"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response.Token == "" {
		t.Error("Expected a token in the login response")
	}
	if response.User.Username != "alice" {
		t.Errorf("Expected username 'alice', got '%s'", response.User.Username)
	}
}

// TestLogin_InvalidCredentials tests login with bad credentials
func TestLogin_InvalidCredentials(t *testing.T) {
	server := createTestServer()
	server.accountService = &mockAccountService{
		authenticateFunc: func(ctx context.Context, identifier, password string) (string, *models.User, error) {
			return "", nil, &types.ServiceError{Code: types.CodeUnauthorized, Message: "invalid credentials"}
		},
	}

	reqBody := map[string]interface{}{
		"identifier": "alice",
		"password":   "wrong",
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest("POST", "/api/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

// TestIngest_Success tests successful scan ingestion
func TestIngest_Success(t *testing.T) {
	server := createTestServer()

	reqBody := map[string]interface{}{
		"species":    "Rosa chinensis",
		"confidence": 0.91,
		"rarity":     "common",
	}
	body, _ := json.Marshal(reqBody)

	req := authedRequest("POST", "/api/history", bytes.NewReader(body))

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}

	var response struct {
		Message           string             `json:"message"`
		AddedToCollection bool               `json:"addedToCollection"`
		Plant             models.PlantRecord `json:"plant"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !response.AddedToCollection {
		t.Error("Expected addedToCollection to be true")
	}
	if response.Plant.Species != "Rosa chinensis" {
		t.Errorf("Expected species to match, got '%s'", response.Plant.Species)
	}
}

// TestIngest_ViaCollectionRoute tests that POST /api/collection feeds
// the same ingestion pipeline
func TestIngest_ViaCollectionRoute(t *testing.T) {
	server := createTestServer()

	reqBody := map[string]interface{}{
		"species":    "Ficus elastica",
		"confidence": 0.75,
		"rarity":     "uncommon",
	}
	body, _ := json.Marshal(reqBody)

	req := authedRequest("POST", "/api/collection", bytes.NewReader(body))

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}
}

// TestIngest_Unauthorized tests ingestion without a token
func TestIngest_Unauthorized(t *testing.T) {
	server := createTestServer()

	reqBody := map[string]interface{}{
		"species":    "Rosa chinensis",
		"confidence": 0.91,
		"rarity":     "common",
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest("POST", "/api/history", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

// TestIngest_BadToken tests ingestion with an invalid token
func TestIngest_BadToken(t *testing.T) {
	server := createTestServer()

	reqBody := map[string]interface{}{
		"species":    "Rosa chinensis",
		"confidence": 0.91,
		"rarity":     "common",
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest("POST", "/api/history", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer expired-token")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

// TestGetHistory_Success tests history retrieval
func TestGetHistory_Success(t *testing.T) {
	server := createTestServer()

	req := authedRequest("GET", "/api/history", nil)

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response []*models.PlantRecord
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(response) == 0 {
		t.Error("Expected at least one record")
	}
}

// TestGetCollection_Success tests collection retrieval
func TestGetCollection_Success(t *testing.T) {
	server := createTestServer()

	req := authedRequest("GET", "/api/collection", nil)

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

// TestLeaderboard_Success tests the public leaderboard endpoint
func TestLeaderboard_Success(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/api/leaderboard", nil)

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response []*models.Standing
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(response) != 2 {
		t.Fatalf("Expected 2 standings, got %d", len(response))
	}
	if response[0].CollectionSize < response[1].CollectionSize {
		t.Error("Expected standings ordered by collection size descending")
	}
}

// TestLeaderboard_NoAuthRequired tests that the leaderboard works
// without a token
func TestLeaderboard_NoAuthRequired(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/api/leaderboard", nil)

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code == http.StatusUnauthorized {
		t.Error("Leaderboard must not require authentication")
	}
}

// TestMe_Success tests profile retrieval
func TestMe_Success(t *testing.T) {
	server := createTestServer()

	req := authedRequest("GET", "/api/me", nil)

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response models.Profile
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response.ID != "user-123" {
		t.Errorf("Expected user ID 'user-123', got '%s'", response.ID)
	}
}

// TestServer_GracefulShutdown tests that Shutdown stops the listener and
// Start reports the close as http.ErrServerClosed, not a startup failure
func TestServer_GracefulShutdown(t *testing.T) {
	config := &ServerConfig{
		Host:              "127.0.0.1",
		Port:              "0",
		ReadTimeout:       time.Second,
		WriteTimeout:      time.Second,
		IdleTimeout:       time.Second,
		ShutdownTimeout:   time.Second,
		RequestsPerSecond: 100,
		Burst:             100,
	}
	server := NewServer(config, &mockAccountService{}, &mockScanService{}, &mockLeaderboardService{}, &mockRecognizer{}, &mockTokens{})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Give the listener a moment to come up
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("Start() after shutdown = %v, want http.ErrServerClosed", err)
	}
}

// TestCORSHeaders tests that CORS headers are properly set
func TestCORSHeaders(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Expected CORS headers to be set")
	}
}
