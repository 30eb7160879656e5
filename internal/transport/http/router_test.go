package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"secretdrop/internal/config"
	"secretdrop/internal/domain"
	"secretdrop/internal/observability/metrics"
	"secretdrop/internal/service"
	"secretdrop/internal/store"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	// The router runs the metrics middleware on every request, so the vecs
	// need their service label curried once per binary.
	metrics.MustRegister("secretdrop")
	os.Exit(m.Run())
}

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Secret{}, &domain.AccessLog{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	st := store.New(db)
	tokens := service.NewTokens(service.TokenConfig{
		Issuer:     "http://test",
		AccessTTL:  time.Hour,
		SigningKey: []byte("router-test-key"),
	})
	auth := service.NewAuth(st, tokens, service.AuthConfig{BcryptCost: bcrypt.MinCost, MinPasswordLength: 8})
	secrets := service.NewSecrets(st, service.SecretsConfig{BcryptCost: bcrypt.MinCost})

	h := NewHandler(auth, secrets, "")
	router := NewRouter(h, tokens, config.RateLimitConfig{Enabled: false})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, bearer string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestFullScenario(t *testing.T) {
	srv := setupServer(t)

	// Signup and login.
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/signup", "", map[string]string{
		"email": "owner@example.com", "password": "longenough",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/login", "", map[string]string{
		"email": "owner@example.com", "password": "longenough",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	bearer, _ := body["token"].(string)
	if bearer == "" {
		t.Fatal("login response missing token")
	}

	// Create a secret.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/secret", bearer, map[string]string{
		"message": "launch codes", "password": "swordfish",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create secret: expected 201, got %d", resp.StatusCode)
	}
	secretURL, _ := body["secretUrl"].(string)
	token := strings.TrimPrefix(secretURL, "/secret/")
	if token == "" || token == secretURL {
		t.Fatalf("unexpected secretUrl %q", secretURL)
	}

	// Probe without a password.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/secret/"+token, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("probe: expected 200, got %d", resp.StatusCode)
	}
	if exists, _ := body["exists"].(bool); !exists {
		t.Fatal("probe: expected exists=true")
	}

	// Wrong password leaves the secret intact.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/secret/"+token+"/view", "", map[string]string{"password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/secret/"+token, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("probe after failed view: expected 200, got %d", resp.StatusCode)
	}

	// Correct password discloses exactly once.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/secret/"+token+"/view", "", map[string]string{"password": "swordfish"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("view: expected 200, got %d", resp.StatusCode)
	}
	if secret, _ := body["secret"].(string); secret != "launch codes" {
		t.Fatalf("unexpected secret %q", secret)
	}

	// Consumed: probe and repeat views 404 alike.
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/secret/"+token, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("probe after view: expected 404, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/secret/"+token+"/view", "", map[string]string{"password": "swordfish"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("repeat view: expected 404, got %d", resp.StatusCode)
	}
}

func TestCreateSecretRequiresAuth(t *testing.T) {
	srv := setupServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/secret", "", map[string]string{
		"message": "m", "password": "p",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/secret", "bogus-token", map[string]string{
		"message": "m", "password": "p",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for invalid token, got %d", resp.StatusCode)
	}
}

func TestViewValidation(t *testing.T) {
	srv := setupServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/secret/whatever/view", "", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing password: expected 400, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/secret/whatever/view", "", map[string]string{"password": "x"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown token: expected 404, got %d", resp.StatusCode)
	}
}

func TestSignupConflictAndValidation(t *testing.T) {
	srv := setupServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/signup", "", map[string]string{"email": "", "password": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/signup", "", map[string]string{"email": "c@example.com", "password": "longenough"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/signup", "", map[string]string{"email": "c@example.com", "password": "longenough"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestMetricsLabelsUseRoutePattern(t *testing.T) {
	srv := setupServer(t)

	doJSON(t, http.MethodPost, srv.URL+"/api/signup", "", map[string]string{"email": "mx@example.com", "password": "longenough"})
	_, body := doJSON(t, http.MethodPost, srv.URL+"/api/login", "", map[string]string{"email": "mx@example.com", "password": "longenough"})
	bearer, _ := body["token"].(string)

	_, body = doJSON(t, http.MethodPost, srv.URL+"/api/secret", bearer, map[string]string{
		"message": "m", "password": "p",
	})
	secretURL, _ := body["secretUrl"].(string)
	token := strings.TrimPrefix(secretURL, "/secret/")
	if token == "" || token == secretURL {
		t.Fatalf("unexpected secretUrl %q", secretURL)
	}

	doJSON(t, http.MethodGet, srv.URL+"/api/secret/"+token, "", nil)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("scrape metrics: %v", err)
	}
	defer resp.Body.Close()
	scrape, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}

	if !strings.Contains(string(scrape), `path="/api/secret/{token}"`) {
		t.Fatal("expected probe to be labelled by its route pattern")
	}
	if !strings.Contains(string(scrape), "http_request_duration_seconds") {
		t.Fatal("expected curried duration histogram to be registered")
	}
	if strings.Contains(string(scrape), token) {
		t.Fatal("secret token leaked into metric labels")
	}
}

func TestMe(t *testing.T) {
	srv := setupServer(t)

	doJSON(t, http.MethodPost, srv.URL+"/api/signup", "", map[string]string{"email": "me@example.com", "password": "longenough"})
	_, body := doJSON(t, http.MethodPost, srv.URL+"/api/login", "", map[string]string{"email": "me@example.com", "password": "longenough"})
	bearer, _ := body["token"].(string)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/me", bearer, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", resp.StatusCode)
	}
	user, _ := body["user"].(map[string]any)
	if email, _ := user["email"].(string); email != "me@example.com" {
		t.Fatalf("unexpected email %q", email)
	}
}
