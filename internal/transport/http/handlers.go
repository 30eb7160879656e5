package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"secretdrop/internal/domain"
	"secretdrop/internal/dto"
	"secretdrop/internal/netutil"
	"secretdrop/internal/observability/metrics"
	obsmw "secretdrop/internal/observability/middleware"
	"secretdrop/internal/service"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	auth    *service.Auth
	secrets *service.Secrets
	baseURL string
}

func NewHandler(auth *service.Auth, secrets *service.Secrets, baseURL string) *Handler {
	return &Handler{auth: auth, secrets: secrets, baseURL: baseURL}
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	err := h.auth.Signup(r.Context(), req)
	if err != nil {
		metrics.SignupsTotal.WithLabelValues("failure").Inc()
		switch {
		case errors.Is(err, service.ErrEmptyCredential):
			writeError(w, http.StatusBadRequest, "Email and password are required")
		case errors.Is(err, service.ErrPasswordLength):
			writeError(w, http.StatusBadRequest, "Password is too short")
		case errors.Is(err, domain.ErrEmailTaken):
			writeError(w, http.StatusConflict, "User already exists")
		default:
			h.serverError(w, r, "signup failed", err)
		}
		return
	}
	metrics.SignupsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusCreated, dto.SignupResponse{Message: "User created successfully"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	tok, user, err := h.auth.Login(r.Context(), req)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		switch {
		case errors.Is(err, service.ErrEmptyCredential):
			writeError(w, http.StatusBadRequest, "Email and password are required")
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
		default:
			h.serverError(w, r, "login failed", err)
		}
		return
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, dto.LoginResponse{
		Message: "Login successful",
		Token:   tok,
		User:    dto.UserResponse{ID: user.ID.String(), Email: user.Email},
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access denied")
		return
	}
	user, err := h.auth.CurrentUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.serverError(w, r, "current user lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]dto.UserResponse{"user": {
		ID:        user.ID.String(),
		Email:     user.Email,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}})
}

func (h *Handler) CreateSecret(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access denied")
		return
	}
	var req dto.CreateSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	tok, err := h.secrets.Create(r.Context(), &userID, req.Message, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage), errors.Is(err, service.ErrEmptyPassword):
			writeError(w, http.StatusBadRequest, "Message and password are required")
		default:
			h.serverError(w, r, "create secret failed", err)
		}
		return
	}
	metrics.SecretsCreatedTotal.Inc()
	slog.Info("secret created",
		"owner_id", userID,
		"request_id", obsmw.RequestIDFromContext(r.Context()),
	)
	writeJSON(w, http.StatusCreated, dto.CreateSecretResponse{
		Message:   "Secret created successfully",
		SecretURL: h.baseURL + "/secret/" + tok,
	})
}

func (h *Handler) ProbeSecret(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")
	exists, err := h.secrets.Probe(r.Context(), tok)
	if err != nil {
		h.serverError(w, r, "probe failed", err)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "Secret not found or already viewed")
		return
	}
	writeJSON(w, http.StatusOK, dto.ProbeSecretResponse{Exists: true})
}

func (h *Handler) ViewSecret(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")
	var req dto.ViewSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password is required")
		return
	}
	message, err := h.secrets.Disclose(r.Context(), tok, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSecretNotFound):
			metrics.DisclosureAttemptsTotal.WithLabelValues("not_found").Inc()
			writeError(w, http.StatusNotFound, "Secret not found or already viewed")
		case errors.Is(err, domain.ErrInvalidPassword):
			metrics.DisclosureAttemptsTotal.WithLabelValues("invalid_password").Inc()
			writeError(w, http.StatusUnauthorized, "Invalid password")
		default:
			metrics.DisclosureAttemptsTotal.WithLabelValues("error").Inc()
			h.serverError(w, r, "view secret failed", err)
		}
		return
	}
	metrics.DisclosureAttemptsTotal.WithLabelValues("success").Inc()
	slog.Info("secret disclosed",
		"request_id", obsmw.RequestIDFromContext(r.Context()),
	)
	writeJSON(w, http.StatusOK, dto.ViewSecretResponse{
		Message: "Secret retrieved successfully",
		Secret:  message,
	})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.Error(msg,
		"error", err,
		"request_id", obsmw.RequestIDFromContext(r.Context()),
		"trace_id", obsmw.TraceIDFromContext(r.Context()),
	)
	writeError(w, http.StatusInternalServerError, "Server error")
}

func clientIP(r *http.Request) string {
	// RealIP middleware rewrites RemoteAddr from X-Forwarded-For when present;
	// these header checks cover direct deployments behind other proxies.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		if normalized, ok := netutil.NormalizeIP(ip); ok {
			return normalized
		}
	}
	if xr := r.Header.Get("X-Real-IP"); xr != "" {
		if normalized, ok := netutil.NormalizeIP(xr); ok {
			return normalized
		}
	}
	if normalized, ok := netutil.NormalizeIP(r.RemoteAddr); ok {
		return normalized
	}
	return r.RemoteAddr
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}
