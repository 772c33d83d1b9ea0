// Package httpapi exposes the HTTP edge of the gateway: account endpoints,
// the WebSocket upgrade route and an optional store inspector.
package httpapi

import (
	"chat-presence/auth"
	"chat-presence/errors"
	"chat-presence/services"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	FullName string `json:"fullName"`
}

type PrivateResponse struct {
	OK     bool     `json:"ok"`
	UserID string   `json:"userId"`
	Roles  []string `json:"roles"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type AuthHandler struct {
	log         *slog.Logger
	authService services.IAuthService
}

func NewAuthHandler(log *slog.Logger, authService services.IAuthService) *AuthHandler {
	return &AuthHandler{log: log, authService: authService}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", errors.ErrInvalidRegistration, err))
		return
	}
	session, err := h.authService.Register(body.Email, body.Password, body.FullName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.log.Info("User registered", "user_id", session.UserID)
	writeJSON(w, http.StatusCreated, toResponse(session))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, errors.ErrInvalidCredentials)
		return
	}
	session, err := h.authService.Login(body.Email, body.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(session))
}

// CheckStatus re-issues a token for the principal authenticated by the middleware.
func (h *AuthHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	principalID, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.writeError(w, errors.ErrMissingToken)
		return
	}
	session, err := h.authService.CheckStatus(principalID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(session))
}

// Private echoes the identity that passed the role guard.
func (h *AuthHandler) Private(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, errors.ErrMissingToken)
		return
	}
	writeJSON(w, http.StatusOK, PrivateResponse{
		OK:     true,
		UserID: string(identity.PrincipalID),
		Roles:  identity.Roles,
	})
}

// Routes wires the account endpoints and the gateway upgrade route on one router.
// Authenticated routes live in a group behind auth.Middleware.
func Routes(log *slog.Logger, authHandler *AuthHandler, verifier auth.IdentityVerifier, gateway http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/auth/register", authHandler.Register)
	r.Post("/auth/login", authHandler.Login)
	r.Method(http.MethodGet, "/ws", gateway)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(log, verifier))
		r.Get("/auth/check-status", authHandler.CheckStatus)
		r.With(auth.RequireRoles(log, auth.RoleSuperUser, auth.RoleAdmin, auth.RoleUser)).
			Get("/auth/private", authHandler.Private)
		r.With(auth.RequireRoles(log, auth.RoleAdmin)).
			Get("/auth/admin", authHandler.Private)
	})
	return r
}

func (h *AuthHandler) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", "error", err)
		message = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func toResponse(session services.Session) SessionResponse {
	return SessionResponse{
		Token:    session.Token.String(),
		UserID:   session.UserID,
		FullName: session.FullName,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
