package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"campusev/backend/libs/httpx"
	"campusev/backend/services/auth-service/internal/models"
	"campusev/backend/services/auth-service/internal/service"
)

// Authenticator is the auth service surface used over HTTP.
type Authenticator interface {
	Signup(ctx context.Context, input service.SignupInput) (*models.User, error)
	Login(ctx context.Context, identifier, password string) (string, *models.User, error)
}

// AuthHandler serves /auth endpoints.
type AuthHandler struct {
	auth   Authenticator
	logger *zap.Logger
}

// NewAuthHandler builds handler.
func NewAuthHandler(auth Authenticator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type signupRequest struct {
	SchoolID string `json:"school_id" validate:"required_without=Phone,max=20"`
	Phone    string `json:"phone" validate:"required_without=SchoolID,max=11"`
	Name     string `json:"name" validate:"omitempty,max=50"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=student staff visitor admin"`
}

type signupResponse struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	UserID    int64  `json:"user_id"`
	Role      string `json:"role"`
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	user, err := h.auth.Signup(r.Context(), service.SignupInput{
		SchoolID: req.SchoolID,
		Phone:    req.Phone,
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, signupResponse{ID: user.ID, Role: user.Role})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	token, user, err := h.auth.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "Bearer",
		UserID:    user.ID,
		Role:      user.Role,
	})
}
