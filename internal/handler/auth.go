package handler

import (
	"errors"

	"github.com/deppfellow/covid-api/internal/errs"
	"github.com/deppfellow/covid-api/internal/middleware"
	"github.com/deppfellow/covid-api/internal/server"
	"github.com/deppfellow/covid-api/internal/service"
	"github.com/deppfellow/covid-api/internal/validation"
	"github.com/labstack/echo/v4"
)

var (
	codeEmailAlreadyExists = "EMAIL_ALREADY_EXISTS"
	codeInvalidCredentials = "INVALID_CREDENTIALS"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=5"`
	Email    string `json:"email" validate:"required,min=6,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (r *RegisterRequest) Validate() error {
	return validation.Struct(r)
}

type RegisterResponse struct {
	UserID string `json:"user_id"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,min=6,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (r *LoginRequest) Validate() error {
	return validation.Struct(r)
}

// AuthHandler serves registration and login.
type AuthHandler struct {
	Handler
	auth *service.AuthService
}

func NewAuthHandler(s *server.Server, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{
		Handler: NewHandler(s),
		auth:    auth,
	}
}

func (h *AuthHandler) Register(c echo.Context, req *RegisterRequest) (*RegisterResponse, error) {
	userID, err := h.auth.Register(c.Request().Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrDuplicateEmail) {
			return nil, errs.NewBadRequestError("Email already exists", false, &codeEmailAlreadyExists, nil, nil)
		}
		return nil, err
	}

	return &RegisterResponse{UserID: userID}, nil
}

// Login returns the bare token as the body and in the auth-token header.
func (h *AuthHandler) Login(c echo.Context, req *LoginRequest) (string, error) {
	res, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return "", errs.NewBadRequestError("Email or password is wrong", false, &codeInvalidCredentials, nil, nil)
		}
		return "", err
	}

	c.Response().Header().Set(middleware.AuthTokenHeader, res.Token)
	return res.Token, nil
}
