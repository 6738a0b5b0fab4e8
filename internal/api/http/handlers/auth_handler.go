package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/studyshare-auth/internal/api/dto"
	"github.com/spec-kit/studyshare-auth/internal/auth"
	"github.com/spec-kit/studyshare-auth/internal/service"
	apperrors "github.com/spec-kit/studyshare-auth/pkg/util/errorutil"
)

// AuthHandler exposes the session endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: authService, logger: logger}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if problems := req.Validate(); len(problems) > 0 {
		return apperrors.NewValidationError("validation failed", problems)
	}

	user, issued, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken), errors.Is(err, service.ErrEmailTaken):
			return apperrors.NewDuplicate(err.Error())
		default:
			return apperrors.NewInternalError(err)
		}
	}

	return c.Status(http.StatusCreated).JSON(dto.AuthResponse{
		Token:     issued.Token,
		Username:  user.Username,
		ExpiresAt: issued.ExpiresAt,
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if problems := req.Validate(); len(problems) > 0 {
		return apperrors.NewValidationError("validation failed", problems)
	}

	issued, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return apperrors.NewUnauthorized("Invalid username or password")
		}
		return apperrors.NewInternalError(err)
	}

	return c.JSON(dto.AuthResponse{
		Token:     issued.Token,
		Username:  issued.Username,
		ExpiresAt: issued.ExpiresAt,
	})
}

// Logout handles POST /auth/logout. Any bearer value succeeds, so a second
// logout with the same token is not an error.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token, ok := auth.BearerToken(c)
	if !ok {
		return apperrors.NewUnauthorized("bearer token required")
	}

	revoked, err := h.auth.Logout(c.UserContext(), token)
	if err != nil {
		return apperrors.NewServiceUnavailable("revocation store unavailable", err)
	}
	return c.JSON(dto.LogoutResponse{Revoked: revoked})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("unauthorized")
	}
	return c.JSON(dto.MeResponse{Username: identity.Username, Role: string(identity.Role)})
}
