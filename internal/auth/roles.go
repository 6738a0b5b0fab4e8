package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/studyshare-auth/internal/domain"
	apperrors "github.com/spec-kit/studyshare-auth/pkg/util/errorutil"
)

// Guard rejects unauthenticated requests to any path outside the public
// prefixes. It must run after Authenticator.Handle.
func Guard(publicPrefixes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isPublicPath(c.Path(), publicPrefixes) {
			return c.Next()
		}
		if _, ok := IdentityFromContext(c); !ok {
			return unauthenticated(c)
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures an identity is bound, for protected routes that
// live under a public prefix.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFromContext(c); !ok {
			return unauthenticated(c)
		}
		return c.Next()
	}
}

// RequireRole ensures the caller carries one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return unauthenticated(c)
		}
		if !identity.HasRole(allowed...) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

func unauthenticated(c *fiber.Ctx) error {
	switch FailureFromContext(c) {
	case FailureExpired:
		return apperrors.NewTokenExpired()
	case FailureUnavailable:
		return apperrors.NewServiceUnavailable("authentication backend unavailable", nil)
	default:
		return apperrors.NewUnauthorized("unauthorized")
	}
}

func isPublicPath(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
