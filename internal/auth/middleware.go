package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/studyshare-auth/internal/domain"
	"github.com/spec-kit/studyshare-auth/internal/observability"
	"github.com/spec-kit/studyshare-auth/internal/repository"
)

const (
	identityKey = "auth_identity"
	failureKey  = "auth_failure"
)

// FailureReason remembers why a presented token did not authenticate.
type FailureReason string

const (
	FailureNone        FailureReason = ""
	FailureExpired     FailureReason = "expired"
	FailureRevoked     FailureReason = "revoked"
	FailureInvalid     FailureReason = "invalid"
	FailureUnavailable FailureReason = "unavailable"
)

// UserLookup resolves a token subject to its stored credential.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// RevocationChecker answers whether a token id has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Authenticator binds an identity to requests carrying a valid, unrevoked
// bearer token. It never rejects a request itself: on any failure the request
// continues unauthenticated and Guard or RequireAuthenticated decide.
type Authenticator struct {
	tokens  *TokenManager
	ledger  RevocationChecker
	users   UserLookup
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewAuthenticator constructs the middleware.
func NewAuthenticator(tokens *TokenManager, ledger RevocationChecker, users UserLookup, logger *zap.Logger, metrics *observability.Metrics) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{tokens: tokens, ledger: ledger, users: users, logger: logger, metrics: metrics}
}

// Handle authenticates the request, then always continues the chain.
func (a *Authenticator) Handle(c *fiber.Ctx) error {
	a.authenticate(c)
	return c.Next()
}

func (a *Authenticator) authenticate(c *fiber.Ctx) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("authentication panicked", zap.Any("panic", r), zap.String("path", c.Path()))
			a.fail(c, FailureInvalid)
		}
	}()

	if _, bound := IdentityFromContext(c); bound {
		return
	}

	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return
	}

	tokenStr, ok := bearerToken(header)
	if !ok {
		a.logger.Warn(bearerProblem(header), zap.String("path", c.Path()))
		a.fail(c, FailureInvalid)
		return
	}

	parsed, err := a.tokens.Parse(tokenStr)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			a.logger.Warn("token expired", zap.String("jti", parsed.TokenID), zap.Time("expired_at", parsed.ExpiresAt))
			a.fail(c, FailureExpired)
		case errors.Is(err, ErrBadSignature):
			a.logger.Warn("token signature mismatch", zap.Error(err))
			a.fail(c, FailureInvalid)
		case errors.Is(err, ErrMalformedToken):
			a.logger.Warn("token malformed", zap.Error(err))
			a.fail(c, FailureInvalid)
		default:
			a.logger.Error("token validation error", zap.Error(err))
			a.fail(c, FailureInvalid)
		}
		return
	}

	ctx := c.UserContext()

	revoked, err := a.ledger.IsRevoked(ctx, parsed.TokenID)
	if err != nil {
		a.logger.Error("revocation check failed", zap.String("jti", parsed.TokenID), zap.Error(err))
		a.fail(c, FailureUnavailable)
		return
	}
	if revoked {
		a.logger.Warn("token is revoked", zap.String("jti", parsed.TokenID))
		a.fail(c, FailureRevoked)
		return
	}

	user, err := a.users.GetByUsername(ctx, parsed.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			a.logger.Warn("token subject no longer exists", zap.String("jti", parsed.TokenID))
			a.fail(c, FailureInvalid)
			return
		}
		a.logger.Error("identity lookup failed", zap.String("jti", parsed.TokenID), zap.Error(err))
		a.fail(c, FailureUnavailable)
		return
	}

	c.Locals(identityKey, domain.Identity{Username: user.Username, Role: user.Role})
	a.metrics.RecordAuthOutcome("authenticated")
}

func (a *Authenticator) fail(c *fiber.Ctx, reason FailureReason) {
	c.Locals(failureKey, reason)
	a.metrics.RecordAuthOutcome(string(reason))
}

// BearerToken extracts the token from the request's Authorization header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	return bearerToken(c.Get(fiber.HeaderAuthorization))
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// bearerProblem describes why bearerToken rejected header.
func bearerProblem(header string) string {
	scheme, _, _ := strings.Cut(strings.TrimSpace(header), " ")
	if strings.EqualFold(scheme, "Bearer") {
		return "empty bearer token"
	}
	return "authorization header does not use the Bearer scheme"
}

// IdentityFromContext retrieves the authenticated caller, if any.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}

// FailureFromContext returns why authentication did not bind an identity.
func FailureFromContext(c *fiber.Ctx) FailureReason {
	reason, _ := c.Locals(failureKey).(FailureReason)
	return reason
}
