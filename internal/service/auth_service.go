package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/studyshare-auth/internal/auth"
	"github.com/spec-kit/studyshare-auth/internal/domain"
	"github.com/spec-kit/studyshare-auth/internal/events"
	"github.com/spec-kit/studyshare-auth/internal/repository"
	"github.com/spec-kit/studyshare-auth/internal/revocation"
)

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUsernameTaken is returned by Register for an existing username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken is returned by Register for an existing email.
	ErrEmailTaken = errors.New("email already in use")
)

// RegisterInput carries the fields of a new credential.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Username  string
	Password  string
}

// AuthService coordinates registration, login and logout.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	ledger     revocation.Ledger
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
}

// AuthDependencies encapsulates the collaborators of the auth service.
type AuthDependencies struct {
	Users      repository.UserRepository
	Tokens     *auth.TokenManager
	Ledger     revocation.Ledger
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	BcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.Users,
		tokens:     deps.Tokens,
		ledger:     deps.Ledger,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: deps.BcryptCost,
	}
}

// Register creates a STUDENT credential and immediately issues a token for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, domain.IssuedToken, error) {
	taken, err := s.users.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, domain.IssuedToken{}, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, domain.IssuedToken{}, ErrUsernameTaken
	}

	taken, err = s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, domain.IssuedToken{}, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, domain.IssuedToken{}, ErrEmailTaken
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, domain.IssuedToken{}, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        strings.TrimSpace(in.Email),
		Username:     in.Username,
		PasswordHash: hash,
		Role:         domain.RoleStudent,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent registration can slip past the existence checks.
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			if dup.Field == "email" {
				return nil, domain.IssuedToken{}, ErrEmailTaken
			}
			return nil, domain.IssuedToken{}, ErrUsernameTaken
		}
		return nil, domain.IssuedToken{}, fmt.Errorf("create user: %w", err)
	}

	issued, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, domain.IssuedToken{}, err
	}

	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.Username, issued.TokenID,
		events.SessionIssuedPayload{ExpiresAt: issued.ExpiresAt}))
	return user, issued, nil
}

// Login verifies the credential and issues a token.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.IssuedToken, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.IssuedToken{}, ErrInvalidCredentials
		}
		return domain.IssuedToken{}, fmt.Errorf("load user: %w", err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return domain.IssuedToken{}, ErrInvalidCredentials
	}

	issued, err := s.tokens.Issue(user.Username)
	if err != nil {
		return domain.IssuedToken{}, err
	}

	s.publish(ctx, events.NewEvent(events.EventUserLoggedIn, user.Username, issued.TokenID,
		events.SessionIssuedPayload{ExpiresAt: issued.ExpiresAt}))
	return issued, nil
}

// Logout revokes the presented token until its original expiry. Expired tokens
// are still revoked; a token that cannot be parsed is a successful no-op and
// reports revoked=false.
func (s *AuthService) Logout(ctx context.Context, tokenStr string) (bool, error) {
	parsed, err := s.tokens.Parse(tokenStr)
	if err != nil && !errors.Is(err, auth.ErrTokenExpired) {
		s.logger.Warn("logout with unparseable token", zap.Error(err))
		return false, nil
	}
	if parsed.TokenID == "" {
		s.logger.Warn("logout with token lacking an id", zap.String("subject", parsed.Subject))
		return false, nil
	}

	if err := s.ledger.Revoke(ctx, parsed.TokenID, parsed.ExpiresAt); err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.EventUserLoggedOut, parsed.Subject, parsed.TokenID,
		events.LoggedOutPayload{Revoked: true, ExpiresAt: parsed.ExpiresAt}))
	return true, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("session event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
