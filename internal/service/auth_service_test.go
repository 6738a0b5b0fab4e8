package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/studyshare-auth/internal/auth"
	"github.com/spec-kit/studyshare-auth/internal/domain"
	"github.com/spec-kit/studyshare-auth/internal/events"
	"github.com/spec-kit/studyshare-auth/internal/repository"
	"github.com/spec-kit/studyshare-auth/internal/revocation"
)

const testSecret = "service-test-secret-service-test-secret"

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type serviceFixture struct {
	svc      *AuthService
	users    repository.UserRepository
	ledger   *revocation.MemoryLedger
	tokens   *auth.TokenManager
	recorded *recordedEvents
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		users:    repository.NewMemoryUserRepository(),
		ledger:   revocation.NewMemoryLedger(),
		tokens:   auth.NewTokenManager(testSecret, time.Hour),
		recorded: &recordedEvents{},
	}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{events.EventUserRegistered, events.EventUserLoggedIn, events.EventUserLoggedOut} {
		dispatcher.Subscribe(et, f.recorded.handle)
	}
	f.svc = NewAuthService(AuthDependencies{
		Users:      f.users,
		Tokens:     f.tokens,
		Ledger:     f.ledger,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		BcryptCost: bcrypt.MinCost,
	})
	return f
}

func alice() RegisterInput {
	return RegisterInput{
		FirstName: "Alice",
		LastName:  "Liddell",
		Email:     "alice@example.com",
		Username:  "alice",
		Password:  "p@ssw0rd123",
	}
}

func TestRegisterIssuesTokenForNewStudent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	user, issued, err := f.svc.Register(ctx, alice())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != domain.RoleStudent || user.ID == "" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash == "" || user.PasswordHash == "p@ssw0rd123" {
		t.Fatal("password must be stored hashed")
	}
	if issued.Token == "" || issued.Username != "alice" {
		t.Fatalf("unexpected token: %+v", issued)
	}

	parsed, err := f.tokens.Parse(issued.Token)
	if err != nil || parsed.Subject != "alice" {
		t.Fatalf("issued token must parse to alice: %+v %v", parsed, err)
	}
	if got := f.recorded.types(); len(got) != 1 || got[0] != events.EventUserRegistered {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	if _, _, err := f.svc.Register(ctx, alice()); err != nil {
		t.Fatalf("register: %v", err)
	}

	sameUsername := alice()
	sameUsername.Email = "other@example.com"
	if _, _, err := f.svc.Register(ctx, sameUsername); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	sameEmail := alice()
	sameEmail.Username = "alice2"
	sameEmail.Email = "ALICE@example.com"
	if _, _, err := f.svc.Register(ctx, sameEmail); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

type racingUsers struct {
	repository.UserRepository
	field string
}

func (r racingUsers) ExistsByUsername(context.Context, string) (bool, error) { return false, nil }
func (r racingUsers) ExistsByEmail(context.Context, string) (bool, error)    { return false, nil }
func (r racingUsers) Create(context.Context, *domain.User) error {
	return &repository.DuplicateError{Field: r.field}
}

func TestRegisterMapsConstraintViolations(t *testing.T) {
	for field, want := range map[string]error{"username": ErrUsernameTaken, "email": ErrEmailTaken} {
		f := newServiceFixture(t)
		f.svc.users = racingUsers{UserRepository: f.users, field: field}
		if _, _, err := f.svc.Register(context.Background(), alice()); !errors.Is(err, want) {
			t.Fatalf("%s race: expected %v, got %v", field, want, err)
		}
	}
}

func TestLogin(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	if _, _, err := f.svc.Register(ctx, alice()); err != nil {
		t.Fatalf("register: %v", err)
	}

	issued, err := f.svc.Login(ctx, "alice", "p@ssw0rd123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if issued.Username != "alice" || issued.TokenID == "" {
		t.Fatalf("unexpected token: %+v", issued)
	}

	if _, err := f.svc.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := f.svc.Login(ctx, "nobody", "p@ssw0rd123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestLogoutRevokesUntilOriginalExpiry(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	_, issued, err := f.svc.Register(ctx, alice())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	revoked, err := f.svc.Logout(ctx, issued.Token)
	if err != nil || !revoked {
		t.Fatalf("logout: revoked=%v err=%v", revoked, err)
	}
	if ok, _ := f.ledger.IsRevoked(ctx, issued.TokenID); !ok {
		t.Fatal("token id must be revoked")
	}

	// Still revoked just before the original expiry, pruned right after.
	if n, _ := f.ledger.PruneExpiredBefore(ctx, issued.ExpiresAt.Add(-time.Second)); n != 0 {
		t.Fatalf("entry pruned before expiry: %d", n)
	}
	if n, _ := f.ledger.PruneExpiredBefore(ctx, issued.ExpiresAt.Add(time.Second)); n != 1 {
		t.Fatalf("entry not pruned after expiry: %d", n)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	_, issued, err := f.svc.Register(ctx, alice())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Logout(ctx, issued.Token); err != nil {
			t.Fatalf("logout #%d: %v", i+1, err)
		}
	}
	if f.ledger.Len() != 1 {
		t.Fatalf("expected one ledger entry, got %d", f.ledger.Len())
	}
}

func TestLogoutRevokesExpiredToken(t *testing.T) {
	f := newServiceFixture(t)
	past := auth.NewTokenManager(testSecret, time.Minute, auth.WithClock(func() time.Time {
		return time.Now().Add(-time.Hour)
	}))
	issued, err := past.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	revoked, err := f.svc.Logout(context.Background(), issued.Token)
	if err != nil || !revoked {
		t.Fatalf("expired token must still be revoked: revoked=%v err=%v", revoked, err)
	}
}

func TestLogoutWithGarbageIsNoop(t *testing.T) {
	f := newServiceFixture(t)

	revoked, err := f.svc.Logout(context.Background(), "garbage")
	if err != nil || revoked {
		t.Fatalf("expected silent no-op, got revoked=%v err=%v", revoked, err)
	}
	if f.ledger.Len() != 0 {
		t.Fatal("nothing should be revoked")
	}
	if got := f.recorded.types(); len(got) != 0 {
		t.Fatalf("no events expected, got %v", got)
	}
}

type brokenLedger struct{ *revocation.MemoryLedger }

func (brokenLedger) Revoke(context.Context, string, time.Time) error {
	return revocation.ErrUnavailable
}

func TestLogoutSurfacesStorageFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.svc.ledger = brokenLedger{f.ledger}
	issued, err := f.tokens.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := f.svc.Logout(context.Background(), issued.Token); !errors.Is(err, revocation.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
