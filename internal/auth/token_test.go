package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-test-secret-test-secret"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueParseRoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	for _, subject := range []string{"alice", "bob", "user.with-dots_01"} {
		issued, err := tm.Issue(subject)
		if err != nil {
			t.Fatalf("issue %s: %v", subject, err)
		}
		parsed, err := tm.Parse(issued.Token)
		if err != nil {
			t.Fatalf("parse %s: %v", subject, err)
		}
		if parsed.Subject != subject {
			t.Fatalf("expected subject %q, got %q", subject, parsed.Subject)
		}
		if parsed.TokenID != issued.TokenID || parsed.TokenID == "" {
			t.Fatalf("token id mismatch: %q vs %q", parsed.TokenID, issued.TokenID)
		}
		if !parsed.ExpiresAt.Equal(issued.ExpiresAt) {
			t.Fatalf("expiry mismatch: %s vs %s", parsed.ExpiresAt, issued.ExpiresAt)
		}
		if got := parsed.ExpiresAt.Sub(parsed.IssuedAt); got != time.Hour {
			t.Fatalf("expected lifetime 1h, got %s", got)
		}
	}
}

func TestIssueGeneratesUniqueTokenIDs(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		issued, err := tm.Issue("alice")
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if _, dup := seen[issued.TokenID]; dup {
			t.Fatalf("token id reused: %s", issued.TokenID)
		}
		seen[issued.TokenID] = struct{}{}
	}
}

func TestTokenIsURLSafe(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	issued, err := tm.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if strings.ContainsAny(issued.Token, "+/= ") {
		t.Fatalf("token is not url-safe: %s", issued.Token)
	}
}

func TestParseExpiryBoundary(t *testing.T) {
	issuedAt := time.Unix(1_800_000_000, 0)
	issuer := NewTokenManager(testSecret, time.Hour, WithClock(fixedClock(issuedAt)))
	issued, err := issuer.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	justBefore := NewTokenManager(testSecret, time.Hour, WithClock(fixedClock(issuedAt.Add(time.Hour-time.Second))))
	if _, err := justBefore.Parse(issued.Token); err != nil {
		t.Fatalf("expected token valid one second before expiry, got %v", err)
	}

	atExpiry := NewTokenManager(testSecret, time.Hour, WithClock(fixedClock(issuedAt.Add(time.Hour))))
	parsed, err := atExpiry.Parse(issued.Token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at exp == now, got %v", err)
	}
	if parsed == nil || parsed.TokenID != issued.TokenID {
		t.Fatal("expected expired token content to be returned")
	}
}

func TestParseExpiredTokenIsNotSignatureFailure(t *testing.T) {
	past := NewTokenManager(testSecret, time.Minute, WithClock(fixedClock(time.Now().Add(-time.Hour))))
	issued, err := past.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = NewTokenManager(testSecret, time.Minute).Parse(issued.Token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if errors.Is(err, ErrBadSignature) || errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expiry must be distinguishable from other failures: %v", err)
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	other := NewTokenManager("another-secret-another-secret-xx", time.Hour)
	issued, err := other.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = NewTokenManager(testSecret, time.Hour).Parse(issued.Token)
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestParseRejectsTamperedPayload(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	alice, err := tm.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	admin, err := tm.Issue("admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	a := strings.Split(alice.Token, ".")
	b := strings.Split(admin.Token, ".")
	forged := strings.Join([]string{a[0], b[1], a[2]}, ".")

	if _, err := tm.Parse(forged); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for spliced token, got %v", err)
	}
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "alice",
		ID:        "jti",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign hs512: %v", err)
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	tm := NewTokenManager(testSecret, time.Hour)
	for name, token := range map[string]string{"hs512": hs512, "none": none} {
		if _, err := tm.Parse(token); !errors.Is(err, ErrBadSignature) {
			t.Errorf("%s: expected ErrBadSignature, got %v", name, err)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	for _, token := range []string{"", "not-a-jwt", "a.b.c", "eyJhbGciOiJIUzI1NiJ9.%%%.sig"} {
		if _, err := tm.Parse(token); !errors.Is(err, ErrMalformedToken) {
			t.Errorf("%q: expected ErrMalformedToken, got %v", token, err)
		}
	}
}

func TestParseRequiresSubjectAndExpiry(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "alice",
		ID:      "jti",
	}}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := tm.Parse(noExp); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken without exp, got %v", err)
	}

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        "jti",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := tm.Parse(noSub); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken without sub, got %v", err)
	}
}
