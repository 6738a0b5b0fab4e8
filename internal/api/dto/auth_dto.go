package dto

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LogoutResponse reports whether a token id was recorded as revoked.
type LogoutResponse struct {
	Revoked bool `json:"revoked"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// SweepResponse is returned by the manual revocation sweep.
type SweepResponse struct {
	Removed int64 `json:"removed"`
}

// Validate returns a field -> problem map, empty when the request is acceptable.
func (r RegisterRequest) Validate() map[string]any {
	problems := map[string]any{}
	checkLength(problems, "firstName", strings.TrimSpace(r.FirstName), 2, 50)
	checkLength(problems, "lastName", strings.TrimSpace(r.LastName), 2, 50)
	checkLength(problems, "username", r.Username, 3, 30)
	checkLength(problems, "password", r.Password, 8, 100)

	email := strings.TrimSpace(r.Email)
	switch {
	case email == "":
		problems["email"] = "is required"
	case utf8.RuneCountInString(email) > 100:
		problems["email"] = "must be at most 100 characters"
	case !validEmail(email):
		problems["email"] = "must be a valid email address"
	}
	return problems
}

// Validate returns a field -> problem map, empty when the request is acceptable.
func (r LoginRequest) Validate() map[string]any {
	problems := map[string]any{}
	if strings.TrimSpace(r.Username) == "" {
		problems["username"] = "is required"
	}
	if strings.TrimSpace(r.Password) == "" {
		problems["password"] = "is required"
	}
	return problems
}

func checkLength(problems map[string]any, field, value string, lo, hi int) {
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0:
		problems[field] = "is required"
	case n < lo || n > hi:
		problems[field] = fmt.Sprintf("must be between %d and %d characters", lo, hi)
	}
}

// validEmail accepts a bare addr-spec; display names and angle brackets are rejected.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1
}
