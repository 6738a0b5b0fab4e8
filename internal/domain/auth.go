package domain

import "time"

// Identity is the authenticated caller bound to a single request.
type Identity struct {
	Username string
	Role     Role
}

// HasRole reports whether the identity carries one of the given roles.
func (i Identity) HasRole(roles ...Role) bool {
	for _, role := range roles {
		if i.Role == role {
			return true
		}
	}
	return false
}

// IssuedToken is the result of a successful login or registration.
type IssuedToken struct {
	Token     string
	TokenID   string
	Username  string
	ExpiresAt time.Time
}
