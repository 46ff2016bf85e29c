package domain

import "time"

// Role enumerates application-level user roles.
type Role string

const (
	RoleAdmin   Role = "app-admin"
	RoleManager Role = "app-manager"
	RoleUser    Role = "app-user"
)

// User is the domain model for accounts that authenticate against the API.
type User struct {
	ID           int64
	Username     string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Theme        string
	Timezone     string
	Language     string
	Filter       string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal identifies the authenticated caller for a single request. It is
// built once by the auth middleware and passed explicitly; nothing reads
// caller identity from ambient state.
type Principal struct {
	ID       int64
	Username string
	Role     Role
}

// IsAdmin reports whether the principal holds the administrator role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
