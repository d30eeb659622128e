package domain

import "time"

// Role distinguishes privileged owners from regular members.
type Role string

const (
	RoleMember Role = "member"
	RoleOwner  Role = "owner"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleMember || r == RoleOwner
}

// User is the domain model for registered accounts. Username and email are
// unique across all users.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
