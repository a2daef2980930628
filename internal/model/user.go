package model

import (
	"fmt"
	"time"
)

// Role is the closed set of account roles.
type Role int

const (
	RoleUser Role = iota + 1
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParseRole converts the stored role string into a Role.
// It is only used at the persistence and token boundaries.
func ParseRole(s string) (Role, error) {
	switch s {
	case "user":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	RoleName     string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

// Role returns the parsed role. Unknown values map to the zero Role,
// which the access guard denies.
func (u *User) Role() Role {
	role, err := ParseRole(u.RoleName)
	if err != nil {
		return 0
	}
	return role
}

func (u *User) IsAdmin() bool {
	return u.Role() == RoleAdmin
}

// Caller is the identity an operation runs on behalf of.
// Handlers resolve it once and pass it explicitly into services.
type Caller struct {
	ID   string
	Role Role
}

func (u *User) Caller() Caller {
	return Caller{ID: u.ID, Role: u.Role()}
}
