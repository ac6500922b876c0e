package accounts

import (
	"database/sql"
	"strings"
	"unicode"
)

type Role string

const (
	RoleViewer Role = "viewer"
	RoleAdmin  Role = "admin"
)

var Roles = []Role{RoleViewer, RoleAdmin}

// ParseRole accepts the closed set of role names, case-insensitively.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleViewer:
		return RoleViewer, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", NewValidationError("invalid role: " + s)
	}
}

// ValidateUsername rejects names the admin routes cannot address: a '/' never
// matches a path segment, and control characters are never valid input.
func ValidateUsername(username string) error {
	if username == "" {
		return NewValidationError("Username is required")
	}
	if strings.ContainsFunc(username, func(r rune) bool {
		return r == '/' || unicode.IsControl(r)
	}) {
		return NewValidationError("Username cannot contain '/' or control characters")
	}
	return nil
}

// roleFromColumn reads the stored role. NULL and unrecognized values are viewers.
func roleFromColumn(v sql.NullString) Role {
	if v.Valid && Role(v.String) == RoleAdmin {
		return RoleAdmin
	}
	return RoleViewer
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

func (r Role) Valid() bool {
	return r == RoleViewer || r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}

// Account is a stored Users row.
type Account struct {
	Username     string
	PasswordHash string
	FullName     string
	Role         Role
}

func (a Account) Identity() Identity {
	return Identity{
		Username: a.Username,
		FullName: a.FullName,
		Role:     a.Role,
	}
}

// Identity is the public part of an account, bound to a session after login.
type Identity struct {
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Role     Role   `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role.IsAdmin()
}

// DisplayName is the full name when set, otherwise the username.
func (i Identity) DisplayName() string {
	if i.FullName != "" {
		return i.FullName
	}
	return i.Username
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
