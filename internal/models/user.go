package models

import "strings"

// Role is the membership role assigned by the surrounding application.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleGroupLeader     Role = "group_leader"
	RoleAssistantLeader Role = "asst_leader"
	RoleMember          Role = "member"
)

// IsLeader reports whether the role grants leaders-only access.
func (r Role) IsLeader() bool {
	return r == RoleAdmin || r == RoleGroupLeader || r == RoleAssistantLeader
}

// UserStatus is the approval state of an account.
type UserStatus string

const (
	StatusPending   UserStatus = "pending"
	StatusActive    UserStatus = "active"
	StatusSuspended UserStatus = "suspended"
)

// User is the identity resolved for a request.
type User struct {
	ID        string     `db:"id" json:"id"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	Username  *string    `db:"username" json:"username,omitempty"`
	Role      Role       `db:"role" json:"role"`
	Status    UserStatus `db:"status" json:"status"`
}

// Active reports whether the user may use the messaging core.
func (u User) Active() bool {
	return u.Status == StatusActive
}

// DisplayName is the name shown next to messages and typing indicators.
func (u User) DisplayName() string {
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
