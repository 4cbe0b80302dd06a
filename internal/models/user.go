package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
	RoleOwner      UserRole = "OWNER"
	RolePrincipal  UserRole = "PRINCIPAL"
	RoleTeacher    UserRole = "TEACHER"
	RoleHR         UserRole = "HR"
	RoleAccountant UserRole = "ACCOUNTANT"
	RoleStudent    UserRole = "STUDENT"
	RoleParent     UserRole = "PARENT"
)

// Staff reports whether the role may read section-wide assessment data
// directly. Student and parent roles must anchor on the student's own marks.
func (r UserRole) Staff() bool {
	switch r {
	case RoleSuperAdmin, RoleOwner, RolePrincipal, RoleTeacher, RoleHR, RoleAccountant:
		return true
	default:
		return false
	}
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	SchoolID     *string    `db:"school_id" json:"school_id,omitempty"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	StudentID    *string    `db:"student_id" json:"student_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
