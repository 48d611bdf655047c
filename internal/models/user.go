package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAnonymous  UserRole = "anonymous"
	RoleCoach      UserRole = "coach"
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "super_admin"
)

// IsPrivileged reports whether the role bypasses coach ownership checks.
func (r UserRole) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	FullName string   `json:"full_name" gorm:"not null;size:100"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role     UserRole `json:"role" gorm:"-"`

	// Profile info
	AvatarURL *string `json:"avatar_url" gorm:"size:500"`

	// Status
	EmailVerified bool `json:"email_verified" gorm:"default:false"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// Principal is the acting identity carried explicitly into every service call
// that performs ownership or privilege checks. It is never read from ambient
// state.
type Principal struct {
	ID   string   `json:"id"`
	Role UserRole `json:"role"`
}

// AnonymousPrincipal identifies the unauthenticated caller of the public
// lookup endpoint.
var AnonymousPrincipal = Principal{Role: RoleAnonymous}

func (p Principal) IsAdmin() bool {
	return p.Role.IsPrivileged()
}

func (p Principal) IsCoach() bool {
	return p.Role == RoleCoach
}
