package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Role names as they appear inside the roles column and JWT claims.
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// User represents a voter account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Email               string     `gorm:"size:180;uniqueIndex;not null" json:"email"`
	PasswordHash        string     `gorm:"size:255;not null" json:"-"`
	Roles               string     `gorm:"size:255;not null" json:"-"`
	RegisterDate        time.Time  `gorm:"not null" json:"register_date"`
	LastVoteDate        *time.Time `gorm:"type:date" json:"last_vote_date"`
	ResetToken          *string    `gorm:"size:64;index" json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	Themes              []Theme    `gorm:"many2many:user_theme;" json:"-"`
}

// BeforeCreate hook ensures role and timestamp defaults are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Roles == "" {
		u.SetRoles([]string{RoleUser})
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// SetRoles stores the role list as a JSON array in the roles column.
func (u *User) SetRoles(roles []string) {
	b, err := json.Marshal(roles)
	if err != nil {
		b = []byte(`["` + RoleUser + `"]`)
	}
	u.Roles = string(b)
}

// RoleList decodes the roles column. Every account implicitly holds ROLE_USER.
func (u *User) RoleList() []string {
	var roles []string
	if err := json.Unmarshal([]byte(u.Roles), &roles); err != nil || len(roles) == 0 {
		return []string{RoleUser}
	}
	return roles
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role string) bool {
	if role == RoleUser {
		return true
	}
	for _, r := range u.RoleList() {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user holds the administrative role.
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}
