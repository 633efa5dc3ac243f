package models

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

func (r UserRole) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID           int        `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email,omitempty" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	DisplayName  *string    `json:"display_name,omitempty" db:"display_name"`
	Bio          *string    `json:"bio,omitempty" db:"bio"`
	AvatarURL    *string    `json:"avatar_url,omitempty" db:"avatar_url"`
	Country      *string    `json:"country,omitempty" db:"country"`
	SkillLevel   *string    `json:"skill_level,omitempty" db:"skill_level"`
	Role         UserRole   `json:"role" db:"role"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

// Clone returns a copy that shares no pointers with u.
func (u *User) Clone() *User {
	c := *u
	c.DisplayName = clonePtr(u.DisplayName)
	c.Bio = clonePtr(u.Bio)
	c.AvatarURL = clonePtr(u.AvatarURL)
	c.Country = clonePtr(u.Country)
	c.SkillLevel = clonePtr(u.SkillLevel)
	c.LastLoginAt = clonePtr(u.LastLoginAt)
	return &c
}

// Public strips the fields only the owner may see.
func (u User) Public() User {
	u.Email = ""
	u.PasswordHash = ""
	u.LastLoginAt = nil
	return u
}
