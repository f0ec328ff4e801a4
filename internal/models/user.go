package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles
const (
	RoleUser     = "user"
	RoleMerchant = "merchant"
	RoleAdmin    = "admin"
)

// Account statuses
const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

type User struct {
	gorm.Model
	Email               string `gorm:"uniqueIndex;not null"`
	Password            string `gorm:"not null"`
	Name                string `gorm:"not null"`
	Phone               string `gorm:"uniqueIndex;not null"`
	Role                string `gorm:"default:'user'"`
	Status              string `gorm:"default:'active'"`
	DefaultCurrency     string `gorm:"size:3;default:'USD'"`
	BusinessName        string // merchants only
	BusinessType        string
	LastLoginAt         time.Time
	LastLoginIP         string
	FailedLoginAttempts int `gorm:"default:0"`
	AccountLockoutUntil *time.Time
	TokenVersion        int `gorm:"default:1"`
}

func (u *User) IsMerchant() bool { return u.Role == RoleMerchant }
func (u *User) IsAdmin() bool    { return u.Role == RoleAdmin }
