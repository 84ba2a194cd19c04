package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleAdmin    = "admin"
	RoleInvestor = "investor"
)

// Account is an API user identified by its Stellar address.
type Account struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	StellarAddress string         `gorm:"uniqueIndex;size:56;not null" json:"stellar_address"`
	Role           string         `gorm:"size:20;default:'investor'" json:"role"` // admin, investor
	IsActive       bool           `gorm:"default:true" json:"is_active"`
	LastLoginAt    *time.Time     `json:"last_login_at"`
}

// TableName overrides the table name
func (Account) TableName() string {
	return "accounts"
}
