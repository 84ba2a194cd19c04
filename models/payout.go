package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PayoutStatusBuilt     = "built"
	PayoutStatusSubmitted = "submitted"
	PayoutStatusFailed    = "failed"
)

// Payout records the Stellar payment that settles a released escrow with its
// fund recipient.
type Payout struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
	EscrowID         string         `gorm:"uniqueIndex;size:64;not null" json:"escrow_id"`
	SourceAccount    string         `gorm:"size:56;not null" json:"source_account"`
	RecipientAccount string         `gorm:"size:56;not null" json:"recipient_account"`
	Amount           string         `gorm:"size:32;not null" json:"amount"` // Stellar amount string, 7 decimals
	AssetCode        string         `gorm:"size:12;not null" json:"asset_code"`
	AssetIssuer      string         `gorm:"size:56" json:"asset_issuer"`
	Status           string         `gorm:"size:20;default:'built'" json:"status"` // built, submitted, failed
	Envelope         string         `gorm:"type:text" json:"envelope"`
	TxHash           string         `gorm:"size:255" json:"tx_hash"`
	Error            string         `gorm:"type:text" json:"error,omitempty"`
}

// TableName overrides the table name
func (Payout) TableName() string {
	return "payouts"
}
