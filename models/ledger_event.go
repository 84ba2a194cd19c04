package models

import "time"

type LedgerEvent struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ContractID string    `gorm:"index;size:64;not null" json:"contract_id"`
	Topic      string    `gorm:"size:32;not null" json:"topic"`
	Data       []byte    `json:"data"`
	Sequence   uint64    `gorm:"index;not null" json:"sequence"`
	Position   int       `gorm:"not null" json:"position"` // order within the ledger
	Timestamp  time.Time `json:"timestamp"`
}

// TableName overrides the table name
func (LedgerEvent) TableName() string {
	return "ledger_events"
}
