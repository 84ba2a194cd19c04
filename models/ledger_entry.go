package models

import "time"

// LedgerEntry is one key of one contract's key space.
type LedgerEntry struct {
	ContractID string    `gorm:"primaryKey;size:64" json:"contract_id"`
	Key        string    `gorm:"column:entry_key;primaryKey;size:191" json:"key"`
	Value      []byte    `gorm:"not null" json:"value"`
	Sequence   uint64    `gorm:"not null" json:"sequence"` // ledger that last wrote the key
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
