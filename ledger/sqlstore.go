package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/invoice-factoring/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStore persists ledger state through gorm. Each change set is applied in
// one database transaction.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates the ledger tables.
func (s *SQLStore) Migrate() error {
	return s.db.AutoMigrate(&models.LedgerEntry{}, &models.LedgerEvent{})
}

func (s *SQLStore) Load(ctx context.Context, contract Address, key Key) ([]byte, bool, error) {
	var row models.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("contract_id = ? AND entry_key = ?", contract.String(), string(key)).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %s/%s: %w", contract, key, err)
	}
	return row.Value, true, nil
}

func (s *SQLStore) Commit(ctx context.Context, cs ChangeSet) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range cs.Entries {
			if e.Deleted {
				if err := tx.Where("contract_id = ? AND entry_key = ?", e.Contract.String(), string(e.Key)).
					Delete(&models.LedgerEntry{}).Error; err != nil {
					return fmt.Errorf("delete %s/%s: %w", e.Contract, e.Key, err)
				}
				continue
			}
			row := models.LedgerEntry{
				ContractID: e.Contract.String(),
				Key:        string(e.Key),
				Value:      e.Value,
				Sequence:   cs.Sequence,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "contract_id"}, {Name: "entry_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "sequence", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("write %s/%s: %w", e.Contract, e.Key, err)
			}
		}
		for i, ev := range cs.Events {
			row := models.LedgerEvent{
				ID:         ev.ID,
				ContractID: ev.Contract.String(),
				Topic:      ev.Topic,
				Data:       ev.Data,
				Sequence:   ev.Sequence,
				Position:   i,
				Timestamp:  ev.Timestamp,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("record event %s: %w", ev.Topic, err)
			}
		}
		return nil
	})
}

func (s *SQLStore) Events(ctx context.Context, contract Address) ([]Event, error) {
	var rows []models.LedgerEvent
	if err := s.db.WithContext(ctx).
		Where("contract_id = ?", contract.String()).
		Order("sequence ASC, position ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list events for %s: %w", contract, err)
	}
	out := make([]Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, Event{
			ID:        r.ID,
			Contract:  Address(r.ContractID),
			Topic:     r.Topic,
			Data:      r.Data,
			Sequence:  r.Sequence,
			Timestamp: r.Timestamp,
		})
	}
	return out, nil
}
