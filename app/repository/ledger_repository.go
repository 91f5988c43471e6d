package repository

import (
	"github.com/inktoons/inktoons/app/models"
	"gorm.io/gorm"
)

// ledgerRepository implements the LedgerRepository interface
type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository instance
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// Create creates a new ledger row for a user
func (r *ledgerRepository) Create(state *models.LedgerState) error {
	return r.db.Create(state).Error
}

// GetByUserID retrieves the ledger for a user
func (r *ledgerRepository) GetByUserID(userID uint) (*models.LedgerState, error) {
	var state models.LedgerState
	err := r.db.Where("user_id = ?", userID).First(&state).Error
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Save writes the full ledger row back
func (r *ledgerRepository) Save(state *models.LedgerState) error {
	return r.db.Save(state).Error
}
