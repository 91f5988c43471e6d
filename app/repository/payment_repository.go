package repository

import (
	"time"

	"github.com/inktoons/inktoons/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create creates a new payment intent row
func (r *paymentRepository) Create(intent *models.PaymentIntent) error {
	return r.db.Create(intent).Error
}

// GetByPaymentID retrieves an intent by the network-assigned payment id
func (r *paymentRepository) GetByPaymentID(paymentID string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.Where("payment_id = ?", paymentID).First(&intent).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// Save writes the full intent row back
func (r *paymentRepository) Save(intent *models.PaymentIntent) error {
	return r.db.Save(intent).Error
}

// MarkCompleted records the completion of paymentID at most once. The unique
// index on payment_id makes the insert race-free; when the row already exists
// the state column decides whether this call won the completion. The credited
// flag is left untouched: the caller flips it after the ledger credit lands.
func (r *paymentRepository) MarkCompleted(userID uint, paymentID, txid string) (bool, *models.PaymentIntent, error) {
	now := time.Now()
	row := &models.PaymentIntent{
		UserID:      userID,
		PaymentID:   paymentID,
		TxID:        txid,
		State:       models.PaymentStateCompleted,
		CompletedAt: &now,
	}

	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "payment_id"}},
		DoNothing: true,
	}).Create(row)
	if tx.Error != nil {
		return false, nil, tx.Error
	}
	if tx.RowsAffected > 0 {
		return true, row, nil
	}

	// Row existed already: promote it to completed unless a previous call
	// got there first.
	var stored models.PaymentIntent
	if err := r.db.Where("payment_id = ?", paymentID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	if stored.State == models.PaymentStateCompleted {
		return false, &stored, nil
	}

	res := r.db.Model(&models.PaymentIntent{}).
		Where("payment_id = ? AND state <> ?", paymentID, models.PaymentStateCompleted).
		Updates(map[string]interface{}{
			"state":        models.PaymentStateCompleted,
			"tx_id":        txid,
			"completed_at": &now,
		})
	if res.Error != nil {
		return false, nil, res.Error
	}
	if err := r.db.Where("payment_id = ?", paymentID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return res.RowsAffected > 0, &stored, nil
}

// ListByUser retrieves a page of intents for a user, newest first
func (r *paymentRepository) ListByUser(userID uint, offset, limit int) ([]models.PaymentIntent, error) {
	var intents []models.PaymentIntent
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&intents).Error
	return intents, err
}
