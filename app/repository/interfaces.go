package repository

import (
	"github.com/inktoons/inktoons/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByPiUID(piUID string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// LedgerRepository defines the interface for ledger persistence. The service
// layer owns all invariant checks; the repository only moves rows.
type LedgerRepository interface {
	Create(state *models.LedgerState) error
	GetByUserID(userID uint) (*models.LedgerState, error)
	Save(state *models.LedgerState) error
}

// PaymentRepository defines the interface for payment intent bookkeeping.
type PaymentRepository interface {
	Create(intent *models.PaymentIntent) error
	GetByPaymentID(paymentID string) (*models.PaymentIntent, error)
	Save(intent *models.PaymentIntent) error
	// MarkCompleted records a completed payment exactly once. It returns
	// true when this call was the first completion for paymentID, which is
	// the signal that the ledger credit may happen.
	MarkCompleted(userID uint, paymentID, txid string) (bool, *models.PaymentIntent, error)
	ListByUser(userID uint, offset, limit int) ([]models.PaymentIntent, error)
}

// MissionRepository defines the interface for the per-user mission working set.
type MissionRepository interface {
	GetSetForUser(userID uint) ([]models.MissionInstance, error)
	ReplaceSetForUser(userID uint, set []models.MissionInstance) error
	GetByID(id uint) (*models.MissionInstance, error)
	Save(instance *models.MissionInstance) error
	SaveAll(instances []models.MissionInstance) error
}

// Repositories bundles all repository implementations
type Repositories struct {
	User    UserRepository
	Ledger  LedgerRepository
	Payment PaymentRepository
	Mission MissionRepository
}

// NewRepositories creates all repositories against one DB handle
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Ledger:  NewLedgerRepository(db),
		Payment: NewPaymentRepository(db),
		Mission: NewMissionRepository(db),
	}
}
