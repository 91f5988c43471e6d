package models

import "time"

// Payment intent states. Completed is reached only after both approval and
// completion were acknowledged by the payment network; Cancelled and Failed
// are reachable from any non-terminal state.
const (
	PaymentStateCreated           = "created"
	PaymentStatePendingApproval   = "pending_approval"
	PaymentStateApproved          = "approved"
	PaymentStatePendingCompletion = "pending_completion"
	PaymentStateCompleted         = "completed"
	PaymentStateCancelled         = "cancelled"
	PaymentStateFailed            = "failed"
)

// PaymentIntent records one attempted payment against the external network.
// The unique index on payment_id is the at-most-once crediting authority:
// a completion that finds an existing completed row must not credit again,
// regardless of what the network's duplicate signal says.
type PaymentIntent struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;index" json:"user_id"`
	PaymentID    string     `gorm:"uniqueIndex;type:varchar(191);not null" json:"payment_id"`
	TxID         string     `gorm:"type:varchar(191);default:''" json:"txid"`
	Amount       float64    `gorm:"type:decimal(18,7);not null" json:"amount"`
	Memo         string     `gorm:"type:varchar(255)" json:"memo"`
	MetadataJSON string     `gorm:"type:text" json:"metadata_json"`
	State        string     `gorm:"type:varchar(32);not null;default:'created';index" json:"state"`
	Credited     bool       `gorm:"default:false" json:"credited"`
	CompletedAt  *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	FailureCause string     `gorm:"type:text" json:"failure_cause,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the intent reached a final state.
func (p *PaymentIntent) IsTerminal() bool {
	switch p.State {
	case PaymentStateCompleted, PaymentStateCancelled, PaymentStateFailed:
		return true
	default:
		return false
	}
}
