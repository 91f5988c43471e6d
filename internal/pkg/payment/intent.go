package payment

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/inktoons/inktoons/app/models"
)

// ErrInvalidTransition is returned when an intent is asked to move to a state
// its current state does not allow.
var ErrInvalidTransition = errors.New("payment: invalid intent transition")

// Intent tracks one purchase attempt through the external network's
// checkpoint sequence. The SDK callbacks are the only transition triggers;
// there is no other way to move an intent forward.
type Intent struct {
	ClientRef string
	UserID    uint
	Amount    float64
	Memo      string
	Metadata  map[string]interface{}

	PaymentID string
	TxID      string

	state        string
	failureCause string
}

// NewIntent creates an intent in the Created state.
func NewIntent(userID uint, amount float64, memo string, metadata map[string]interface{}) *Intent {
	return &Intent{
		ClientRef: uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		Memo:      memo,
		Metadata:  metadata,
		state:     models.PaymentStateCreated,
	}
}

// State returns the current lifecycle state.
func (i *Intent) State() string {
	return i.state
}

// FailureCause returns the recorded failure detail, if any.
func (i *Intent) FailureCause() string {
	return i.failureCause
}

// IsTerminal reports whether the intent reached Completed, Cancelled or Failed.
func (i *Intent) IsTerminal() bool {
	switch i.state {
	case models.PaymentStateCompleted, models.PaymentStateCancelled, models.PaymentStateFailed:
		return true
	default:
		return false
	}
}

// MarkPendingApproval records the network-assigned payment id and enters the
// approval phase.
func (i *Intent) MarkPendingApproval(paymentID string) error {
	if i.state != models.PaymentStateCreated {
		return transitionErr(i.state, models.PaymentStatePendingApproval)
	}
	i.PaymentID = paymentID
	i.state = models.PaymentStatePendingApproval
	return nil
}

// MarkApproved records a successful server approval.
func (i *Intent) MarkApproved() error {
	if i.state != models.PaymentStatePendingApproval {
		return transitionErr(i.state, models.PaymentStateApproved)
	}
	i.state = models.PaymentStateApproved
	return nil
}

// MarkPendingCompletion records the broadcast txid and enters the completion
// phase. Only a previously approved intent may start completing; this is the
// ordering guarantee between the two server checkpoints.
func (i *Intent) MarkPendingCompletion(txid string) error {
	if i.state != models.PaymentStateApproved {
		return transitionErr(i.state, models.PaymentStatePendingCompletion)
	}
	i.TxID = txid
	i.state = models.PaymentStatePendingCompletion
	return nil
}

// MarkCompleted records completion acknowledged by the network.
func (i *Intent) MarkCompleted() error {
	if i.state != models.PaymentStatePendingCompletion {
		return transitionErr(i.state, models.PaymentStateCompleted)
	}
	i.state = models.PaymentStateCompleted
	return nil
}

// Cancel moves any non-terminal intent to Cancelled.
func (i *Intent) Cancel() error {
	if i.IsTerminal() {
		return transitionErr(i.state, models.PaymentStateCancelled)
	}
	i.state = models.PaymentStateCancelled
	return nil
}

// Fail moves any non-terminal intent to Failed and records the cause.
func (i *Intent) Fail(cause string) error {
	if i.IsTerminal() {
		return transitionErr(i.state, models.PaymentStateFailed)
	}
	i.failureCause = cause
	i.state = models.PaymentStateFailed
	return nil
}

func transitionErr(from, to string) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
