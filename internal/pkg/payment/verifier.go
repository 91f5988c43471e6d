package payment

import (
	"context"

	"github.com/inktoons/inktoons/app/repository"
)

// NetworkClient is the slice of the platform API the verifier needs.
type NetworkClient interface {
	ApprovePayment(ctx context.Context, paymentID string) error
	CompletePayment(ctx context.Context, paymentID, txid string) error
}

// Verifier is the only component trusted with the payment-network credential.
// Both operations are pure request/response; failures are surfaced to the
// client and never retried server-side.
type Verifier struct {
	client   NetworkClient
	payments repository.PaymentRepository
}

// NewVerifier creates a verifier over a network client and the intent store.
func NewVerifier(client NetworkClient, payments repository.PaymentRepository) *Verifier {
	return &Verifier{client: client, payments: payments}
}

// Approve asks the network to approve the payment. Idempotent duplicates are
// already folded into success by the client.
func (v *Verifier) Approve(ctx context.Context, paymentID string) error {
	return v.client.ApprovePayment(ctx, paymentID)
}

// Complete asks the network to complete the payment and then records the
// completion locally. The returned bool reports whether this call was the
// first completion for paymentID: only then may the caller credit the ledger.
// The local row, not the network's "already completed" signal, is the
// at-most-once authority.
func (v *Verifier) Complete(ctx context.Context, userID uint, paymentID, txid string) (bool, error) {
	if err := v.client.CompletePayment(ctx, paymentID, txid); err != nil {
		return false, err
	}
	first, _, err := v.payments.MarkCompleted(userID, paymentID, txid)
	if err != nil {
		return false, err
	}
	return first, nil
}
