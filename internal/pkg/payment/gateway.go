package payment

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/inktoons/inktoons/internal/pkg/env"
)

// Mode selects sandbox or production behavior of the wallet SDK. It is
// resolved once per session; business logic never branches on it.
type Mode string

const (
	ModeSandbox    Mode = "sandbox"
	ModeProduction Mode = "production"
)

// ErrPaymentInFlight rejects a second purchase while one intent is still
// non-terminal (the double-tap guard).
var ErrPaymentInFlight = errors.New("payment: another payment is in flight")

// Callbacks are the four checkpoints the wallet SDK raises while driving a
// payment.
type Callbacks struct {
	OnReadyForApproval   func(paymentID string)
	OnReadyForCompletion func(paymentID, txid string)
	OnCancel             func(paymentID string)
	OnError              func(err error, paymentID string)
}

// WalletSDK abstracts the external wallet SDK's payment flow.
type WalletSDK interface {
	CreatePayment(ctx context.Context, amount float64, memo string, metadata map[string]interface{}, cb Callbacks) error
}

// VerifierAPI is the server boundary the gateway forwards checkpoints to.
type VerifierAPI interface {
	Approve(ctx context.Context, paymentID string) error
	Complete(ctx context.Context, userID uint, paymentID, txid string) (bool, error)
}

// Result describes the single terminal notification for an intent.
type Result struct {
	Intent   *Intent
	Credited bool
	Err      error
}

// Gateway drives one purchase end-to-end: it owns the in-flight intent,
// forwards the two server checkpoints in order, and reports exactly one
// terminal result per intent.
type Gateway struct {
	sdk      WalletSDK
	verifier VerifierAPI
	userID   uint

	mu       sync.Mutex
	mode     Mode
	current  *Intent
	notified bool

	// OnTerminal, when set, receives the single terminal notification for
	// each intent (success, cancel or error).
	OnTerminal func(Result)
}

// NewGateway creates a gateway for one authenticated user session.
func NewGateway(sdk WalletSDK, verifier VerifierAPI, userID uint, mode Mode) *Gateway {
	return &Gateway{
		sdk:      sdk,
		verifier: verifier,
		userID:   userID,
		mode:     mode,
	}
}

// Mode returns the session's resolved SDK mode.
func (g *Gateway) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// SwitchMode changes the SDK mode for the session. Any non-terminal intent is
// discarded first: a payment started in one mode is never resumed in another.
func (g *Gateway) SwitchMode(mode Mode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current != nil && !g.current.IsTerminal() {
		_ = g.current.Cancel()
		g.current = nil
		g.notified = false
	}
	g.mode = mode
}

// CreatePayment starts a purchase. onSuccess runs exactly once, only after
// the network acknowledged completion and only when this flow won the
// ledger credit; it is where the caller mutates the ledger.
func (g *Gateway) CreatePayment(ctx context.Context, amount float64, memo string, metadata map[string]interface{}, onSuccess func(*Intent)) error {
	g.mu.Lock()
	if g.current != nil && !g.current.IsTerminal() {
		g.mu.Unlock()
		return ErrPaymentInFlight
	}
	intent := NewIntent(g.userID, amount, memo, metadata)
	g.current = intent
	g.notified = false
	g.mu.Unlock()

	cb := Callbacks{
		OnReadyForApproval: func(paymentID string) {
			g.mu.Lock()
			defer g.mu.Unlock()
			if err := intent.MarkPendingApproval(paymentID); err != nil {
				return
			}
			if err := g.verifier.Approve(ctx, paymentID); err != nil {
				_ = intent.Fail(err.Error())
				g.notifyLocked(Result{Intent: intent, Err: err})
				return
			}
			_ = intent.MarkApproved()
		},
		OnReadyForCompletion: func(paymentID, txid string) {
			g.mu.Lock()
			defer g.mu.Unlock()
			// Completion before a successful approval is a protocol
			// violation, not a retry; abandon the intent.
			if err := intent.MarkPendingCompletion(txid); err != nil {
				_ = intent.Fail(err.Error())
				g.notifyLocked(Result{Intent: intent, Err: err})
				return
			}
			credited, err := g.verifier.Complete(ctx, g.userID, paymentID, txid)
			if err != nil {
				_ = intent.Fail(err.Error())
				g.notifyLocked(Result{Intent: intent, Err: err})
				return
			}
			_ = intent.MarkCompleted()
			if credited && onSuccess != nil {
				onSuccess(intent)
			}
			g.notifyLocked(Result{Intent: intent, Credited: credited})
		},
		OnCancel: func(paymentID string) {
			g.mu.Lock()
			defer g.mu.Unlock()
			if intent.IsTerminal() {
				return
			}
			_ = intent.Cancel()
			g.notifyLocked(Result{Intent: intent})
		},
		OnError: func(err error, paymentID string) {
			g.mu.Lock()
			defer g.mu.Unlock()
			if intent.IsTerminal() {
				return
			}
			_ = intent.Fail(err.Error())
			g.notifyLocked(Result{Intent: intent, Err: err})
		},
	}

	return g.sdk.CreatePayment(ctx, amount, memo, metadata, cb)
}

// ResumeIncomplete forwards a payment the SDK reported as incomplete at
// authentication time. It is a recovery path, not a new purchase: no success
// handler runs, the caller credits from the verifier's first-completion
// signal instead.
func (g *Gateway) ResumeIncomplete(ctx context.Context, paymentID, txid string) (bool, error) {
	return g.verifier.Complete(ctx, g.userID, paymentID, txid)
}

func (g *Gateway) notifyLocked(res Result) {
	if g.notified {
		return
	}
	g.notified = true
	if g.OnTerminal != nil {
		g.OnTerminal(res)
	}
}

// ResolveMode decides the SDK mode from the deployment host, the same rule
// the storefront applies: local and tunnel hosts run against the sandbox.
func ResolveMode(hostname string) Mode {
	h := strings.ToLower(strings.TrimSpace(hostname))
	if h == "localhost" || h == "127.0.0.1" ||
		strings.Contains(h, "ngrok-free.app") || strings.Contains(h, "ngrok.io") {
		return ModeSandbox
	}
	return ModeProduction
}

// ResolveModeFromEnv resolves the mode once at session start. PI_SANDBOX
// overrides host detection for deployments that need to force test currency.
func ResolveModeFromEnv() Mode {
	switch strings.ToLower(strings.TrimSpace(env.GetEnv("PI_SANDBOX", ""))) {
	case "1", "true", "yes":
		return ModeSandbox
	case "0", "false", "no":
		return ModeProduction
	}
	return ResolveMode(env.GetEnv("APP_HOST", "localhost"))
}
