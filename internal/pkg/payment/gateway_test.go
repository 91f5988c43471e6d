package payment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inktoons/inktoons/app/models"
)

// fakeNetwork is an in-memory payment network with the platform's duplicate
// semantics: repeating approve/complete for the same id succeeds.
type fakeNetwork struct {
	mu        sync.Mutex
	approved  map[string]bool
	completed map[string]bool

	approveErr  error
	completeErr error
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{approved: map[string]bool{}, completed: map[string]bool{}}
}

func (f *fakeNetwork) ApprovePayment(ctx context.Context, paymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.approveErr != nil {
		return f.approveErr
	}
	f.approved[paymentID] = true
	return nil
}

func (f *fakeNetwork) CompletePayment(ctx context.Context, paymentID, txid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return f.completeErr
	}
	if !f.approved[paymentID] {
		return errors.New("payment not approved")
	}
	f.completed[paymentID] = true
	return nil
}

// fakePaymentRepo implements repository.PaymentRepository in memory.
type fakePaymentRepo struct {
	mu   sync.Mutex
	rows map[string]*models.PaymentIntent
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{rows: map[string]*models.PaymentIntent{}}
}

func (f *fakePaymentRepo) Create(intent *models.PaymentIntent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[intent.PaymentID] = intent
	return nil
}

func (f *fakePaymentRepo) GetByPaymentID(paymentID string) (*models.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[paymentID]
	if !ok {
		return nil, errors.New("record not found")
	}
	return row, nil
}

func (f *fakePaymentRepo) Save(intent *models.PaymentIntent) error {
	return f.Create(intent)
}

func (f *fakePaymentRepo) MarkCompleted(userID uint, paymentID, txid string) (bool, *models.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[paymentID]; ok {
		if row.State == models.PaymentStateCompleted {
			return false, row, nil
		}
		row.State = models.PaymentStateCompleted
		row.TxID = txid
		return true, row, nil
	}
	row := &models.PaymentIntent{
		UserID:    userID,
		PaymentID: paymentID,
		TxID:      txid,
		State:     models.PaymentStateCompleted,
	}
	f.rows[paymentID] = row
	return true, row, nil
}

func (f *fakePaymentRepo) ListByUser(userID uint, offset, limit int) ([]models.PaymentIntent, error) {
	return nil, nil
}

// scriptedSDK drives the callback sequence synchronously.
type scriptedSDK struct {
	script func(cb Callbacks)
}

func (s *scriptedSDK) CreatePayment(ctx context.Context, amount float64, memo string, metadata map[string]interface{}, cb Callbacks) error {
	s.script(cb)
	return nil
}

func newTestGateway(t *testing.T, net *fakeNetwork, script func(cb Callbacks)) (*Gateway, *fakePaymentRepo) {
	t.Helper()
	repo := newFakePaymentRepo()
	v := NewVerifier(net, repo)
	g := NewGateway(&scriptedSDK{script: script}, v, 7, ModeSandbox)
	return g, repo
}

func TestGatewayHappyPath(t *testing.T) {
	net := newFakeNetwork()
	g, _ := newTestGateway(t, net, func(cb Callbacks) {
		cb.OnReadyForApproval("p1")
		cb.OnReadyForCompletion("p1", "tx1")
	})

	var credited int
	var results []Result
	g.OnTerminal = func(r Result) { results = append(results, r) }

	err := g.CreatePayment(context.Background(), 1.5, "Ink Jar (160 Inks)", map[string]interface{}{"credits": 160}, func(i *Intent) {
		credited++
		assert.Equal(t, models.PaymentStateCompleted, i.State())
	})
	require.NoError(t, err)

	assert.Equal(t, 1, credited, "onSuccess must fire exactly once")
	require.Len(t, results, 1, "exactly one terminal notification")
	assert.True(t, results[0].Credited)
	assert.NoError(t, results[0].Err)
	assert.True(t, net.completed["p1"])
}

func TestGatewayApprovalFailureAbandonsPurchase(t *testing.T) {
	net := newFakeNetwork()
	net.approveErr = errors.New("card declined")

	g, _ := newTestGateway(t, net, func(cb Callbacks) {
		cb.OnReadyForApproval("p1")
	})

	var credited int
	var results []Result
	g.OnTerminal = func(r Result) { results = append(results, r) }

	err := g.CreatePayment(context.Background(), 1, "x", nil, func(*Intent) { credited++ })
	require.NoError(t, err)

	assert.Zero(t, credited, "no ledger mutation on approval failure")
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	assert.Equal(t, models.PaymentStateFailed, results[0].Intent.State())
	assert.False(t, net.completed["p1"], "completion must never run after failed approval")
}

func TestGatewayCompletionBeforeApprovalIsProtocolViolation(t *testing.T) {
	net := newFakeNetwork()
	g, _ := newTestGateway(t, net, func(cb Callbacks) {
		// SDK skips the approval checkpoint entirely.
		cb.OnReadyForCompletion("p1", "tx1")
	})

	var credited int
	g.OnTerminal = func(Result) {}

	err := g.CreatePayment(context.Background(), 1, "x", nil, func(*Intent) { credited++ })
	require.NoError(t, err)
	assert.Zero(t, credited)
	assert.False(t, net.completed["p1"])
}

func TestGatewayCancelAndErrorProduceNoCredit(t *testing.T) {
	for name, script := range map[string]func(cb Callbacks){
		"cancel": func(cb Callbacks) {
			cb.OnReadyForApproval("p1")
			cb.OnCancel("p1")
		},
		"error": func(cb Callbacks) {
			cb.OnReadyForApproval("p1")
			cb.OnError(errors.New("network dropped"), "p1")
		},
	} {
		t.Run(name, func(t *testing.T) {
			net := newFakeNetwork()
			g, _ := newTestGateway(t, net, script)

			var credited int
			var results []Result
			g.OnTerminal = func(r Result) { results = append(results, r) }

			require.NoError(t, g.CreatePayment(context.Background(), 1, "x", nil, func(*Intent) { credited++ }))
			assert.Zero(t, credited)
			require.Len(t, results, 1, "single terminal notification")
			assert.True(t, results[0].Intent.IsTerminal())
		})
	}
}

func TestGatewayRejectsSecondInFlightPayment(t *testing.T) {
	net := newFakeNetwork()
	g, _ := newTestGateway(t, net, func(cb Callbacks) {
		// Never reaches a terminal state: simulates an outstanding flow.
		cb.OnReadyForApproval("p1")
	})

	require.NoError(t, g.CreatePayment(context.Background(), 1, "x", nil, nil))
	err := g.CreatePayment(context.Background(), 1, "y", nil, nil)
	assert.ErrorIs(t, err, ErrPaymentInFlight)
}

func TestGatewayDuplicateCompletionCreditsOnce(t *testing.T) {
	net := newFakeNetwork()
	repo := newFakePaymentRepo()
	v := NewVerifier(net, repo)

	var credited int
	run := func() {
		sdk := &scriptedSDK{script: func(cb Callbacks) {
			cb.OnReadyForApproval("p1")
			cb.OnReadyForCompletion("p1", "tx1")
		}}
		g := NewGateway(sdk, v, 7, ModeSandbox)
		g.OnTerminal = func(Result) {}
		require.NoError(t, g.CreatePayment(context.Background(), 1, "x", nil, func(*Intent) { credited++ }))
	}

	run() // original purchase
	run() // client retry: network says already completed, local row says credited

	assert.Equal(t, 1, credited, "retry must not re-credit the ledger")
}

func TestGatewayResumeIncomplete(t *testing.T) {
	net := newFakeNetwork()
	net.approved["p9"] = true

	repo := newFakePaymentRepo()
	g := NewGateway(&scriptedSDK{script: func(Callbacks) {}}, NewVerifier(net, repo), 7, ModeSandbox)

	credited, err := g.ResumeIncomplete(context.Background(), "p9", "tx9")
	require.NoError(t, err)
	assert.True(t, credited, "first completion of a recovered payment credits")

	credited, err = g.ResumeIncomplete(context.Background(), "p9", "tx9")
	require.NoError(t, err)
	assert.False(t, credited, "second recovery of the same payment must not credit")
}

func TestGatewaySwitchModeDiscardsInFlightIntent(t *testing.T) {
	net := newFakeNetwork()
	g, _ := newTestGateway(t, net, func(cb Callbacks) {
		cb.OnReadyForApproval("p1")
	})

	require.NoError(t, g.CreatePayment(context.Background(), 1, "x", nil, nil))
	g.SwitchMode(ModeProduction)
	assert.Equal(t, ModeProduction, g.Mode())

	// The discarded intent must not block a fresh purchase.
	err := g.CreatePayment(context.Background(), 1, "y", nil, nil)
	assert.NoError(t, err)
}

func TestResolveMode(t *testing.T) {
	tests := []struct {
		host string
		want Mode
	}{
		{host: "localhost", want: ModeSandbox},
		{host: "127.0.0.1", want: ModeSandbox},
		{host: "abc123.ngrok-free.app", want: ModeSandbox},
		{host: "tunnel.ngrok.io", want: ModeSandbox},
		{host: "inktoons.app", want: ModeProduction},
	}
	for _, tt := range tests {
		if got := ResolveMode(tt.host); got != tt.want {
			t.Fatalf("ResolveMode(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}
