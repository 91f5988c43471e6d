package payment

import (
	"errors"
	"testing"

	"github.com/inktoons/inktoons/app/models"
)

func TestIntentHappyPath(t *testing.T) {
	i := NewIntent(1, 2.5, "Ink Jar", map[string]interface{}{"packId": 2})
	if i.State() != models.PaymentStateCreated {
		t.Fatalf("new intent state = %q", i.State())
	}
	if i.ClientRef == "" {
		t.Fatalf("expected client ref to be assigned")
	}

	steps := []func() error{
		func() error { return i.MarkPendingApproval("p1") },
		func() error { return i.MarkApproved() },
		func() error { return i.MarkPendingCompletion("tx1") },
		func() error { return i.MarkCompleted() },
	}
	for n, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d failed: %v", n, err)
		}
	}
	if !i.IsTerminal() || i.State() != models.PaymentStateCompleted {
		t.Fatalf("expected completed terminal intent, got %q", i.State())
	}
	if i.PaymentID != "p1" || i.TxID != "tx1" {
		t.Fatalf("ids not recorded: %q %q", i.PaymentID, i.TxID)
	}
}

func TestIntentCompletionRequiresApproval(t *testing.T) {
	i := NewIntent(1, 1, "x", nil)
	if err := i.MarkPendingApproval("p1"); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	// Skipping MarkApproved must make completion illegal.
	err := i.MarkPendingCompletion("tx1")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestIntentSideExits(t *testing.T) {
	i := NewIntent(1, 1, "x", nil)
	_ = i.MarkPendingApproval("p1")
	if err := i.Cancel(); err != nil {
		t.Fatalf("cancel from pending approval should be legal: %v", err)
	}
	if !i.IsTerminal() {
		t.Fatalf("cancelled intent must be terminal")
	}
	if err := i.Fail("late error"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("terminal intent must reject further transitions, got %v", err)
	}

	j := NewIntent(1, 1, "y", nil)
	if err := j.Fail("sdk exploded"); err != nil {
		t.Fatalf("fail from created should be legal: %v", err)
	}
	if j.FailureCause() != "sdk exploded" {
		t.Fatalf("failure cause not recorded: %q", j.FailureCause())
	}
	if err := j.MarkPendingApproval("p2"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("failed intent must not restart, got %v", err)
	}
}
