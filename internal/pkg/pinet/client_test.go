package pinet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(srv *httptest.Server, apiKey string) *Client {
	return &Client{
		APIKey:     apiKey,
		APIBaseURL: srv.URL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestApprovePayment_Success(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"identifier":"p1","status":"approved"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, "test-key")
	if err := c.ApprovePayment(context.Background(), "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Key test-key" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotPath != "/payments/p1/approve" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
}

func TestApprovePayment_AlreadyApprovedIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"already_approved","error_message":"Payment already approved"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, "test-key")
	if err := c.ApprovePayment(context.Background(), "p1"); err != nil {
		t.Fatalf("expected already_approved to be treated as success, got %v", err)
	}
}

func TestApprovePayment_MissingKeyIsConfigError(t *testing.T) {
	c := &Client{APIKey: "", APIBaseURL: "http://127.0.0.1:0", HTTPClient: http.DefaultClient}
	err := c.ApprovePayment(context.Background(), "p1")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestApprovePayment_RejectionSurfacedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":"insufficient_funds"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, "test-key")
	err := c.ApprovePayment(context.Background(), "p1")

	var rej *RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("expected RejectionError, got %v", err)
	}
	if rej.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("unexpected status: %d", rej.StatusCode)
	}
	if rej.Detail == "" || rej.Operation != "approve" {
		t.Fatalf("expected verbatim detail on approve, got %+v", rej)
	}
}

func TestCompletePayment_SendsTxidAndHandlesDuplicate(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["txid"] != "tx-9" {
			t.Fatalf("expected txid in body, got %v", body)
		}
		if calls == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"completed"}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"already_completed"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, "test-key")
	if err := c.CompletePayment(context.Background(), "p1", "tx-9"); err != nil {
		t.Fatalf("first completion failed: %v", err)
	}
	if err := c.CompletePayment(context.Background(), "p1", "tx-9"); err != nil {
		t.Fatalf("expected already_completed to be treated as success, got %v", err)
	}
}

func TestVerifyAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(PiUser{UID: "uid-1", Username: "pioneer", WalletAddress: "GABC"})
	}))
	defer srv.Close()

	c := newTestClient(srv, "test-key")
	user, err := c.VerifyAccessToken(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.UID != "uid-1" || user.Username != "pioneer" {
		t.Fatalf("unexpected identity: %+v", user)
	}

	if _, err := c.VerifyAccessToken(context.Background(), "wrong"); err == nil {
		t.Fatalf("expected invalid token to fail")
	}
}
