package pinet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/inktoons/inktoons/internal/pkg/env"
)

const defaultAPIBaseURL = "https://api.minepi.com/v2"

// ErrNotConfigured signals a missing server credential. It must stay
// distinguishable from a network rejection so operators can tell
// "misconfigured" from "network said no".
var ErrNotConfigured = errors.New("pinet: PI_API_KEY is not configured")

// RejectionError carries a verbatim non-success response from the payment
// network. Idempotent duplicates (already approved / already completed) are
// not rejections and are never wrapped in this type.
type RejectionError struct {
	Operation  string
	PaymentID  string
	StatusCode int
	Detail     string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("pinet: %s rejected for payment %s: status=%d detail=%s",
		e.Operation, e.PaymentID, e.StatusCode, e.Detail)
}

// Client talks to the Pi platform API with the server-held credential.
type Client struct {
	APIKey     string
	APIBaseURL string

	HTTPClient *http.Client
}

// PiUser is the identity the platform hands back for a verified access token.
type PiUser struct {
	UID           string `json:"uid"`
	Username      string `json:"username"`
	WalletAddress string `json:"wallet_address"`
}

// NewClientFromEnv builds a client from PI_API_KEY / PI_API_BASE_URL.
func NewClientFromEnv() *Client {
	return &Client{
		APIKey:     strings.TrimSpace(env.GetEnv("PI_API_KEY", "")),
		APIBaseURL: strings.TrimRight(strings.TrimSpace(env.GetEnv("PI_API_BASE_URL", defaultAPIBaseURL)), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ApprovePayment calls the network's approval endpoint. An "already approved"
// response is treated as success.
func (c *Client) ApprovePayment(ctx context.Context, paymentID string) error {
	return c.postPaymentOp(ctx, "approve", paymentID, nil, "already_approved")
}

// CompletePayment calls the network's completion endpoint with the broadcast
// transaction id. An "already completed" response is treated as success.
func (c *Client) CompletePayment(ctx context.Context, paymentID, txid string) error {
	body := map[string]string{"txid": txid}
	return c.postPaymentOp(ctx, "complete", paymentID, body, "already_completed")
}

func (c *Client) postPaymentOp(ctx context.Context, op, paymentID string, body interface{}, duplicateMarker string) error {
	if c.APIKey == "" {
		return ErrNotConfigured
	}
	if strings.TrimSpace(paymentID) == "" {
		return errors.New("pinet: payment id is required")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	url := fmt.Sprintf("%s/payments/%s/%s", c.APIBaseURL, paymentID, op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Key "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// The network reports duplicates as errors; for us they are successes.
	if strings.Contains(string(raw), duplicateMarker) {
		return nil
	}

	return &RejectionError{
		Operation:  op,
		PaymentID:  paymentID,
		StatusCode: resp.StatusCode,
		Detail:     string(raw),
	}
}

// PaymentDTO is the platform's record of a payment, fetched server-side to
// validate what the client claims to have bought.
type PaymentDTO struct {
	Identifier string          `json:"identifier"`
	UserUID    string          `json:"user_uid"`
	Amount     float64         `json:"amount"`
	Memo       string          `json:"memo"`
	Metadata   json.RawMessage `json:"metadata"`
	Transaction *struct {
		TxID     string `json:"txid"`
		Verified bool   `json:"verified"`
	} `json:"transaction"`
}

// GetPayment fetches the payment record from the network. The metadata the
// client attached at creation comes back here, so the server never has to
// trust the request body for what the payment is worth.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*PaymentDTO, error) {
	if c.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(paymentID) == "" {
		return nil, errors.New("pinet: payment id is required")
	}

	url := fmt.Sprintf("%s/payments/%s", c.APIBaseURL, paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Key "+c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RejectionError{
			Operation:  "get",
			PaymentID:  paymentID,
			StatusCode: resp.StatusCode,
			Detail:     string(raw),
		}
	}

	var dto PaymentDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// VerifyAccessToken resolves a client-supplied access token to the platform
// identity behind it. This is the whole identity boundary: the app never sees
// credentials, only the stable uid.
func (c *Client) VerifyAccessToken(ctx context.Context, accessToken string) (*PiUser, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		return nil, errors.New("pinet: access token is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIBaseURL+"/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pinet: token verification failed: status=%d body=%s", resp.StatusCode, string(raw))
	}

	var user PiUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, err
	}
	if strings.TrimSpace(user.UID) == "" {
		return nil, errors.New("pinet: identity response missing uid")
	}
	return &user, nil
}
