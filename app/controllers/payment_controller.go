package controllers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/inktoons/inktoons/app/models"
	"github.com/inktoons/inktoons/app/repository"
	"github.com/inktoons/inktoons/internal/pkg/metrics/counter"
	"github.com/inktoons/inktoons/internal/pkg/pinet"
	"github.com/inktoons/inktoons/internal/pkg/usercontext"
)

// paymentMetadata is what the client attaches to a payment at creation. The
// server reads it back from the platform record, never from the request body.
type paymentMetadata struct {
	Type    string `json:"type"`
	PackID  int    `json:"packId,omitempty"`
	Credits int64  `json:"credits,omitempty"`
	Plan    string `json:"plan,omitempty"`
	Months  int    `json:"months,omitempty"`
}

type approveRequest struct {
	PaymentID string `json:"paymentId"`
}

type completeRequest struct {
	PaymentID string `json:"paymentId"`
	TxID      string `json:"txid"`
}

// HandlePaymentApprove tells the network the server is ready for the payment.
// The platform record is fetched first so the local intent row carries the
// authoritative amount and metadata.
func HandlePaymentApprove(c *fiber.Ctx) error {
	var req approveRequest
	if err := c.BodyParser(&req); err != nil || req.PaymentID == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "paymentId is required")
	}

	dto, err := piClient.GetPayment(c.Context(), req.PaymentID)
	if err != nil {
		return paymentNetworkError(c, err)
	}
	if dto.UserUID != usercontext.GetUserContext(c).PiUID {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "payment belongs to a different account")
	}

	if err := verifier.Approve(c.Context(), req.PaymentID); err != nil {
		return paymentNetworkError(c, err)
	}

	if err := recordApprovedIntent(currentUserID(c), dto); err != nil {
		log.Errorf("record intent %s failed: %v", req.PaymentID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not record payment")
	}

	return c.JSON(fiber.Map{"success": true})
}

// HandlePaymentComplete finalizes a payment after the blockchain transaction
// was submitted. The ledger is credited exactly once per payment id, no
// matter how often completion is reported.
func HandlePaymentComplete(c *fiber.Ctx) error {
	var req completeRequest
	if err := c.BodyParser(&req); err != nil || req.PaymentID == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "paymentId is required")
	}

	dto, err := piClient.GetPayment(c.Context(), req.PaymentID)
	if err != nil {
		return paymentNetworkError(c, err)
	}
	if dto.UserUID != usercontext.GetUserContext(c).PiUID {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "payment belongs to a different account")
	}

	userID := currentUserID(c)
	first, err := verifier.Complete(c.Context(), userID, req.PaymentID, req.TxID)
	if err != nil {
		return paymentNetworkError(c, err)
	}

	if first {
		if err := creditCompletedPayment(c, userID, req.PaymentID); err != nil {
			log.Errorf("credit of payment %s failed: %v", req.PaymentID, err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "payment completed but credit failed")
		}
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"alreadyCompleted": !first,
	})
}

// HandlePaymentHistory lists the user's payment intents, newest first.
func HandlePaymentHistory(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	intents, err := repository.GetGlobalFactory().GetPaymentRepository().ListByUser(currentUserID(c), offset, limit)
	if err != nil {
		log.Errorf("payment history failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load history")
	}
	return c.JSON(fiber.Map{"payments": intents})
}

// recordApprovedIntent persists the platform's view of an approved payment.
// Re-approval of a known payment refreshes the row instead of duplicating it.
func recordApprovedIntent(userID uint, dto *pinet.PaymentDTO) error {
	payments := repository.GetGlobalFactory().GetPaymentRepository()

	intent, err := payments.GetByPaymentID(dto.Identifier)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		intent = &models.PaymentIntent{
			UserID:    userID,
			PaymentID: dto.Identifier,
			Amount:    dto.Amount,
			Memo:      dto.Memo,
			State:     models.PaymentStateApproved,
		}
		if len(dto.Metadata) > 0 {
			intent.MetadataJSON = string(dto.Metadata)
		}
		return payments.Create(intent)
	}
	if err != nil {
		return err
	}
	if intent.IsTerminal() {
		return nil
	}
	intent.Amount = dto.Amount
	intent.Memo = dto.Memo
	if len(dto.Metadata) > 0 {
		intent.MetadataJSON = string(dto.Metadata)
	}
	intent.State = models.PaymentStateApproved
	return payments.Save(intent)
}

// creditCompletedPayment applies the purchase recorded in the intent's
// metadata to the ledger. Callers must only invoke it for the first
// completion of a payment id.
func creditCompletedPayment(c *fiber.Ctx, userID uint, paymentID string) error {
	payments := repository.GetGlobalFactory().GetPaymentRepository()
	intent, err := payments.GetByPaymentID(paymentID)
	if err != nil {
		return err
	}
	if intent.Credited {
		return nil
	}

	var meta paymentMetadata
	if intent.MetadataJSON != "" {
		if err := json.Unmarshal([]byte(intent.MetadataJSON), &meta); err != nil {
			log.Warnf("payment %s has unreadable metadata: %v", paymentID, err)
		}
	}

	switch meta.Type {
	case "subscription":
		if _, err := ledgerService.SetSubscription(c.Context(), userID, meta.Plan, meta.Months); err != nil {
			return err
		}
	default:
		if meta.Credits <= 0 {
			log.Warnf("payment %s completed without creditable metadata", paymentID)
			return nil
		}
		if _, err := ledgerService.AddBalance(c.Context(), userID, meta.Credits); err != nil {
			return err
		}
	}

	if err := counter.AddPurchase(meta.Credits); err != nil {
		log.Warnf("purchase counter failed for %s: %v", paymentID, err)
	}

	intent.Credited = true
	now := time.Now()
	intent.CompletedAt = &now
	return payments.Save(intent)
}

// paymentNetworkError maps network-layer failures onto API responses. A
// missing server credential is an operator problem and must read differently
// from the network refusing the payment.
func paymentNetworkError(c *fiber.Ctx, err error) error {
	if errors.Is(err, pinet.ErrNotConfigured) {
		return jsonError(c, fiber.StatusInternalServerError, "server_not_configured", "payment credential missing")
	}
	var rejection *pinet.RejectionError
	if errors.As(err, &rejection) {
		status := fiber.StatusBadGateway
		if rejection.StatusCode >= 400 && rejection.StatusCode < 500 {
			status = rejection.StatusCode
		}
		return c.Status(status).JSON(fiber.Map{
			"error":   "payment_rejected",
			"message": rejection.Detail,
		})
	}
	log.Warnf("payment network call failed: %v", err)
	return jsonError(c, fiber.StatusBadGateway, "bad_gateway", "payment network unreachable")
}
