package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/inktoons/inktoons/app/models"
	"github.com/inktoons/inktoons/app/repository"
	"github.com/inktoons/inktoons/internal/pkg/middleware"
)

type piAuthRequest struct {
	AccessToken       string `json:"accessToken"`
	IncompletePayment *struct {
		PaymentID string `json:"paymentId"`
		TxID      string `json:"txid"`
	} `json:"incompletePayment"`
}

// HandleAuthPi signs a user in with a Pi Network access token. The token is
// verified against the platform, the account is created on first contact, and
// a dangling incomplete payment handed over by the SDK is settled before the
// response goes out.
func HandleAuthPi(c *fiber.Ctx) error {
	var req piAuthRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	if req.AccessToken == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "accessToken is required")
	}

	piUser, err := piClient.VerifyAccessToken(c.Context(), req.AccessToken)
	if err != nil {
		log.Warnf("pi token verification failed: %v", err)
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "access token rejected")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByPiUID(piUser.UID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user, err = models.CreateUser(piUser.UID, piUser.Username, piUser.WalletAddress)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
		}
		user.TouchLogin()
		if err := userRepo.Create(user); err != nil {
			log.Errorf("create user failed: %v", err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not create account")
		}
	case err != nil:
		log.Errorf("user lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load account")
	default:
		if !user.IsActive() {
			return jsonError(c, fiber.StatusForbidden, "forbidden", "account is blocked")
		}
		user.Username = piUser.Username
		if piUser.WalletAddress != "" {
			user.WalletAddress = piUser.WalletAddress
		}
		user.TouchLogin()
		if err := userRepo.Update(user); err != nil {
			log.Warnf("user update failed for %d: %v", user.ID, err)
		}
	}

	state, err := ledgerService.Load(c.Context(), user.ID)
	if err != nil {
		log.Errorf("ledger load failed for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load wallet")
	}

	if err := middleware.LoginSession(c, user); err != nil {
		log.Errorf("session save failed for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not start session")
	}

	resumed := false
	if req.IncompletePayment != nil && req.IncompletePayment.PaymentID != "" {
		first, err := resumeIncompletePayment(c, user.ID, piUser.UID, req.IncompletePayment.PaymentID, req.IncompletePayment.TxID)
		if err != nil {
			log.Warnf("resume of payment %s failed: %v", req.IncompletePayment.PaymentID, err)
		} else {
			resumed = true
			if first {
				if err := creditCompletedPayment(c, user.ID, req.IncompletePayment.PaymentID); err != nil {
					log.Errorf("credit of resumed payment %s failed: %v", req.IncompletePayment.PaymentID, err)
				}
			}
		}
	}

	if resumed {
		state, err = ledgerService.Load(c.Context(), user.ID)
		if err != nil {
			log.Errorf("ledger reload failed for user %d: %v", user.ID, err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load wallet")
		}
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":             user.ID,
			"username":       user.Username,
			"wallet_address": user.WalletAddress,
		},
		"balance":         state.Balance,
		"plan":            planOf(state),
		"resumed_payment": resumed,
	})
}

// resumeIncompletePayment settles a payment the SDK reported as unfinished
// during sign-in. The platform record is checked against the authenticated
// identity first so a client cannot hand over someone else's payment id.
func resumeIncompletePayment(c *fiber.Ctx, userID uint, piUID, paymentID, txid string) (bool, error) {
	dto, err := piClient.GetPayment(c.Context(), paymentID)
	if err != nil {
		return false, err
	}
	if dto.UserUID != piUID {
		return false, errors.New("payment belongs to a different account")
	}
	return verifier.Complete(c.Context(), userID, paymentID, txid)
}

// HandleAuthLogout ends the session.
func HandleAuthLogout(c *fiber.Ctx) error {
	if err := middleware.LogoutSession(c); err != nil {
		log.Warnf("logout failed: %v", err)
	}
	return c.JSON(fiber.Map{"success": true})
}
