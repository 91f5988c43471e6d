package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/inktoons/inktoons/internal/pkg/entitlements"
	"github.com/inktoons/inktoons/internal/pkg/ledger"
	"github.com/inktoons/inktoons/internal/pkg/missions"
	"github.com/inktoons/inktoons/internal/pkg/payment"
	"github.com/inktoons/inktoons/internal/pkg/pinet"
	"github.com/inktoons/inktoons/internal/pkg/priceoracle"
	"github.com/inktoons/inktoons/internal/pkg/usercontext"
)

// Services shared by all controllers, wired once at startup.
var (
	piClient      *pinet.Client
	verifier      *payment.Verifier
	ledgerService *ledger.Service
	missionEngine *missions.Engine
	oracle        *priceoracle.Oracle
)

// InitServices wires the controller package to its backing services. Must be
// called before any route is registered.
func InitServices(pi *pinet.Client, v *payment.Verifier, l *ledger.Service, m *missions.Engine, o *priceoracle.Oracle) {
	piClient = pi
	verifier = v
	ledgerService = l
	missionEngine = m
	oracle = o
}

func currentUserID(c *fiber.Ctx) uint {
	return usercontext.GetUserID(c)
}

func currentPlan(c *fiber.Ctx) entitlements.Plan {
	return entitlements.NormalizePlan(usercontext.GetPlan(c))
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}
