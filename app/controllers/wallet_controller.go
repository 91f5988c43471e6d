package controllers

import (
	"fmt"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/inktoons/inktoons/app/models"
	"github.com/inktoons/inktoons/internal/pkg/entitlements"
	"github.com/inktoons/inktoons/internal/pkg/priceoracle"
)

// InkPack is one purchasable top-up bundle.
type InkPack struct {
	ID       int     `json:"id"`
	Label    string  `json:"label"`
	Amount   int64   `json:"amount"`
	Bonus    int64   `json:"bonus"`
	PriceUSD float64 `json:"price_usd"`
}

// Credits is the total Ink amount the pack is worth.
func (p InkPack) Credits() int64 {
	return p.Amount + p.Bonus
}

// inkPacks is the fixed catalog shown in the wallet.
var inkPacks = []InkPack{
	{ID: 1, Label: "Starter Pack", Amount: 50, Bonus: 0, PriceUSD: 1.00},
	{ID: 2, Label: "Popular Pack", Amount: 150, Bonus: 10, PriceUSD: 3.00},
	{ID: 3, Label: "Mega Pack", Amount: 500, Bonus: 100, PriceUSD: 10.00},
}

// subscriptionPlan is one purchasable subscription tier.
type subscriptionPlan struct {
	Plan          entitlements.Plan `json:"plan"`
	PriceUSDMonth float64           `json:"price_usd_month"`
}

var subscriptionPlans = []subscriptionPlan{
	{Plan: entitlements.PlanVIP, PriceUSDMonth: 4.99},
	{Plan: entitlements.PlanVIPMax, PriceUSDMonth: 9.99},
}

func packByID(id int) (InkPack, bool) {
	for _, p := range inkPacks {
		if p.ID == id {
			return p, true
		}
	}
	return InkPack{}, false
}

func subscriptionPlanFor(plan entitlements.Plan) (subscriptionPlan, bool) {
	for _, s := range subscriptionPlans {
		if s.Plan == plan {
			return s, true
		}
	}
	return subscriptionPlan{}, false
}

func planOf(state *models.LedgerState) string {
	if state.HasActiveSubscription(time.Now()) {
		return string(entitlements.NormalizePlan(state.SubscriptionPlan))
	}
	return string(entitlements.PlanFree)
}

// roundPi trims a Pi amount to two decimals, matching what the payment
// dialog displays.
func roundPi(v float64) float64 {
	return math.Round(v*100) / 100
}

// HandleWalletGet returns the balance, subscription, pack catalog and the
// live exchange rate in one shot for the wallet screen.
func HandleWalletGet(c *fiber.Ctx) error {
	state, err := ledgerService.Load(c.Context(), currentUserID(c))
	if err != nil {
		log.Errorf("wallet load failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load wallet")
	}

	resp := fiber.Map{
		"balance":       state.Balance,
		"plan":          planOf(state),
		"ink_usd":       priceoracle.InkUSD,
		"packs":         inkPacks,
		"subscriptions": subscriptionPlans,
	}
	if state.SubscriptionExpiresAt != nil {
		resp["subscription_expires_at"] = state.SubscriptionExpiresAt
	}
	if quote, ok := oracle.Quote(); ok {
		resp["pi_usd"] = quote.Price
		resp["price_fetched_at"] = quote.FetchedAt
	}
	return c.JSON(resp)
}

// HandlePriceGet returns the current Pi quote, 503 when none was fetched yet.
func HandlePriceGet(c *fiber.Ctx) error {
	quote, ok := oracle.Quote()
	if !ok {
		return jsonError(c, fiber.StatusServiceUnavailable, "price_unavailable", "no exchange rate available yet")
	}
	return c.JSON(fiber.Map{
		"pi_usd":     quote.Price,
		"ink_usd":    priceoracle.InkUSD,
		"fetched_at": quote.FetchedAt,
	})
}

type purchaseRequest struct {
	PackID int `json:"packId"`
}

// HandleWalletPurchase prices a pack in Pi and hands the client the payment
// payload for the SDK. Without a live quote the purchase is refused; a stale
// guess could over- or undercharge.
func HandleWalletPurchase(c *fiber.Ctx) error {
	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	pack, ok := packByID(req.PackID)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "unknown pack")
	}

	piCost, err := oracle.PiCost(pack.PriceUSD)
	if err != nil {
		return jsonError(c, fiber.StatusConflict, "price_unavailable", "exchange rate unavailable, try again shortly")
	}

	memo := fmt.Sprintf("Purchase of %s (%d Inks)", pack.Label, pack.Credits())
	return c.JSON(fiber.Map{
		"payment": fiber.Map{
			"amount": roundPi(piCost),
			"memo":   memo,
			"metadata": paymentMetadata{
				Type:    "pack",
				PackID:  pack.ID,
				Credits: pack.Credits(),
			},
		},
	})
}

type subscribeRequest struct {
	Plan   string `json:"plan"`
	Months int    `json:"months"`
}

// HandleWalletSubscribe prices a subscription in Pi and returns the payment
// payload for the SDK.
func HandleWalletSubscribe(c *fiber.Ctx) error {
	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	if req.Months <= 0 {
		req.Months = 1
	}
	if !entitlements.IsKnownPaidPlan(req.Plan) {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "unknown plan")
	}
	tier, ok := subscriptionPlanFor(entitlements.NormalizePlan(req.Plan))
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "unknown plan")
	}

	usd := tier.PriceUSDMonth * float64(req.Months)
	piCost, err := oracle.PiCost(usd)
	if err != nil {
		return jsonError(c, fiber.StatusConflict, "price_unavailable", "exchange rate unavailable, try again shortly")
	}

	memo := fmt.Sprintf("%s subscription (%d month)", tier.Plan, req.Months)
	return c.JSON(fiber.Map{
		"payment": fiber.Map{
			"amount": roundPi(piCost),
			"memo":   memo,
			"metadata": paymentMetadata{
				Type:   "subscription",
				Plan:   string(tier.Plan),
				Months: req.Months,
			},
		},
	})
}
