package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/inktoons/inktoons/app/controllers"
	"github.com/inktoons/inktoons/internal/pkg/middleware"
)

// Pong is the ping response body.
type Pong struct {
	Ping string `json:"ping"`
}

// APIServer holds the v1 handler set. Behavior lives in the controllers; the
// server type only owns the route table.
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

// RegisterHandlers installs all v1 routes on the given group.
func RegisterHandlers(v1 fiber.Router, s *APIServer) {
	v1.Get("/ping", s.GetPing)

	// Public: identity handshake and the price ticker.
	v1.Post("/auth/pi", controllers.HandleAuthPi)
	v1.Get("/price", controllers.HandlePriceGet)

	// Everything below requires a session.
	auth := v1.Group("", middleware.RequireAPIAuth)

	auth.Post("/auth/logout", controllers.HandleAuthLogout)

	// Payment verification, called by the Pi SDK callbacks.
	auth.Post("/pi/approve", controllers.HandlePaymentApprove)
	auth.Post("/pi/complete", controllers.HandlePaymentComplete)

	// Wallet and purchases.
	auth.Get("/wallet", controllers.HandleWalletGet)
	auth.Post("/wallet/purchase", controllers.HandleWalletPurchase)
	auth.Post("/wallet/subscribe", controllers.HandleWalletSubscribe)
	auth.Get("/wallet/payments", controllers.HandlePaymentHistory)

	// Daily missions.
	auth.Get("/missions", controllers.HandleMissionsGet)
	auth.Post("/missions/track", controllers.HandleMissionsTrack)
	auth.Post("/missions/:id/claim", controllers.HandleMissionClaim)
	auth.Post("/missions/:id/replace", controllers.HandleMissionReplace)

	// Profile and reading bookkeeping.
	auth.Get("/user/profile", controllers.HandleUserProfileGet)
	auth.Patch("/user/profile", controllers.HandleUserProfilePatch)
	auth.Post("/user/favorites/toggle", controllers.HandleUserFavoriteToggle)
	auth.Post("/user/following/toggle", controllers.HandleUserFollowToggle)
	auth.Post("/user/ratings", controllers.HandleUserRate)
	auth.Post("/user/history", controllers.HandleUserHistoryAdd)

	// Admin: aggregated economy numbers.
	admin := v1.Group("/admin", middleware.RequireAdmin)
	admin.Get("/stats", controllers.HandleAdminStats)
}
