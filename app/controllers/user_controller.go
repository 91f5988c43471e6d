package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/inktoons/inktoons/internal/pkg/missions"
)

// HandleUserProfileGet returns the profile plus the reading bookkeeping that
// rides on the ledger.
func HandleUserProfileGet(c *fiber.Ctx) error {
	state, err := ledgerService.Load(c.Context(), currentUserID(c))
	if err != nil {
		log.Errorf("profile load failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load profile")
	}

	return c.JSON(fiber.Map{
		"balance":       state.Balance,
		"plan":          planOf(state),
		"profile_image": state.ProfileImage,
		"favorites":     state.Favorites(),
		"history":       state.History(),
		"following":     state.Following(),
		"ratings":       state.Ratings(),
	})
}

type profilePatchRequest struct {
	ProfileImage *string `json:"profile_image"`
}

// HandleUserProfilePatch updates mutable profile fields.
func HandleUserProfilePatch(c *fiber.Ctx) error {
	var req profilePatchRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	if req.ProfileImage == nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "nothing to update")
	}

	state, err := ledgerService.SetProfileImage(c.Context(), currentUserID(c), *req.ProfileImage)
	if err != nil {
		log.Errorf("profile update failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not update profile")
	}
	return c.JSON(fiber.Map{"success": true, "profile_image": state.ProfileImage})
}

type favoriteRequest struct {
	SeriesID string `json:"seriesId"`
}

// HandleUserFavoriteToggle adds or removes a favorite and feeds the mission
// engine.
func HandleUserFavoriteToggle(c *fiber.Ctx) error {
	var req favoriteRequest
	if err := c.BodyParser(&req); err != nil || req.SeriesID == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "seriesId is required")
	}

	state, err := ledgerService.ToggleFavorite(c.Context(), currentUserID(c), req.SeriesID)
	if err != nil {
		log.Errorf("favorite toggle failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not update favorites")
	}
	return c.JSON(fiber.Map{"success": true, "favorites": state.Favorites()})
}

type followRequest struct {
	Author string `json:"author"`
}

// HandleUserFollowToggle follows or unfollows an author and feeds the
// mission engine on follow.
func HandleUserFollowToggle(c *fiber.Ctx) error {
	var req followRequest
	if err := c.BodyParser(&req); err != nil || req.Author == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "author is required")
	}

	userID := currentUserID(c)
	before, err := ledgerService.Load(c.Context(), userID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load profile")
	}
	wasFollowing := contains(before.Following(), req.Author)

	state, err := ledgerService.ToggleFollowAuthor(c.Context(), userID, req.Author)
	if err != nil {
		log.Errorf("follow toggle failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not update following")
	}

	if !wasFollowing {
		if _, err := missionEngine.TrackAction(userID, currentPlan(c), missions.ActionFollow); err != nil {
			log.Warnf("follow mission tracking failed: %v", err)
		}
	}
	return c.JSON(fiber.Map{"success": true, "following": state.Following()})
}

type rateRequest struct {
	SeriesID string `json:"seriesId"`
	Rating   int    `json:"rating"`
}

// HandleUserRate records a series rating and feeds the mission engine.
func HandleUserRate(c *fiber.Ctx) error {
	var req rateRequest
	if err := c.BodyParser(&req); err != nil || req.SeriesID == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "seriesId is required")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "rating must be between 1 and 5")
	}

	userID := currentUserID(c)
	state, err := ledgerService.RateSeries(c.Context(), userID, req.SeriesID, req.Rating)
	if err != nil {
		log.Errorf("rating update failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not record rating")
	}

	if _, err := missionEngine.TrackAction(userID, currentPlan(c), missions.ActionRate); err != nil {
		log.Warnf("rating mission tracking failed: %v", err)
	}
	return c.JSON(fiber.Map{"success": true, "ratings": state.Ratings()})
}

type historyRequest struct {
	SeriesID string `json:"seriesId"`
}

// HandleUserHistoryAdd records a read series and feeds the mission engine.
func HandleUserHistoryAdd(c *fiber.Ctx) error {
	var req historyRequest
	if err := c.BodyParser(&req); err != nil || req.SeriesID == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "seriesId is required")
	}

	userID := currentUserID(c)
	state, err := ledgerService.AddToHistory(c.Context(), userID, req.SeriesID)
	if err != nil {
		log.Errorf("history update failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not update history")
	}

	if _, err := missionEngine.TrackAction(userID, currentPlan(c), missions.ActionChapterRead); err != nil {
		log.Warnf("reading mission tracking failed: %v", err)
	}
	return c.JSON(fiber.Map{"success": true, "history": state.History()})
}

func contains(items []string, needle string) bool {
	for _, it := range items {
		if it == needle {
			return true
		}
	}
	return false
}
