package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/inktoons/inktoons/app/models"
	"github.com/inktoons/inktoons/internal/pkg/metrics/counter"
	"github.com/inktoons/inktoons/internal/pkg/missions"
)

// missionView decorates an instance with the per-sub-counter breakdown that
// compound missions need for display.
type missionView struct {
	models.MissionInstance
	SubProgress []missions.SubProgress `json:"sub_progress,omitempty"`
}

func missionViews(set []models.MissionInstance) []missionView {
	out := make([]missionView, 0, len(set))
	for i := range set {
		out = append(out, missionView{
			MissionInstance: set[i],
			SubProgress:     missions.SubProgressFor(&set[i]),
		})
	}
	return out
}

// HandleMissionsGet returns today's mission set, generating it on first
// request of the day.
func HandleMissionsGet(c *fiber.Ctx) error {
	set, err := missionEngine.CurrentSet(currentUserID(c), currentPlan(c))
	if err != nil {
		log.Errorf("mission set load failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load missions")
	}
	return c.JSON(fiber.Map{"missions": missionViews(set)})
}

type trackRequest struct {
	Action string `json:"action"`
}

// HandleMissionsTrack reports one user action to the engine and returns the
// updated set.
func HandleMissionsTrack(c *fiber.Ctx) error {
	var req trackRequest
	if err := c.BodyParser(&req); err != nil || req.Action == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "action is required")
	}

	set, err := missionEngine.TrackAction(currentUserID(c), currentPlan(c), req.Action)
	if err != nil {
		log.Errorf("mission tracking failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not track action")
	}
	return c.JSON(fiber.Map{"missions": missionViews(set)})
}

// HandleMissionClaim pays out a completed mission once and credits the
// ledger.
func HandleMissionClaim(c *fiber.Ctx) error {
	missionID, err := c.ParamsInt("id")
	if err != nil || missionID <= 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid mission id")
	}

	userID := currentUserID(c)
	reward, err := missionEngine.Claim(userID, uint(missionID))
	if err != nil {
		return missionError(c, err)
	}

	state, err := ledgerService.AddBalance(c.Context(), userID, int64(reward))
	if err != nil {
		log.Errorf("mission reward credit failed for user %d: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "claim recorded but credit failed")
	}

	if err := counter.AddMissionClaim(int64(reward)); err != nil {
		log.Warnf("mission claim counter failed: %v", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"reward":  reward,
		"balance": state.Balance,
	})
}

// HandleMissionReplace swaps a mission for a fresh one, once per mission.
func HandleMissionReplace(c *fiber.Ctx) error {
	missionID, err := c.ParamsInt("id")
	if err != nil || missionID <= 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid mission id")
	}

	inst, err := missionEngine.Replace(currentUserID(c), currentPlan(c), uint(missionID))
	if err != nil {
		return missionError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"mission": missionView{MissionInstance: *inst, SubProgress: missions.SubProgressFor(inst)},
	})
}

func missionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, missions.ErrMissionNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "mission not found")
	case errors.Is(err, missions.ErrAlreadyClaimed):
		return jsonError(c, fiber.StatusConflict, "already_claimed", "mission was already claimed")
	case errors.Is(err, missions.ErrNotComplete):
		return jsonError(c, fiber.StatusConflict, "not_complete", "mission is not complete yet")
	case errors.Is(err, missions.ErrAlreadySwapped):
		return jsonError(c, fiber.StatusConflict, "already_swapped", "mission was already swapped")
	case errors.Is(err, missions.ErrNotReplaceable):
		return jsonError(c, fiber.StatusConflict, "not_replaceable", "completed missions cannot be replaced")
	default:
		log.Errorf("mission operation failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "mission operation failed")
	}
}
