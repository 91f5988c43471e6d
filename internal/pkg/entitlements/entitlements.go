package entitlements

import "strings"

type Plan string

const (
	PlanFree   Plan = "free"
	PlanVIP    Plan = "vip"
	PlanVIPMax Plan = "vip_max"
)

// NormalizePlan maps arbitrary input to a known plan, defaulting to free.
func NormalizePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanVIP):
		return PlanVIP
	case string(PlanVIPMax):
		return PlanVIPMax
	default:
		return PlanFree
	}
}

// PlanRank orders plans for "best plan wins" comparisons.
func PlanRank(plan Plan) int {
	switch plan {
	case PlanVIPMax:
		return 2
	case PlanVIP:
		return 1
	default:
		return 0
	}
}

// IsKnownPaidPlan reports whether plan names a purchasable subscription.
func IsKnownPaidPlan(plan string) bool {
	switch NormalizePlan(plan) {
	case PlanVIP, PlanVIPMax:
		return true
	default:
		return false
	}
}

// VIPMissionsAllowed reports whether the plan unlocks the VIP-only entries of
// the mission pool.
func VIPMissionsAllowed(plan Plan) bool {
	return PlanRank(plan) >= PlanRank(PlanVIP)
}
