package ledgerstore

import (
	"encoding/json"
	"time"

	"github.com/inktoons/inktoons/app/models"
)

// snapshotEnvelope is the wire form of a ledger snapshot. It exists because
// the model hides its raw bookkeeping columns from API JSON; the mirror must
// carry them.
type snapshotEnvelope struct {
	UserID                uint       `json:"user_id"`
	Balance               int64      `json:"balance"`
	SubscriptionPlan      string     `json:"subscription_plan,omitempty"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	ProfileImage          string     `json:"profile_image,omitempty"`
	FavoritesJSON         string     `json:"favorites_json,omitempty"`
	HistoryJSON           string     `json:"history_json,omitempty"`
	FollowingJSON         string     `json:"following_json,omitempty"`
	RatingsJSON           string     `json:"ratings_json,omitempty"`
	MutatedAt             time.Time  `json:"mutated_at"`
}

func encodeSnapshot(state *models.LedgerState) ([]byte, error) {
	return json.Marshal(snapshotEnvelope{
		UserID:                state.UserID,
		Balance:               state.Balance,
		SubscriptionPlan:      state.SubscriptionPlan,
		SubscriptionExpiresAt: state.SubscriptionExpiresAt,
		ProfileImage:          state.ProfileImage,
		FavoritesJSON:         state.FavoritesJSON,
		HistoryJSON:           state.HistoryJSON,
		FollowingJSON:         state.FollowingJSON,
		RatingsJSON:           state.RatingsJSON,
		MutatedAt:             state.MutatedAt,
	})
}

func decodeSnapshot(raw []byte) (*models.LedgerState, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return &models.LedgerState{
		UserID:                env.UserID,
		Balance:               env.Balance,
		SubscriptionPlan:      env.SubscriptionPlan,
		SubscriptionExpiresAt: env.SubscriptionExpiresAt,
		ProfileImage:          env.ProfileImage,
		FavoritesJSON:         env.FavoritesJSON,
		HistoryJSON:           env.HistoryJSON,
		FollowingJSON:         env.FollowingJSON,
		RatingsJSON:           env.RatingsJSON,
		MutatedAt:             env.MutatedAt,
	}, nil
}
