package models

import (
	"encoding/json"
	"time"
)

// WelcomeBalance is credited when a ledger is created for a new user.
const WelcomeBalance = 50

// LedgerState is the durable per-user economy aggregate: the Ink balance,
// the optional subscription, and the reading bookkeeping that rides along
// under the same persistence rules. Balance must never go negative and the
// subscription expiry must never move backwards; both rules are enforced by
// the ledger service, callers never write these fields directly.
type LedgerState struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	UserID                uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance               int64      `gorm:"not null;default:0" json:"balance"`
	SubscriptionPlan      string     `gorm:"type:varchar(50);default:''" json:"subscription_plan"`
	SubscriptionExpiresAt *time.Time `gorm:"type:timestamp;default:null" json:"subscription_expires_at,omitempty"`
	ProfileImage          string     `gorm:"type:longtext" json:"profile_image,omitempty"`
	FavoritesJSON         string     `gorm:"type:text" json:"-"`
	HistoryJSON           string     `gorm:"type:text" json:"-"`
	FollowingJSON         string     `gorm:"type:text" json:"-"`
	RatingsJSON           string     `gorm:"type:text" json:"-"`
	// MutatedAt stamps the last local mutation and decides last-write-wins
	// when local and remote copies disagree.
	MutatedAt time.Time `gorm:"type:timestamp;not null" json:"mutated_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewLedgerState creates the initial ledger for a user with the welcome bonus.
func NewLedgerState(userID uint) *LedgerState {
	return &LedgerState{
		UserID:    userID,
		Balance:   WelcomeBalance,
		MutatedAt: time.Now(),
	}
}

// HasActiveSubscription reports whether a subscription is present and unexpired.
func (l *LedgerState) HasActiveSubscription(now time.Time) bool {
	return l.SubscriptionPlan != "" && l.SubscriptionExpiresAt != nil && l.SubscriptionExpiresAt.After(now)
}

// Favorites returns the decoded favorite series IDs.
func (l *LedgerState) Favorites() []string {
	return decodeStringList(l.FavoritesJSON)
}

// SetFavorites replaces the favorite series IDs.
func (l *LedgerState) SetFavorites(ids []string) {
	l.FavoritesJSON = encodeStringList(ids)
}

// History returns the decoded reading history (newest first).
func (l *LedgerState) History() []string {
	return decodeStringList(l.HistoryJSON)
}

// SetHistory replaces the reading history.
func (l *LedgerState) SetHistory(ids []string) {
	l.HistoryJSON = encodeStringList(ids)
}

// Following returns the decoded followed author names.
func (l *LedgerState) Following() []string {
	return decodeStringList(l.FollowingJSON)
}

// SetFollowing replaces the followed author names.
func (l *LedgerState) SetFollowing(names []string) {
	l.FollowingJSON = encodeStringList(names)
}

// Ratings returns the decoded series ratings (series ID -> 1..5).
func (l *LedgerState) Ratings() map[string]int {
	if l.RatingsJSON == "" {
		return map[string]int{}
	}
	var out map[string]int
	if err := json.Unmarshal([]byte(l.RatingsJSON), &out); err != nil || out == nil {
		return map[string]int{}
	}
	return out
}

// SetRatings replaces the series ratings.
func (l *LedgerState) SetRatings(ratings map[string]int) {
	if len(ratings) == 0 {
		l.RatingsJSON = ""
		return
	}
	b, err := json.Marshal(ratings)
	if err != nil {
		return
	}
	l.RatingsJSON = string(b)
}

func decodeStringList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func encodeStringList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	b, err := json.Marshal(items)
	if err != nil {
		return ""
	}
	return string(b)
}
