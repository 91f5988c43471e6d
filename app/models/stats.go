package models

import "time"

// DailyStats is a generic per-day count used by admin-facing queries.
type DailyStats struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// EconomyDailyStat aggregates one day of economy activity. The columns are
// incremented in batches by the counter flusher, never on the hot path.
type EconomyDailyStat struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Date               string    `gorm:"type:varchar(10);uniqueIndex;not null" json:"date"`
	PurchasesCompleted int64     `gorm:"not null;default:0" json:"purchases_completed"`
	InksPurchased      int64     `gorm:"not null;default:0" json:"inks_purchased"`
	MissionsClaimed    int64     `gorm:"not null;default:0" json:"missions_claimed"`
	InksRewarded       int64     `gorm:"not null;default:0" json:"inks_rewarded"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
