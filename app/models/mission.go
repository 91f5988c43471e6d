package models

import (
	"encoding/json"
	"time"
)

// Mission categories, mirroring the static pool.
const (
	MissionCategoryRead       = "read"
	MissionCategorySocial     = "social"
	MissionCategoryExplore    = "explore"
	MissionCategoryEngagement = "engagement"
)

// MissionInstance is one of the user's current working set of missions, drawn
// from the static pool for the current cycle. Swapped and IsClaimed are
// one-shot latches: regeneration replaces the whole set, it never resets
// these flags on a surviving row.
type MissionInstance struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	UserID              uint      `gorm:"not null;index:idx_mission_user_cycle,priority:1" json:"user_id"`
	CycleDate           string    `gorm:"type:varchar(10);not null;index:idx_mission_user_cycle,priority:2" json:"cycle_date"`
	PoolID              string    `gorm:"type:varchar(50);not null" json:"pool_id"`
	Title               string    `gorm:"type:varchar(150);not null" json:"title"`
	Description         string    `gorm:"type:varchar(255);not null" json:"description"`
	Category            string    `gorm:"type:varchar(20);not null" json:"category"`
	Reward              int       `gorm:"not null" json:"reward"`
	Target              int       `gorm:"not null" json:"target"`
	Progress            int       `gorm:"not null;default:0" json:"progress"`
	ProgressDetailsJSON string    `gorm:"type:text" json:"-"`
	IsClaimed           bool      `gorm:"default:false" json:"is_claimed"`
	Swapped             bool      `gorm:"default:false" json:"swapped"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsComplete reports whether the mission reached its target.
func (m *MissionInstance) IsComplete() bool {
	return m.Progress >= m.Target
}

// ProgressDetails returns the named sub-counters of a compound mission.
// Empty for simple missions.
func (m *MissionInstance) ProgressDetails() map[string]int {
	if m.ProgressDetailsJSON == "" {
		return map[string]int{}
	}
	var out map[string]int
	if err := json.Unmarshal([]byte(m.ProgressDetailsJSON), &out); err != nil || out == nil {
		return map[string]int{}
	}
	return out
}

// SetProgressDetails stores the named sub-counters of a compound mission.
func (m *MissionInstance) SetProgressDetails(details map[string]int) {
	if len(details) == 0 {
		m.ProgressDetailsJSON = ""
		return
	}
	b, err := json.Marshal(details)
	if err != nil {
		return
	}
	m.ProgressDetailsJSON = string(b)
}
