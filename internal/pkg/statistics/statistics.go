package statistics

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/inktoons/inktoons/app/models"
	"github.com/inktoons/inktoons/internal/pkg/cache"
	"github.com/inktoons/inktoons/internal/pkg/database"
)

const (
	CacheKeyUsersTotal     = "statistics:users:total"
	CacheKeyInksTotal      = "statistics:inks:total"
	CacheKeyPurchasesDaily = "statistics:purchases:daily:%s" // Format with date YYYY-MM-DD
	CacheExpiration        = 30 * time.Minute
)

// EconomyStats is the aggregated view served to admins.
type EconomyStats struct {
	TotalUsers         int64 `json:"total_users"`
	InksInCirculation  int64 `json:"inks_in_circulation"`
	PurchasesToday     int64 `json:"purchases_today"`
	InksPurchasedToday int64 `json:"inks_purchased_today"`
	ClaimsToday        int64 `json:"missions_claimed_today"`
	InksRewardedToday  int64 `json:"inks_rewarded_today"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// UpdateCacheIfNeeded refreshes the cached aggregates when the last refresh
// is older than the interval.
func UpdateCacheIfNeeded() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()
	if time.Since(lastCacheUpdate) <= cacheUpdateInterval {
		return
	}
	if err := UpdateStatisticsCache(); err != nil {
		log.Warnf("statistics cache refresh failed: %v", err)
		return
	}
	lastCacheUpdate = time.Now()
}

// UpdateStatisticsCache recomputes the slow aggregates and stores them in
// Redis so the admin endpoint never runs the sums on the hot path.
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	var inksTotal int64
	if err := db.Model(&models.LedgerState{}).
		Select("COALESCE(SUM(balance), 0)").
		Scan(&inksTotal).Error; err != nil {
		return fmt.Errorf("sum balances: %w", err)
	}

	if err := cache.Set(CacheKeyUsersTotal, fmt.Sprintf("%d", totalUsers), CacheExpiration); err != nil {
		return err
	}
	return cache.Set(CacheKeyInksTotal, fmt.Sprintf("%d", inksTotal), CacheExpiration)
}

// GetEconomyStats assembles the admin view from the cached aggregates and
// today's daily stat row.
func GetEconomyStats() (*EconomyStats, error) {
	UpdateCacheIfNeeded()

	stats := &EconomyStats{}
	if v, err := cache.GetInt(CacheKeyUsersTotal); err == nil {
		stats.TotalUsers = int64(v)
	}
	if v, err := cache.GetInt(CacheKeyInksTotal); err == nil {
		stats.InksInCirculation = int64(v)
	}

	today := time.Now().UTC().Format("2006-01-02")
	var row models.EconomyDailyStat
	err := database.GetDB().Where("date = ?", today).First(&row).Error
	if err == nil {
		stats.PurchasesToday = row.PurchasesCompleted
		stats.InksPurchasedToday = row.InksPurchased
		stats.ClaimsToday = row.MissionsClaimed
		stats.InksRewardedToday = row.InksRewarded
	}

	return stats, nil
}
