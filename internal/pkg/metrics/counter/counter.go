package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/inktoons/inktoons/internal/pkg/cache"
	"github.com/inktoons/inktoons/internal/pkg/database"
)

const (
	purchasesKey     = "wallet:counters:purchases"
	inksPurchasedKey = "wallet:counters:inks_purchased"
	claimsKey        = "missions:counters:claims"
	inksRewardedKey  = "missions:counters:inks_rewarded"
)

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

// AddPurchase records one completed Ink purchase and its credited amount in
// the pending Redis counters.
func AddPurchase(inks int64) error {
	ctx := context.Background()
	day := today()
	if err := cache.GetClient().HIncrBy(ctx, purchasesKey, day, 1).Err(); err != nil {
		return err
	}
	return cache.GetClient().HIncrBy(ctx, inksPurchasedKey, day, inks).Err()
}

// AddMissionClaim records one claimed mission and its reward in the pending
// Redis counters.
func AddMissionClaim(reward int64) error {
	ctx := context.Background()
	day := today()
	if err := cache.GetClient().HIncrBy(ctx, claimsKey, day, 1).Err(); err != nil {
		return err
	}
	return cache.GetClient().HIncrBy(ctx, inksRewardedKey, day, reward).Err()
}

// FlushAll drains all pending counters into the economy_daily_stats table.
func FlushAll() error {
	if err := flushHashToColumn(purchasesKey, "purchases_completed"); err != nil {
		return err
	}
	if err := flushHashToColumn(inksPurchasedKey, "inks_purchased"); err != nil {
		return err
	}
	if err := flushHashToColumn(claimsKey, "missions_claimed"); err != nil {
		return err
	}
	return flushHashToColumn(inksRewardedKey, "inks_rewarded")
}

// flushHashToColumn drains a Redis hash atomically and applies the batched
// per-day increments to one economy_daily_stats column. Uses RENAME to a
// temporary key for atomic drain without losing in-flight increments.
func flushHashToColumn(redisKey, column string) error {
	ctx := context.Background()
	rdb := cache.GetClient()

	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	// Ensure cleanup of tmpKey even if later steps fail
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	type pair struct {
		date string
		inc  int64
	}
	pairs := make([]pair, 0, len(data))
	for day, v := range data {
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{date: day, inc: inc})
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].date < pairs[j].date })

	db := database.GetDB()
	for _, p := range pairs {
		sql := fmt.Sprintf(
			"INSERT INTO economy_daily_stats (date, %s, created_at, updated_at) VALUES (?, ?, NOW(), NOW()) "+
				"ON DUPLICATE KEY UPDATE %s = %s + VALUES(%s), updated_at = NOW()",
			column, column, column, column,
		)
		if err := db.Exec(sql, p.date, p.inc).Error; err != nil {
			return err
		}
	}
	return nil
}
