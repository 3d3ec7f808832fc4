package counter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/seekersapp2013/ambrosia/app/repository"
	"github.com/seekersapp2013/ambrosia/internal/pkg/cache"
)

const (
	streamJoinsKey = "stream:counters:joins"
)

// AddStreamJoin increments the pending join counter for a stream in Redis
func AddStreamJoin(streamID uint) error {
	ctx := context.Background()
	field := strconv.FormatUint(uint64(streamID), 10)
	return cache.GetClient().HIncrBy(ctx, streamJoinsKey, field, 1).Err()
}

// FlushAll flushes pending join counters to the database
func FlushAll() error {
	return flushJoins()
}

// flushJoins drains the join hash atomically and applies batched increments.
// Uses RENAME to a temporary key for atomic drain without losing in-flight increments.
func flushJoins() error {
	ctx := context.Background()
	rdb := cache.GetClient()

	// Atomically move the hash to a temp key for draining
	tmpKey := fmt.Sprintf("%s:tmp:%d", streamJoinsKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", streamJoinsKey, tmpKey).Err(); err != nil {
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

	increments := make(map[uint]int64, len(data))
	for k, v := range data {
		id, perr := strconv.ParseUint(k, 10, 64)
		if perr != nil {
			continue
		}
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		increments[uint(id)] = inc
	}
	if len(increments) == 0 {
		return nil
	}

	return repository.GetGlobalFactory().GetStreamRepository().AddJoinTotals(increments)
}
