package utils

import (
	"context"
	"sync"
	"time"
)

// Image generation must run at most once per day even when several requests race
// on a day that has no image yet. The lock is taken before calling out to the
// generator and released once the image URL is persisted (or the attempt failed).
// Redis SET NX covers multi-instance deployments; a mutex-guarded map is the
// single-instance fallback when Redis is unreachable.

type lockEntry struct {
	expiresAt time.Time
}

var (
	dayLocks   = map[string]lockEntry{}
	dayLocksMu sync.Mutex
)

func dayLockKey(date string) string {
	return "lock:day:generate:" + date
}

// AcquireDayLock attempts to claim the generation lock for a date (formatted
// YYYY-MM-DD). It returns false when another request is already generating.
func AcquireDayLock(date string, ttl time.Duration) bool {
	key := dayLockKey(date)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if ok, err := rc.SetNX(ctx, key, "1", ttl).Result(); err == nil {
			return ok
		}
		// Redis error: fall through to the in-memory lock.
	}
	dayLocksMu.Lock()
	defer dayLocksMu.Unlock()
	if entry, ok := dayLocks[key]; ok && time.Now().Before(entry.expiresAt) {
		return false
	}
	dayLocks[key] = lockEntry{expiresAt: time.Now().Add(ttl)}
	return true
}

// ReleaseDayLock frees the generation lock for a date.
func ReleaseDayLock(date string) {
	key := dayLockKey(date)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Del(ctx, key).Err(); err == nil {
			return
		}
	}
	dayLocksMu.Lock()
	delete(dayLocks, key)
	dayLocksMu.Unlock()
}
