package cache

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrLocked is returned by TryLock when another holder owns the lock.
var ErrLocked = errors.New("conversion already running for this device")

const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// TryLock takes a SET NX lock on key. The returned unlock func only deletes
// the key while it still holds this caller's token.
func TryLock(ctx context.Context, r *Redis, key string, ttl time.Duration) (unlock func(), err error) {
	full := KeyPrefix + key
	token := randomToken()

	ok, err := r.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		// Background context: the caller's ctx may already be cancelled.
		_ = r.client.Eval(context.Background(), unlockScript, []string{full}, token).Err()
	}, nil
}

// IsLocked reports whether key is currently held.
func IsLocked(ctx context.Context, r *Redis, key string) bool {
	n, _ := r.client.Exists(ctx, KeyPrefix+key).Result()
	return n > 0
}

// DeviceLockKey names the lock for one portal+MAC pair. A portal only keeps
// one session per device, so two concurrent runs would invalidate each
// other's tokens.
func DeviceLockKey(portalURL, mac string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(portalURL)) + "|" + strings.ToUpper(mac)))
	return "lock:device:" + hex.EncodeToString(h[:8])
}

func randomToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
