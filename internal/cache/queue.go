package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConversionJob is a queued request to convert a portal in the background.
type ConversionJob struct {
	SessionID  string    `json:"session_id"`
	PortalURL  string    `json:"portal_url"`
	MACAddress string    `json:"mac_address"`
	Mode       string    `json:"mode,omitempty"`
	QueuedAt   time.Time `json:"queued_at"`
}

// DefaultQueue is the list key for conversion jobs (without KeyPrefix).
const DefaultQueue = "jobs:conversions"

// Enqueue pushes job onto the left of the queue list.
func Enqueue(ctx context.Context, r *Redis, queue string, job ConversionJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue marshal: %w", err)
	}
	return r.client.LPush(ctx, KeyPrefix+queue, data).Err()
}

// Dequeue blocks up to timeout for a job from the right of the list. A
// timeout or a cancelled ctx returns (nil, nil) so workers can loop and
// check for shutdown.
func Dequeue(ctx context.Context, r *Redis, queue string, timeout time.Duration) (*ConversionJob, error) {
	result, err := r.client.BRPop(ctx, timeout, KeyPrefix+queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("queue dequeue: %w", err)
	}
	// BRPop returns [key, value].
	if len(result) < 2 {
		return nil, nil
	}
	var job ConversionJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("queue unmarshal: %w", err)
	}
	return &job, nil
}

// QueueLength reports how many jobs are waiting.
func QueueLength(ctx context.Context, r *Redis, queue string) (int64, error) {
	return r.client.LLen(ctx, KeyPrefix+queue).Result()
}
