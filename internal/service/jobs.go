package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voyagen/stalker2m3u/internal/cache"
	"github.com/voyagen/stalker2m3u/internal/logging"
	"github.com/voyagen/stalker2m3u/internal/metrics"
	"github.com/voyagen/stalker2m3u/internal/models"
	"github.com/voyagen/stalker2m3u/internal/portal"
)

// Job states reported by JobStatus.
const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

const (
	jobStatusTTL   = 24 * time.Hour
	dequeueTimeout = 5 * time.Second
	dequeueBackoff = 2 * time.Second
)

// ErrJobNotFound is returned by GetJobStatus for unknown session ids.
var ErrJobNotFound = errors.New("job not found")

// JobStatus tracks an async conversion between enqueue and completion.
type JobStatus struct {
	SessionID string    `json:"sessionId"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func jobStatusKey(sessionID string) string { return "job:" + sessionID }

func setJobStatus(ctx context.Context, r *cache.Redis, sessionID, status, errMsg string) error {
	st := JobStatus{SessionID: sessionID, Status: status, Error: errMsg, UpdatedAt: time.Now().UTC()}
	return cache.Set(ctx, r, jobStatusKey(sessionID), st, jobStatusTTL)
}

// GetJobStatus returns the last recorded state of an async conversion.
func GetJobStatus(ctx context.Context, r *cache.Redis, sessionID string) (*JobStatus, error) {
	st, err := cache.Get[JobStatus](ctx, r, jobStatusKey(sessionID))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &st, nil
}

// Enqueue validates req and queues it for a Worker. It returns the session
// id the result will be stored under. With device locking enabled a device
// that is converting right now is refused with cache.ErrLocked instead of
// queueing a job that would fail the same way.
func (c *Converter) Enqueue(ctx context.Context, r *cache.Redis, req Request) (string, error) {
	if err := c.Validate(req); err != nil {
		return "", err
	}
	if c.locks != nil {
		key := cache.DeviceLockKey(strings.TrimSpace(req.PortalURL), portal.NormalizeMAC(strings.TrimSpace(req.MACAddress)))
		if cache.IsLocked(ctx, c.locks, key) {
			return "", cache.ErrLocked
		}
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	job := cache.ConversionJob{
		SessionID:  req.SessionID,
		PortalURL:  req.PortalURL,
		MACAddress: req.MACAddress,
		Mode:       string(req.Mode),
		QueuedAt:   time.Now().UTC(),
	}
	if err := setJobStatus(ctx, r, job.SessionID, JobQueued, ""); err != nil {
		return "", fmt.Errorf("job status: %w", err)
	}
	if err := cache.Enqueue(ctx, r, cache.DefaultQueue, job); err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	metrics.JobsQueued.Inc()
	return job.SessionID, nil
}

// Worker drains the conversion queue.
type Worker struct {
	conv  *Converter
	redis *cache.Redis
	queue string
}

// NewWorker creates a Worker reading cache.DefaultQueue.
func NewWorker(conv *Converter, r *cache.Redis) *Worker {
	return &Worker{conv: conv, redis: r, queue: cache.DefaultQueue}
}

// Run processes jobs one at a time until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	logger := logging.WithComponent("worker")
	logger.Info().Msg("conversion worker started")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("conversion worker stopping")
			return
		default:
		}

		job, err := cache.Dequeue(ctx, w.redis, w.queue, dequeueTimeout)
		if err != nil {
			logger.Error().Err(err).Msg("dequeue")
			select {
			case <-ctx.Done():
			case <-time.After(dequeueBackoff):
			}
			continue
		}
		if job == nil {
			continue
		}
		w.Process(ctx, job)
	}
}

// Process runs one job and records its outcome.
func (w *Worker) Process(ctx context.Context, job *cache.ConversionJob) {
	logger := logging.WithComponent("worker").With().Str("session_id", job.SessionID).Logger()
	logger.Info().Str("portal", job.PortalURL).Msg("processing job")

	if err := setJobStatus(ctx, w.redis, job.SessionID, JobRunning, ""); err != nil {
		logger.Warn().Err(err).Msg("job status")
	}
	_, err := w.conv.Convert(ctx, Request{
		PortalURL:  job.PortalURL,
		MACAddress: job.MACAddress,
		SessionID:  job.SessionID,
		Mode:       models.EnumerationMode(job.Mode),
	})
	status, msg := JobDone, ""
	if err != nil {
		status, msg = JobFailed, err.Error()
	}
	// The conversion may have been cut short by shutdown; record the outcome anyway.
	if err := setJobStatus(context.WithoutCancel(ctx), w.redis, job.SessionID, status, msg); err != nil {
		logger.Warn().Err(err).Msg("job status")
	}
}
