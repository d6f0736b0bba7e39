// Package service runs portal conversions: it drives the portal client
// through handshake, listing and link resolution and turns the result into
// a stored playlist.
package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voyagen/stalker2m3u/internal/cache"
	"github.com/voyagen/stalker2m3u/internal/logging"
	"github.com/voyagen/stalker2m3u/internal/metrics"
	"github.com/voyagen/stalker2m3u/internal/models"
	"github.com/voyagen/stalker2m3u/internal/normalize"
	"github.com/voyagen/stalker2m3u/internal/playlist"
	"github.com/voyagen/stalker2m3u/internal/portal"
	"github.com/voyagen/stalker2m3u/internal/store"
)

// DefaultLockTTL bounds how long a crashed conversion can hold its device lock.
const DefaultLockTTL = 30 * time.Minute

// Options tune the conversion pipeline.
type Options struct {
	Mode              models.EnumerationMode
	Concurrency       int
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxPages          int
	PersistItems      bool
	LockTTL           time.Duration
}

// Request is one conversion request.
type Request struct {
	PortalURL  string
	MACAddress string
	// SessionID is generated when empty.
	SessionID string
	// Mode overrides Options.Mode when set.
	Mode models.EnumerationMode
}

// Converter runs conversions. It is safe for concurrent use; every call
// gets its own portal session.
type Converter struct {
	opts       Options
	store      store.Store
	locks      *cache.Redis
	httpClient *http.Client
	now        func() time.Time
}

// Option configures a Converter.
type Option func(*Converter)

// WithStore persists every successful conversion to s.
func WithStore(s store.Store) Option {
	return func(c *Converter) { c.store = s }
}

// WithDeviceLock serializes conversions per portal and MAC through Redis.
func WithDeviceLock(r *cache.Redis) Option {
	return func(c *Converter) { c.locks = r }
}

// WithHTTPClient sets the HTTP client handed to each portal session.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Converter) { c.httpClient = hc }
}

// NewConverter creates a Converter. Zero option values fall back to
// category mode, one resolver and the portal client's default timeout.
func NewConverter(opts Options, options ...Option) *Converter {
	if !opts.Mode.Valid() {
		opts.Mode = models.ModeCategory
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = DefaultLockTTL
	}
	c := &Converter{opts: opts, now: time.Now}
	for _, o := range options {
		o(c)
	}
	return c
}

// Store returns the configured store, or nil.
func (c *Converter) Store() store.Store { return c.store }

// Validate checks a request without doing any I/O.
func (c *Converter) Validate(req Request) error {
	if strings.TrimSpace(req.PortalURL) == "" {
		return &ValidationError{Err: ErrMissingPortalURL}
	}
	if strings.TrimSpace(req.MACAddress) == "" {
		return &ValidationError{Err: ErrMissingMACAddress}
	}
	if req.Mode != "" && !req.Mode.Valid() {
		return &ValidationError{Err: fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)}
	}
	return nil
}

// Convert runs one conversion end to end. A handshake or listing failure
// aborts the whole run and nothing is stored. Items whose stream link cannot
// be resolved are left out of the playlist.
func (c *Converter) Convert(ctx context.Context, req Request) (*models.Conversion, error) {
	if err := c.Validate(req); err != nil {
		metrics.ConversionsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	mode := req.Mode
	if mode == "" {
		mode = c.opts.Mode
	}
	portalURL := strings.TrimSpace(req.PortalURL)
	client := c.newClient(portalURL, strings.TrimSpace(req.MACAddress), req.SessionID)
	mac := client.MAC()

	logger := logging.FromContext(ctx).With().
		Str("component", "converter").
		Str("session_id", req.SessionID).
		Str("portal", client.Endpoint()).
		Logger()
	ctx = logging.WithContext(ctx, logger)

	if c.locks != nil {
		unlock, err := cache.TryLock(ctx, c.locks, cache.DeviceLockKey(portalURL, mac), c.opts.LockTTL)
		if err != nil {
			metrics.ConversionsTotal.WithLabelValues("locked").Inc()
			return nil, err
		}
		defer unlock()
	}

	start := c.now()
	result, err := c.collect(ctx, client, mode)
	if err != nil {
		metrics.ConversionsTotal.WithLabelValues("failed").Inc()
		logger.Error().Err(err).Msg("conversion failed")
		return nil, err
	}

	entries := playlist.Entries(result.Channels, result.Movies, result.Series)
	var sb strings.Builder
	if err := playlist.Write(&sb, entries); err != nil {
		metrics.ConversionsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("serialize: %w", err)
	}

	conv := &models.Conversion{
		SessionID:  req.SessionID,
		PortalURL:  portalURL,
		MACAddress: mac,
		Mode:       mode,
		CreatedAt:  c.now().UTC(),
		Counts:     result.Counts(),
		Playlist:   sb.String(),
		Entries:    entries,
	}

	if c.store != nil {
		stored := *conv
		if !c.opts.PersistItems {
			stored.Entries = nil
		}
		if err := c.store.SaveConversion(ctx, &stored); err != nil {
			metrics.ConversionsTotal.WithLabelValues("failed").Inc()
			return nil, fmt.Errorf("save conversion: %w", err)
		}
	}

	metrics.ConversionsTotal.WithLabelValues("success").Inc()
	metrics.ConversionDuration.Observe(time.Since(start).Seconds())
	metrics.ItemsEmittedTotal.WithLabelValues(models.MediaTypeName(models.MediaTypeLivestream)).Add(float64(conv.ChannelCount))
	metrics.ItemsEmittedTotal.WithLabelValues(models.MediaTypeName(models.MediaTypeMovie)).Add(float64(conv.MovieCount))
	metrics.ItemsEmittedTotal.WithLabelValues(models.MediaTypeName(models.MediaTypeSeries)).Add(float64(conv.SeriesCount))

	logger.Info().
		Int("channels", conv.ChannelCount).
		Int("movies", conv.MovieCount).
		Int("series", conv.SeriesCount).
		Dur("duration", time.Since(start)).
		Msg("conversion finished")
	return conv, nil
}

func (c *Converter) newClient(portalURL, mac, sessionID string) *portal.Client {
	opts := []portal.ClientOption{
		portal.WithLogger(logging.WithComponent("portal").With().Str("session_id", sessionID).Logger()),
		portal.WithRateLimit(c.opts.RequestsPerSecond),
	}
	if c.opts.Timeout > 0 {
		opts = append(opts, portal.WithTimeout(c.opts.Timeout))
	}
	if c.httpClient != nil {
		opts = append(opts, portal.WithHTTPClient(c.httpClient))
	}
	return portal.NewClient(portalURL, mac, opts...)
}

// collect runs the network half of a conversion in catalog order: live
// channels, then movies, then series.
func (c *Converter) collect(ctx context.Context, client *portal.Client, mode models.EnumerationMode) (*models.Result, error) {
	if _, err := client.Handshake(ctx); err != nil {
		return nil, fmt.Errorf("handshake: %w", err)
	}

	raws, err := client.ListChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	result := &models.Result{Channels: normalize.Channels(raws)}

	if result.Movies, err = c.collectVod(ctx, client, models.MediaTypeMovie, mode); err != nil {
		return nil, err
	}
	if result.Series, err = c.collectVod(ctx, client, models.MediaTypeSeries, mode); err != nil {
		return nil, err
	}
	return result, nil
}

// collectVod lists one VOD kind completely before resolving any links, so a
// listing failure never leaves resolved work behind.
func (c *Converter) collectVod(ctx context.Context, client *portal.Client, mediaType int16, mode models.EnumerationMode) ([]models.VodItem, error) {
	kind := models.MediaTypeName(mediaType)
	logger := logging.FromContext(ctx)

	categories := []models.Category{{ID: portal.AllCategories}}
	if mode == models.ModeCategory {
		cats, err := client.ListVodCategories(ctx, mediaType)
		if err != nil {
			return nil, fmt.Errorf("list %s categories: %w", kind, err)
		}
		categories = categories[:0]
		for _, cat := range cats {
			// "*" is the portal's catch-all entry and a blank id is treated
			// as "*" by portals; walking either would list every item a
			// second time.
			if cat.ID == portal.AllCategories {
				continue
			}
			if cat.ID == "" {
				logger.Warn().Str("kind", kind).Str("category", cat.Name).Msg("skipping category without id")
				continue
			}
			categories = append(categories, cat)
		}
	}

	var pending []pendingItem
	for _, cat := range categories {
		group := normalize.GroupLabel(mediaType, cat.Name)
		for raw, err := range client.PaginateVodItems(ctx, mediaType, cat.ID, c.opts.MaxPages) {
			if err != nil {
				return nil, fmt.Errorf("list %s items: category %s: %w", kind, cat.ID, err)
			}
			if normalize.HasCmd(raw) {
				pending = append(pending, pendingItem{raw: raw, group: group})
			}
		}
	}

	items, misses, err := resolveItems(ctx, client, pending, mediaType, c.opts.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("resolve %s links: %w", kind, err)
	}
	logger.Debug().
		Str("kind", kind).
		Int("categories", len(categories)).
		Int("listed", len(pending)).
		Int("misses", misses).
		Msg("catalog collected")
	return items, nil
}
