package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/voyagen/stalker2m3u/internal/metrics"
	"github.com/voyagen/stalker2m3u/internal/models"
	"github.com/voyagen/stalker2m3u/internal/normalize"
	"github.com/voyagen/stalker2m3u/internal/portal"
)

// linkResolver is the part of portal.Client the pool needs.
type linkResolver interface {
	ResolveStreamLink(ctx context.Context, cmd string, mediaType int16) string
}

// pendingItem is a listed VOD record waiting for its stream link.
type pendingItem struct {
	raw   portal.RawVodItem
	group string
}

// resolveItems resolves every pending item with at most limit calls in
// flight. Results are reassembled by index so the output keeps listing
// order. Items whose link cannot be resolved are dropped and counted; only
// cancellation of ctx fails the batch.
func resolveItems(ctx context.Context, r linkResolver, pending []pendingItem, mediaType int16, limit int) ([]models.VodItem, int, error) {
	if limit < 1 {
		limit = 1
	}
	links := make([]string, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range pending {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			links[i] = r.ResolveStreamLink(gctx, p.raw.Cmd.String(), mediaType)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	misses := 0
	out := make([]models.VodItem, 0, len(pending))
	for i, p := range pending {
		item, ok := normalize.VodItem(p.raw, links[i], mediaType, p.group)
		if !ok {
			misses++
			continue
		}
		out = append(out, item)
	}
	if misses > 0 {
		metrics.ResolutionMissesTotal.WithLabelValues(models.MediaTypeName(mediaType)).Add(float64(misses))
	}
	return out, misses, nil
}
