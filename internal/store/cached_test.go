package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/stalker2m3u/internal/cache"
	"github.com/voyagen/stalker2m3u/internal/models"
)

// countingStore records how often reads reach the inner store.
type countingStore struct {
	Store
	gets int
}

func (c *countingStore) GetConversion(ctx context.Context, id string) (*models.Conversion, error) {
	c.gets++
	return c.Store.GetConversion(ctx, id)
}

func newCached(t *testing.T) (*CachedStore, *countingStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	inner := &countingStore{Store: NewMemory()}
	return NewCachedStore(inner, cache.NewFromClient(client)), inner
}

func TestCachedStoreContract(t *testing.T) {
	s, _ := newCached(t)
	storeContract(t, s)
}

func TestCachedStoreServesRepeatReadsFromCache(t *testing.T) {
	s, inner := newCached(t)
	ctx := context.Background()
	require.NoError(t, s.SaveConversion(ctx, sampleConversion("a", time.Now().UTC(), 1)))

	for i := 0; i < 3; i++ {
		got, err := s.GetConversion(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "#EXTM3U\n", got.Playlist)
	}
	assert.Equal(t, 1, inner.gets)

	// a save invalidates
	updated := sampleConversion("a", time.Now().UTC(), 1)
	updated.Playlist = "#EXTM3U\n#EXTINF:-1,x\nhttp://x\n"
	require.NoError(t, s.SaveConversion(ctx, updated))
	got, err := s.GetConversion(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, updated.Playlist, got.Playlist)
	assert.Equal(t, 2, inner.gets)
}
