package tiles

import (
	"context"
	"image"
	"io"
	"log/slog"
	"testing"

	"github.com/paulmach/orb/maptile"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbakerGIS/maine-wildfire-analysis/internal/observability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingFetcher struct {
	calls int
	err   error
}

func (f *countingFetcher) Tile(_ context.Context, t maptile.Tile) (image.Image, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func TestCachedFetcher_HitSkipsInner(t *testing.T) {
	inner := &countingFetcher{}
	m := observability.NewMetricsForTesting()
	c := NewCachedFetcher(inner, 4, m)

	tile := maptile.New(1, 2, 3)
	_, err := c.Tile(t.Context(), tile)
	require.NoError(t, err)
	_, err = c.Tile(t.Context(), tile)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TileCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TileCache.WithLabelValues("miss")))
}

func TestCachedFetcher_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := &countingFetcher{}
	c := NewCachedFetcher(inner, 2, nil)

	a := maptile.New(0, 0, 4)
	b := maptile.New(1, 0, 4)
	d := maptile.New(2, 0, 4)

	for _, tile := range []maptile.Tile{a, b} {
		_, err := c.Tile(t.Context(), tile)
		require.NoError(t, err)
	}

	// Touch a so b becomes least recently used, then overflow.
	_, err := c.Tile(t.Context(), a)
	require.NoError(t, err)
	_, err = c.Tile(t.Context(), d)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)

	// a survived the eviction, b did not.
	_, err = c.Tile(t.Context(), a)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)

	_, err = c.Tile(t.Context(), b)
	require.NoError(t, err)
	assert.Equal(t, 4, inner.calls)
}

func TestCachedFetcher_ErrorNotCached(t *testing.T) {
	inner := &countingFetcher{err: assert.AnError}
	c := NewCachedFetcher(inner, 4, nil)

	tile := maptile.New(0, 0, 0)
	_, err := c.Tile(t.Context(), tile)
	require.Error(t, err)

	inner.err = nil
	_, err = c.Tile(t.Context(), tile)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}
