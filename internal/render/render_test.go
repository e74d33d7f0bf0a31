package render

import (
	"context"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbakerGIS/maine-wildfire-analysis/internal/crs"
	"github.com/jbakerGIS/maine-wildfire-analysis/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustTransform(t *testing.T) crs.Transform {
	t.Helper()
	tr, err := crs.Lookup("EPSG:2802")
	require.NoError(t, err)
	return tr
}

// mainePatch is a small square near the center of Maine in working-CRS
// coordinates, with its fires and counts.
func mainePatch(t *testing.T) (domain.BoundaryCollection, domain.FireCollection, []domain.CountyFireCount) {
	t.Helper()
	tr := mustTransform(t)

	ring := orb.Ring{
		{-69.8, 44.2}, {-69.2, 44.2}, {-69.2, 44.8}, {-69.8, 44.8}, {-69.8, 44.2},
	}
	projected := make(orb.Ring, len(ring))
	for i, p := range ring {
		projected[i] = tr.Forward(p)
	}

	maine := domain.BoundaryCollection{
		CRS:     "EPSG:2802",
		NameKey: "NAME",
		Boundaries: []domain.Boundary{{
			Name:     "Maine",
			Geometry: orb.MultiPolygon{{projected}},
		}},
	}
	fires := domain.FireCollection{
		CRS: "EPSG:2802",
		Records: []domain.FireRecord{
			{Point: tr.Forward(orb.Point{-69.5, 44.5})},
			{Point: tr.Forward(orb.Point{-69.4, 44.3})},
		},
	}
	counts := []domain.CountyFireCount{
		{Boundary: maine.Boundaries[0], Count: 7},
		{Boundary: domain.Boundary{Name: "Empty", Geometry: orb.MultiPolygon{{projected}}}, Count: 0},
	}
	return maine, fires, counts
}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

type stubFetcher struct {
	tiles []maptile.Tile
}

func (f *stubFetcher) Tile(_ context.Context, t maptile.Tile) (image.Image, error) {
	f.tiles = append(f.tiles, t)
	return image.NewRGBA(image.Rect(0, 0, 256, 256)), nil
}

func TestOverlay_WritesFigure(t *testing.T) {
	maine, fires, _ := mainePatch(t)
	path := filepath.Join(t.TempDir(), "figures", "overlay.png")

	r := NewStaticRenderer(mustTransform(t), nil, 8, testLogger())
	require.NoError(t, r.Overlay(t.Context(), maine, fires, path))

	img := decodePNG(t, path)
	assert.Greater(t, img.Bounds().Dx(), 2*int(margin))
	assert.Greater(t, img.Bounds().Dy(), 2*int(margin))

	// The boundary covers the whole data extent, so the canvas center must
	// carry the light-gray fill rather than the white background.
	cx := img.Bounds().Min.X + img.Bounds().Dx()/2
	cy := img.Bounds().Min.Y + img.Bounds().Dy()/2
	r8, g8, b8, _ := img.At(cx, cy).RGBA()
	assert.False(t, r8 == 0xFFFF && g8 == 0xFFFF && b8 == 0xFFFF,
		"boundary fill missing at canvas center")
}

func TestOverlay_CanceledContext(t *testing.T) {
	maine, fires, _ := mainePatch(t)
	path := filepath.Join(t.TempDir(), "overlay.png")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	r := NewStaticRenderer(mustTransform(t), nil, 8, testLogger())
	err := r.Overlay(ctx, maine, fires, path)
	require.Error(t, err)
	assert.Equal(t, domain.KindRender, domain.KindOf(err))
}

func TestSlippyPixel(t *testing.T) {
	// At zoom 0 the world is a single 256px tile with (0, 0) at its center.
	x, y := slippyPixel(orb.Point{0, 0}, 0)
	assert.InDelta(t, 128, x, 1e-9)
	assert.InDelta(t, 128, y, 1e-9)

	x, y = slippyPixel(orb.Point{-180, 0}, 1)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 256, y, 1e-9)
}

func TestOverlay_FetchesCoveringTiles(t *testing.T) {
	maine, fires, _ := mainePatch(t)
	path := filepath.Join(t.TempDir(), "overlay.png")

	fetcher := &stubFetcher{}
	r := NewStaticRenderer(mustTransform(t), fetcher, 8, testLogger())
	require.NoError(t, r.Overlay(t.Context(), maine, fires, path))

	require.NotEmpty(t, fetcher.tiles)
	for _, tile := range fetcher.tiles {
		assert.Equal(t, maptile.Zoom(8), tile.Z)
	}
}

func TestOverlay_EmptyInputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.png")
	r := NewStaticRenderer(mustTransform(t), nil, 8, testLogger())

	err := r.Overlay(t.Context(), domain.BoundaryCollection{}, domain.FireCollection{}, path)
	require.NoError(t, err)

	img := decodePNG(t, path)
	assert.Equal(t, canvasSize, img.Bounds().Dx())
}

func TestChoropleth_WritesFigure(t *testing.T) {
	_, _, counts := mainePatch(t)
	path := filepath.Join(t.TempDir(), "choropleth.png")

	r := NewStaticRenderer(mustTransform(t), nil, 8, testLogger())
	require.NoError(t, r.Choropleth(t.Context(), counts, path))
	decodePNG(t, path)
}

func TestChoropleth_NoCounties(t *testing.T) {
	path := filepath.Join(t.TempDir(), "choropleth.png")
	r := NewStaticRenderer(mustTransform(t), nil, 8, testLogger())

	require.NoError(t, r.Choropleth(t.Context(), nil, path))
	decodePNG(t, path)
}

func TestInteractive_Render(t *testing.T) {
	_, _, counts := mainePatch(t)
	path := filepath.Join(t.TempDir(), "map.html")

	r := NewInteractiveRenderer(mustTransform(t), testLogger())
	require.NoError(t, r.Render(t.Context(), counts, "NAME", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "leaflet@1.9.4")
	assert.Contains(t, html, "Maine Wildfires per County (2022)")
	assert.Contains(t, html, `"NAME":"Maine"`)
	assert.Contains(t, html, `"Number of Fires":7`)
	// Max count takes the darkest ramp color.
	assert.Contains(t, html, "#67000d")
}

func TestInteractive_DoesNotMutateInput(t *testing.T) {
	_, _, counts := mainePatch(t)
	before := counts[0].Geometry.Clone()

	path := filepath.Join(t.TempDir(), "map.html")
	r := NewInteractiveRenderer(mustTransform(t), testLogger())
	require.NoError(t, r.Render(t.Context(), counts, "NAME", path))

	assert.True(t, counts[0].Geometry.Equal(before))
}

func TestReds_Endpoints(t *testing.T) {
	assert.Equal(t, redsStops[0], reds(0))
	assert.Equal(t, redsStops[0], reds(-0.5))
	assert.Equal(t, redsStops[len(redsStops)-1], reds(1))
	assert.Equal(t, redsStops[len(redsStops)-1], reds(2))
}

func TestCountScale(t *testing.T) {
	assert.Equal(t, 0.0, countScale(5, 0))
	assert.Equal(t, 0.5, countScale(5, 10))
	assert.Equal(t, 1.0, countScale(10, 10))
}

func TestRedsHex(t *testing.T) {
	assert.Equal(t, "#fff5f0", redsHex(0))
	assert.Equal(t, "#67000d", redsHex(1))
}
