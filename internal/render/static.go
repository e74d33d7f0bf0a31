// Package render produces the analysis figures: a fire-location overlay, a
// per-county choropleth, and an interactive HTML map. Renderers never
// mutate their inputs, and an empty collection yields an empty figure
// rather than an error.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"golang.org/x/image/font/basicfont"

	"github.com/jbakerGIS/maine-wildfire-analysis/internal/adapter/tiles"
	"github.com/jbakerGIS/maine-wildfire-analysis/internal/crs"
	"github.com/jbakerGIS/maine-wildfire-analysis/internal/domain"
)

const (
	canvasSize = 900
	margin     = 40.0
	tileSize   = 256
)

// StaticRenderer draws the two PNG figures.
type StaticRenderer struct {
	transform crs.Transform
	fetcher   tiles.Fetcher // nil disables the basemap underlay
	zoom      int
	logger    *slog.Logger
}

// NewStaticRenderer creates a renderer. Pass a nil fetcher to render the
// overlay without basemap tiles.
func NewStaticRenderer(transform crs.Transform, fetcher tiles.Fetcher, zoom int, logger *slog.Logger) *StaticRenderer {
	return &StaticRenderer{transform: transform, fetcher: fetcher, zoom: zoom, logger: logger}
}

// Overlay draws the Maine outline filled light gray with black edges, fire
// points as small red markers, and basemap tiles beneath, with no axes.
// The figure is laid out in web-mercator tile pixel space so tiles align
// without raster warping; data is inverse-projected from the working CRS.
func (r *StaticRenderer) Overlay(ctx context.Context, maine domain.BoundaryCollection, fires domain.FireCollection, path string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStageError("render", domain.KindRender, err)
	}
	bound, ok := r.overlayBound(maine, fires)
	if !ok {
		r.logger.Warn("overlay has no features, rendering empty figure", "path", path)
		return savePNG(blankCanvas("Wildfire Locations in Maine (2022)"), path)
	}

	px := newPixelSpace(bound, r.zoom)
	dc := gg.NewContext(px.width, px.height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	if r.fetcher != nil {
		r.drawBasemap(ctx, dc, px)
	}

	// Geometry is in the working CRS; the canvas lives in tile pixel
	// space, so every vertex goes back through the inverse projection.
	toCanvas := func(p orb.Point) (float64, float64) {
		return px.point(r.transform.Inverse(p))
	}

	// Maine outline: light gray fill, black edges.
	for _, b := range maine.Boundaries {
		r.tracePolygons(dc, b.Geometry, toCanvas)
		dc.SetRGBA(0.83, 0.83, 0.83, 0.85)
		dc.FillPreserve()
		dc.SetRGB(0, 0, 0)
		dc.SetLineWidth(1.2)
		dc.Stroke()
	}

	// Fire points: small red markers.
	dc.SetRGB(1, 0, 0)
	for _, f := range fires.Records {
		x, y := toCanvas(f.Point)
		dc.DrawCircle(x, y, 2.5)
		dc.Fill()
	}

	drawTitle(dc, "Wildfire Locations in Maine (2022)")
	return savePNG(dc, path)
}

// Choropleth draws counties colored by fire count on the sequential Reds
// ramp, with black edges, a legend, and no axes, in the working CRS.
func (r *StaticRenderer) Choropleth(ctx context.Context, counts []domain.CountyFireCount, path string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStageError("render", domain.KindRender, err)
	}
	if len(counts) == 0 {
		r.logger.Warn("choropleth has no counties, rendering empty figure", "path", path)
		return savePNG(blankCanvas("Maine Wildfires per County (2022)"), path)
	}

	var bound orb.Bound
	values := make([]int, len(counts))
	for i, c := range counts {
		values[i] = c.Count
		if i == 0 {
			bound = c.Geometry.Bound()
			continue
		}
		bound = bound.Union(c.Geometry.Bound())
	}
	max := maxCount(values)

	proj := newPlanarSpace(bound)
	dc := gg.NewContext(proj.width, proj.height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	for _, c := range counts {
		r.tracePolygons(dc, c.Geometry, proj.point)
		dc.SetColor(reds(countScale(c.Count, max)))
		dc.FillPreserve()
		dc.SetRGB(0, 0, 0)
		dc.SetLineWidth(1)
		dc.Stroke()
	}

	drawLegend(dc, max)
	drawTitle(dc, "Maine Wildfires per County (2022)")
	return savePNG(dc, path)
}

// overlayBound returns the WGS84 extent of the overlay figure: the Maine
// boundary when present, otherwise the fire points.
func (r *StaticRenderer) overlayBound(maine domain.BoundaryCollection, fires domain.FireCollection) (orb.Bound, bool) {
	var bound orb.Bound
	have := false
	extend := func(p orb.Point) {
		ll := r.transform.Inverse(p)
		if !have {
			bound = orb.Bound{Min: ll, Max: ll}
			have = true
			return
		}
		bound = bound.Extend(ll)
	}

	if len(maine.Boundaries) > 0 {
		for _, b := range maine.Boundaries {
			wb := b.Geometry.Bound()
			extend(wb.Min)
			extend(wb.Max)
			extend(orb.Point{wb.Min[0], wb.Max[1]})
			extend(orb.Point{wb.Max[0], wb.Min[1]})
		}
		return bound, true
	}
	for _, f := range fires.Records {
		extend(f.Point)
	}
	return bound, have
}

func (r *StaticRenderer) drawBasemap(ctx context.Context, dc *gg.Context, px pixelSpace) {
	minTileX := int(math.Floor(px.originX / tileSize))
	minTileY := int(math.Floor(px.originY / tileSize))
	maxTileX := int(math.Floor((px.originX + float64(px.width)) / tileSize))
	maxTileY := int(math.Floor((px.originY + float64(px.height)) / tileSize))

	n := 1 << px.zoom
	for tx := minTileX; tx <= maxTileX; tx++ {
		for ty := minTileY; ty <= maxTileY; ty++ {
			if tx < 0 || ty < 0 || tx >= n || ty >= n {
				continue
			}
			tile := maptile.New(uint32(tx), uint32(ty), maptile.Zoom(px.zoom))
			img, err := r.fetcher.Tile(ctx, tile)
			if err != nil {
				// A missing tile degrades the figure, not the run.
				r.logger.Warn("basemap tile fetch failed", "error", err)
				continue
			}
			dc.DrawImage(img,
				tx*tileSize-int(math.Round(px.originX)),
				ty*tileSize-int(math.Round(px.originY)))
		}
	}
}

// tracePolygons adds every ring of a multipolygon to the current path,
// mapping working-CRS coordinates through proj.
func (r *StaticRenderer) tracePolygons(dc *gg.Context, mp orb.MultiPolygon, proj func(orb.Point) (float64, float64)) {
	for _, polygon := range mp {
		for _, ring := range polygon {
			for i, pt := range ring {
				x, y := proj(pt)
				if i == 0 {
					dc.NewSubPath()
					dc.MoveTo(x, y)
					continue
				}
				dc.LineTo(x, y)
			}
			dc.ClosePath()
		}
	}
}

// pixelSpace maps WGS84 coordinates to canvas pixels via web-mercator tile
// math at a fixed zoom.
type pixelSpace struct {
	zoom             int
	originX, originY float64
	width, height    int
}

func newPixelSpace(bound orb.Bound, zoom int) pixelSpace {
	minX, minY := slippyPixel(orb.Point{bound.Min[0], bound.Max[1]}, zoom) // top-left
	maxX, maxY := slippyPixel(orb.Point{bound.Max[0], bound.Min[1]}, zoom) // bottom-right

	ps := pixelSpace{
		zoom:    zoom,
		originX: minX - margin,
		originY: minY - margin,
		width:   int(math.Ceil(maxX-minX)) + 2*margin,
		height:  int(math.Ceil(maxY-minY)) + 2*margin,
	}
	return ps
}

// point maps a WGS84 point to canvas coordinates.
func (ps pixelSpace) point(ll orb.Point) (float64, float64) {
	x, y := slippyPixel(ll, ps.zoom)
	return x - ps.originX, y - ps.originY
}

// slippyPixel returns global pixel coordinates for a lon/lat at a zoom.
func slippyPixel(ll orb.Point, zoom int) (float64, float64) {
	world := tileSize * math.Exp2(float64(zoom))
	lat := math.Max(-85.05112878, math.Min(85.05112878, ll.Lat()))
	x := (ll.Lon() + 180) / 360 * world
	latRad := lat * math.Pi / 180
	y := (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * world
	return x, y
}

// planarSpace fits a working-CRS extent onto the canvas, preserving aspect
// ratio with the y axis flipped (planar y grows north, canvas y grows down).
type planarSpace struct {
	bound         orb.Bound
	scale         float64
	width, height int
}

func newPlanarSpace(bound orb.Bound) planarSpace {
	dx := bound.Max[0] - bound.Min[0]
	dy := bound.Max[1] - bound.Min[1]
	if dx <= 0 {
		dx = 1
	}
	if dy <= 0 {
		dy = 1
	}
	inner := float64(canvasSize) - 2*margin
	scale := math.Min(inner/dx, inner/dy)
	return planarSpace{
		bound:  bound,
		scale:  scale,
		width:  int(dx*scale) + 2*margin,
		height: int(dy*scale) + 2*margin,
	}
}

func (ps planarSpace) point(p orb.Point) (float64, float64) {
	x := margin + (p.X()-ps.bound.Min[0])*ps.scale
	y := float64(ps.height) - margin - (p.Y()-ps.bound.Min[1])*ps.scale
	return x, y
}

func drawTitle(dc *gg.Context, title string) {
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(title, float64(dc.Width())/2, margin/2, 0.5, 0.5)
}

// drawLegend paints a vertical Reds colorbar with tick labels on the right
// edge, mirroring the legend of the original figures.
func drawLegend(dc *gg.Context, max int) {
	const (
		barWidth  = 18.0
		barHeight = 200.0
	)
	x := float64(dc.Width()) - margin - barWidth
	y := (float64(dc.Height()) - barHeight) / 2

	steps := int(barHeight)
	for i := 0; i < steps; i++ {
		t := 1 - float64(i)/float64(steps-1)
		dc.SetColor(reds(t))
		dc.DrawRectangle(x, y+float64(i), barWidth, 1)
		dc.Fill()
	}
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawRectangle(x, y, barWidth, barHeight)
	dc.Stroke()

	dc.SetFontFace(basicfont.Face7x13)
	const ticks = 5
	for i := 0; i < ticks; i++ {
		frac := float64(i) / float64(ticks-1)
		value := int(math.Round(frac * float64(max)))
		ty := y + barHeight - frac*barHeight
		dc.DrawStringAnchored(fmt.Sprintf("%d", value), x-6, ty, 1, 0.5)
	}
	dc.DrawStringAnchored(domain.CountColumn, x+barWidth/2, y-14, 0.5, 0.5)
}

func blankCanvas(title string) *gg.Context {
	dc := gg.NewContext(canvasSize, canvasSize)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	drawTitle(dc, title)
	return dc
}

func savePNG(dc *gg.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domain.NewStageError("render", domain.KindRender, err)
	}
	if err := dc.SavePNG(path); err != nil {
		return domain.NewStageError("render", domain.KindRender, err)
	}
	return nil
}
