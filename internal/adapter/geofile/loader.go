// Package geofile reads GeoJSON datasets from disk and reprojects them into
// the working CRS before anything downstream sees them.
package geofile

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/jbakerGIS/maine-wildfire-analysis/internal/crs"
	"github.com/jbakerGIS/maine-wildfire-analysis/internal/domain"
)

// Loader reads geospatial files. It implements pipeline.FireSource and
// pipeline.BoundarySource.
type Loader struct {
	transform crs.Transform
	logger    *slog.Logger
}

// NewLoader creates a loader that projects everything it reads into the
// given working CRS.
func NewLoader(transform crs.Transform, logger *slog.Logger) *Loader {
	return &Loader{transform: transform, logger: logger}
}

// LoadFires reads wildfire point features and projects them to the working
// CRS. Non-point geometries are skipped with a warning; point analysis is
// all this pipeline does.
func (l *Loader) LoadFires(ctx context.Context, path string) (domain.FireCollection, error) {
	fc, err := l.read(ctx, path, "load-fires")
	if err != nil {
		return domain.FireCollection{}, err
	}

	out := domain.FireCollection{CRS: l.transform.Code}
	skipped := 0
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			skipped++
			continue
		}
		projected := l.transform.Geometry(pt).(orb.Point)
		out.Records = append(out.Records, domain.FireRecord{
			Point:      projected,
			Properties: f.Properties,
		})
	}
	if skipped > 0 {
		l.logger.Warn("skipped non-point fire features", "path", path, "skipped", skipped)
	}
	l.logger.Info("loaded fire points", "path", path, "count", len(out.Records), "crs", out.CRS)
	return out, nil
}

// LoadBoundaries reads polygon features keyed by nameKey and projects them
// to the working CRS. Polygons are normalized to MultiPolygons. A feature
// missing its name attribute is a schema error.
func (l *Loader) LoadBoundaries(ctx context.Context, path, nameKey string) (domain.BoundaryCollection, error) {
	const stage = "load-boundaries"

	fc, err := l.read(ctx, path, stage)
	if err != nil {
		return domain.BoundaryCollection{}, err
	}

	out := domain.BoundaryCollection{CRS: l.transform.Code, NameKey: nameKey}
	skipped := 0
	for i, f := range fc.Features {
		var mp orb.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			mp = g
		default:
			skipped++
			continue
		}

		name, ok := f.Properties[nameKey].(string)
		if !ok {
			return domain.BoundaryCollection{}, domain.NewStageError(stage, domain.KindSchema,
				fmt.Errorf("%s: feature %d has no %q attribute", path, i, nameKey))
		}

		out.Boundaries = append(out.Boundaries, domain.Boundary{
			Name:       name,
			Geometry:   l.transform.Geometry(mp).(orb.MultiPolygon),
			Properties: f.Properties,
		})
	}
	if skipped > 0 {
		l.logger.Warn("skipped non-polygon boundary features", "path", path, "skipped", skipped)
	}
	l.logger.Info("loaded boundaries", "path", path, "count", len(out.Boundaries), "name_key", nameKey)
	return out, nil
}

func (l *Loader) read(ctx context.Context, path, stage string) (*geojson.FeatureCollection, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStageError(stage, domain.KindIO, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewStageError(stage, domain.KindIO, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, domain.NewStageError(stage, domain.KindDecode,
			fmt.Errorf("%s: %w", path, err))
	}
	return fc, nil
}
