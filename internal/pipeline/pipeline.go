// Package pipeline orchestrates the analysis: load, extract the Maine
// boundary, join fires to counties, render figures, export layers. The run
// is synchronous and sequential; every stage returns an explicit
// domain.StageError instead of the uncaught faults of the original drafts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jbakerGIS/maine-wildfire-analysis/internal/config"
	"github.com/jbakerGIS/maine-wildfire-analysis/internal/domain"
	"github.com/jbakerGIS/maine-wildfire-analysis/internal/observability"
)

// FireSource loads wildfire points into the working CRS.
type FireSource interface {
	LoadFires(ctx context.Context, path string) (domain.FireCollection, error)
}

// BoundarySource loads administrative polygons into the working CRS.
type BoundarySource interface {
	LoadBoundaries(ctx context.Context, path, nameKey string) (domain.BoundaryCollection, error)
}

// StaticRenderer draws the two PNG figures.
type StaticRenderer interface {
	Overlay(ctx context.Context, maine domain.BoundaryCollection, fires domain.FireCollection, path string) error
	Choropleth(ctx context.Context, counts []domain.CountyFireCount, path string) error
}

// InteractiveRenderer writes the HTML choropleth.
type InteractiveRenderer interface {
	Render(ctx context.Context, counts []domain.CountyFireCount, nameKey, path string) error
}

// Exporter persists layers to GeoPackage containers.
type Exporter interface {
	WriteBoundaries(ctx context.Context, c domain.BoundaryCollection, path, layer string) error
	WriteCounts(ctx context.Context, counts []domain.CountyFireCount, crsCode, nameKey, path, layer string) error
}

// RunOptions selects which output stages execute.
type RunOptions struct {
	Render bool
	Export bool
}

// Pipeline wires the stages together.
type Pipeline struct {
	cfg         *config.Config
	fires       FireSource
	boundaries  BoundarySource
	static      StaticRenderer
	interactive InteractiveRenderer
	exporter    Exporter
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a Pipeline with the given stages and observability.
func New(cfg *config.Config, fires FireSource, boundaries BoundarySource, static StaticRenderer, interactive InteractiveRenderer, exporter Exporter, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		fires:       fires,
		boundaries:  boundaries,
		static:      static,
		interactive: interactive,
		exporter:    exporter,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run executes the pipeline once. Output stages are selected by opts; load,
// extract, and aggregate always run.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) error {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	start := time.Now()

	var (
		fires    domain.FireCollection
		states   domain.BoundaryCollection
		counties domain.BoundaryCollection
	)
	err := p.timed("load", func() error {
		var err error
		if fires, err = p.fires.LoadFires(ctx, p.cfg.FireData); err != nil {
			return err
		}
		p.metrics.FeaturesLoaded.WithLabelValues("fires").Add(float64(len(fires.Records)))

		if states, err = p.boundaries.LoadBoundaries(ctx, p.cfg.StateData, p.cfg.StateNameKey); err != nil {
			return err
		}
		p.metrics.FeaturesLoaded.WithLabelValues("states").Add(float64(len(states.Boundaries)))

		if counties, err = p.boundaries.LoadBoundaries(ctx, p.cfg.CountyData, p.cfg.CountyNameKey); err != nil {
			return err
		}
		p.metrics.FeaturesLoaded.WithLabelValues("counties").Add(float64(len(counties.Boundaries)))
		return nil
	})
	if err != nil {
		return err
	}

	var maine domain.BoundaryCollection
	err = p.timed("extract", func() error {
		maine = domain.ExtractState(states, p.cfg.StateName)
		if len(maine.Boundaries) == 0 {
			if p.cfg.StrictBoundaries {
				return domain.NewStageError("extract", domain.KindEmptyResult,
					fmt.Errorf("no state named %q in %s", p.cfg.StateName, p.cfg.StateData))
			}
			p.logger.Warn("state boundary not found, downstream figures will be empty",
				"state", p.cfg.StateName, "path", p.cfg.StateData)
		}
		return nil
	})
	if err != nil {
		return err
	}

	var counts []domain.CountyFireCount
	err = p.timed("aggregate", func() error {
		var summary domain.JoinSummary
		counts, summary = domain.CountFiresByCounty(fires, counties)
		p.metrics.FiresJoined.Add(float64(summary.Joined))
		p.metrics.FiresDropped.Add(float64(summary.Dropped))
		p.metrics.CountiesTotal.Set(float64(len(counts)))

		p.logger.Info("aggregated fires by county",
			"counties", len(counts), "joined", summary.Joined, "dropped", summary.Dropped)
		if summary.Joined == 0 && p.cfg.StrictBoundaries {
			return domain.NewStageError("aggregate", domain.KindEmptyResult,
				errors.New("no fire point falls inside any county"))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if opts.Render {
		err = p.timed("render", func() error {
			overlayPath := filepath.Join(p.cfg.OutputDir, "wildfire_locations_2022.png")
			if err := p.static.Overlay(ctx, maine, fires, overlayPath); err != nil {
				return err
			}
			choroplethPath := filepath.Join(p.cfg.OutputDir, "fires_by_county_2022.png")
			if err := p.static.Choropleth(ctx, counts, choroplethPath); err != nil {
				return err
			}
			return p.interactive.Render(ctx, counts, p.cfg.CountyNameKey, p.cfg.OutputHTML)
		})
		if err != nil {
			return err
		}
	}

	if opts.Export {
		err = p.timed("export", func() error {
			boundaryPath := filepath.Join(p.cfg.OutputDir, "maine_boundary.gpkg")
			if err := p.exporter.WriteBoundaries(ctx, maine, boundaryPath, "maine_boundary"); err != nil {
				return err
			}
			countyPath := filepath.Join(p.cfg.OutputDir, "maine_counties.gpkg")
			return p.exporter.WriteCounts(ctx, counts, counties.CRS, p.cfg.CountyNameKey, countyPath, "fires_by_county")
		})
		if err != nil {
			return err
		}
	}

	p.logger.Info("pipeline complete", "duration", time.Since(start))
	return nil
}

// timed runs a stage, records its duration, and logs failures with stage
// context.
func (p *Pipeline) timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		p.logger.Error("stage failed", "stage", stage, "kind", domain.KindOf(err).String(), "error", err)
		return err
	}
	p.logger.Debug("stage complete", "stage", stage, "duration", time.Since(start))
	return nil
}
