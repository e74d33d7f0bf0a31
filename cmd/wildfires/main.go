// Command wildfires runs the Maine wildfire county analysis: it loads fire
// points and administrative boundaries, joins fires to counties, renders
// the static and interactive maps, and optionally exports processed layers
// to GeoPackage.
//
// Configuration comes from environment variables (see internal/config);
// flags override the environment for the paths the original script drafts
// hard-coded.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jbakerGIS/maine-wildfire-analysis/internal/adapter/geofile"
	"github.com/jbakerGIS/maine-wildfire-analysis/internal/adapter/gpkg"
	"github.com/jbakerGIS/maine-wildfire-analysis/internal/adapter/httpadapter"
	"github.com/jbakerGIS/maine-wildfire-analysis/internal/adapter/tiles"
	"github.com/jbakerGIS/maine-wildfire-analysis/internal/config"
	"github.com/jbakerGIS/maine-wildfire-analysis/internal/crs"
	"github.com/jbakerGIS/maine-wildfire-analysis/internal/domain"
	"github.com/jbakerGIS/maine-wildfire-analysis/internal/observability"
	"github.com/jbakerGIS/maine-wildfire-analysis/internal/pipeline"
	"github.com/jbakerGIS/maine-wildfire-analysis/internal/render"
)

type overrides struct {
	fireData   string
	stateData  string
	countyData string
	targetCRS  string
	outputDir  string
	outputHTML string
	noBasemap  bool
	strict     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var ov overrides

	root := &cobra.Command{
		Use:           "wildfires",
		Short:         "Maine wildfire county analysis pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&ov.fireData, "fires", "", "wildfire points GeoJSON (overrides FIRE_DATA)")
	pf.StringVar(&ov.stateData, "states", "", "US state boundaries GeoJSON (overrides STATE_DATA)")
	pf.StringVar(&ov.countyData, "counties", "", "county boundaries GeoJSON (overrides COUNTY_DATA)")
	pf.StringVar(&ov.targetCRS, "crs", "", "working CRS, e.g. EPSG:2802 (overrides TARGET_CRS)")
	pf.StringVar(&ov.outputDir, "out", "", "output directory (overrides OUTPUT_DIR)")
	pf.StringVar(&ov.outputHTML, "html", "", "interactive map path (overrides OUTPUT_HTML)")
	pf.BoolVar(&ov.noBasemap, "no-basemap", false, "skip basemap tile fetching")
	pf.BoolVar(&ov.strict, "strict", false, "treat an empty Maine boundary or empty join as fatal")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the full pipeline: figures plus GeoPackage export",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return execute(cmd.Context(), ov, func(cfg *config.Config) pipeline.RunOptions {
					return pipeline.RunOptions{Render: true, Export: cfg.ExportEnabled}
				})
			},
		},
		&cobra.Command{
			Use:   "render",
			Short: "Render the figures without exporting layers",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return execute(cmd.Context(), ov, func(*config.Config) pipeline.RunOptions {
					return pipeline.RunOptions{Render: true}
				})
			},
		},
		&cobra.Command{
			Use:   "export",
			Short: "Export the processed boundary and county layers only",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return execute(cmd.Context(), ov, func(*config.Config) pipeline.RunOptions {
					return pipeline.RunOptions{Export: true}
				})
			},
		},
	)
	return root
}

func execute(parent context.Context, ov overrides, opts func(*config.Config) pipeline.RunOptions) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}
	applyOverrides(cfg, ov)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	transform, err := crs.Lookup(cfg.TargetCRS)
	if err != nil {
		err = domain.NewStageError("setup", domain.KindCRS, err)
		logger.Error("unknown working CRS", "crs", cfg.TargetCRS, "error", err)
		return err
	}

	var fetcher tiles.Fetcher
	if cfg.BasemapEnabled {
		client := tiles.NewClient(cfg.BasemapURL, cfg.TileTimeout, logger, metrics)
		fetcher = tiles.NewCachedFetcher(client, cfg.TileCacheSize, metrics)
		logger.Info("basemap enabled", "url", cfg.BasemapURL, "zoom", cfg.BasemapZoom)
	} else {
		logger.Info("basemap disabled")
	}

	loader := geofile.NewLoader(transform, logger)
	static := render.NewStaticRenderer(transform, fetcher, cfg.BasemapZoom, logger)
	interactive := render.NewInteractiveRenderer(transform, logger)
	exporter := gpkg.NewWriter(logger)

	p := pipeline.New(cfg, loader, loader, static, interactive, exporter, logger, metrics)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			if err := srv.Shutdown(context.Background()); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	if err := p.Run(ctx, opts(cfg)); err != nil {
		return err
	}
	logger.Info("done")
	return nil
}

func applyOverrides(cfg *config.Config, ov overrides) {
	if ov.fireData != "" {
		cfg.FireData = ov.fireData
	}
	if ov.stateData != "" {
		cfg.StateData = ov.stateData
	}
	if ov.countyData != "" {
		cfg.CountyData = ov.countyData
	}
	if ov.targetCRS != "" {
		cfg.TargetCRS = ov.targetCRS
	}
	if ov.outputDir != "" {
		cfg.OutputDir = ov.outputDir
	}
	if ov.outputHTML != "" {
		cfg.OutputHTML = ov.outputHTML
	}
	if ov.noBasemap {
		cfg.BasemapEnabled = false
	}
	if ov.strict {
		cfg.StrictBoundaries = true
	}
}
