package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jbakerGIS/maine-wildfire-analysis/internal/crs"
)

// Config holds all pipeline settings, populated from environment variables.
// Earlier drafts of the analysis hard-coded machine-specific paths and the
// attribute key spellings; both are injectable here.
type Config struct {
	// Input datasets.
	FireData   string
	StateData  string
	CountyData string

	// Working CRS and attribute keys.
	TargetCRS     string
	StateName     string
	StateNameKey  string
	CountyNameKey string

	// Outputs.
	OutputDir     string
	OutputHTML    string
	ExportEnabled bool

	// StrictBoundaries promotes an empty state extraction or an empty join
	// result from a logged warning to a fatal stage error.
	StrictBoundaries bool

	// Basemap tile fetching for the overlay figure.
	BasemapEnabled bool
	BasemapURL     string
	BasemapZoom    int
	TileTimeout    time.Duration
	TileCacheSize  int

	// HTTPAddr serves /healthz and /metrics while the pipeline runs.
	// Empty disables the server.
	HTTPAddr string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	tileTimeoutStr := envOrDefault("TILE_TIMEOUT", "10s")
	tileTimeout, err := time.ParseDuration(tileTimeoutStr)
	if err != nil || tileTimeout <= 0 {
		return nil, errors.New("invalid TILE_TIMEOUT")
	}

	zoom, err := parseIntEnv("BASEMAP_ZOOM", 8)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseIntEnv("TILE_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		FireData:   envOrDefault("FIRE_DATA", "data/raw/Fires.json"),
		StateData:  envOrDefault("STATE_DATA", "data/raw/gz_2010_us_040_00_500k.json"),
		CountyData: envOrDefault("COUNTY_DATA", "data/raw/Counties.geojson"),

		TargetCRS:     envOrDefault("TARGET_CRS", "EPSG:2802"),
		StateName:     envOrDefault("STATE_NAME", "Maine"),
		StateNameKey:  envOrDefault("STATE_NAME_KEY", "NAME"),
		CountyNameKey: envOrDefault("COUNTY_NAME_KEY", "Name"),

		OutputDir:     envOrDefault("OUTPUT_DIR", "data/processed"),
		OutputHTML:    envOrDefault("OUTPUT_HTML", "docs/fires_by_county_2022.html"),
		ExportEnabled: envBool("EXPORT_ENABLED", true),

		StrictBoundaries: envBool("STRICT_BOUNDARIES", false),

		BasemapEnabled: envBool("BASEMAP_ENABLED", true),
		BasemapURL:     envOrDefault("BASEMAP_URL", "https://tile.openstreetmap.org/{z}/{x}/{y}.png"),
		BasemapZoom:    zoom,
		TileTimeout:    tileTimeout,
		TileCacheSize:  cacheSize,

		HTTPAddr: os.Getenv("HTTP_ADDR"),

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail mid-run.
func (c *Config) Validate() error {
	if c.FireData == "" {
		return errors.New("FIRE_DATA is required")
	}
	if c.StateData == "" {
		return errors.New("STATE_DATA is required")
	}
	if c.CountyData == "" {
		return errors.New("COUNTY_DATA is required")
	}
	if _, err := crs.Lookup(c.TargetCRS); err != nil {
		return fmt.Errorf("TARGET_CRS: %w", err)
	}
	if c.StateNameKey == "" || c.CountyNameKey == "" {
		return errors.New("STATE_NAME_KEY and COUNTY_NAME_KEY are required")
	}
	if c.BasemapZoom < 0 || c.BasemapZoom > 19 {
		return errors.New("BASEMAP_ZOOM must be between 0 and 19")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func parseIntEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
