// Package tiles fetches XYZ basemap tiles for the overlay figure.
package tiles

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/paulmach/orb/maptile"

	"github.com/jbakerGIS/maine-wildfire-analysis/internal/observability"
)

// Fetcher retrieves a single basemap tile image.
type Fetcher interface {
	Tile(ctx context.Context, t maptile.Tile) (image.Image, error)
}

// Client fetches tiles from an XYZ tile server. The URL template uses
// {z}/{x}/{y} placeholders, e.g. https://tile.openstreetmap.org/{z}/{x}/{y}.png.
type Client struct {
	urlTemplate string
	httpClient  *http.Client
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewClient creates a tile client. metrics may be nil.
func NewClient(urlTemplate string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		urlTemplate: urlTemplate,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Tile fetches and decodes one tile.
func (c *Client) Tile(ctx context.Context, t maptile.Tile) (image.Image, error) {
	img, err := c.fetch(ctx, t)
	if c.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		c.metrics.TileFetches.WithLabelValues(outcome).Inc()
	}
	return img, err
}

func (c *Client) fetch(ctx context.Context, t maptile.Tile) (image.Image, error) {
	u := c.urlTemplate
	u = strings.ReplaceAll(u, "{z}", strconv.Itoa(int(t.Z)))
	u = strings.ReplaceAll(u, "{x}", strconv.FormatUint(uint64(t.X), 10))
	u = strings.ReplaceAll(u, "{y}", strconv.FormatUint(uint64(t.Y), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// Tile usage policies require an identifying agent.
	req.Header.Set("User-Agent", "maine-wildfire-analysis/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("tile %d/%d/%d: status %d: %s", t.Z, t.X, t.Y, resp.StatusCode, body)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tile %d/%d/%d: decode: %w", t.Z, t.X, t.Y, err)
	}
	return img, nil
}
