package render

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"

	"github.com/jbakerGIS/maine-wildfire-analysis/internal/crs"
	"github.com/jbakerGIS/maine-wildfire-analysis/internal/domain"
)

// InteractiveRenderer writes the county choropleth as a self-contained
// Leaflet HTML document. Geometry is inverse-projected back to WGS84 for
// display; fill colors use the same Reds ramp as the static choropleth.
type InteractiveRenderer struct {
	transform crs.Transform
	logger    *slog.Logger
}

// NewInteractiveRenderer creates the HTML map renderer.
func NewInteractiveRenderer(transform crs.Transform, logger *slog.Logger) *InteractiveRenderer {
	return &InteractiveRenderer{transform: transform, logger: logger}
}

// Render writes the interactive choropleth to path. An empty county set
// produces a valid document with an empty layer.
func (r *InteractiveRenderer) Render(ctx context.Context, counts []domain.CountyFireCount, nameKey, path string) error {
	renderErr := func(err error) error {
		return domain.NewStageError("render", domain.KindRender, err)
	}
	if err := ctx.Err(); err != nil {
		return renderErr(err)
	}

	values := make([]int, len(counts))
	for i, c := range counts {
		values[i] = c.Count
	}
	max := maxCount(values)

	fc := geojson.NewFeatureCollection()
	for _, c := range counts {
		geom := r.transform.GeometryToWGS84(c.Geometry.Clone())
		f := geojson.NewFeature(geom)
		f.Properties = geojson.Properties{
			nameKey:            c.Name,
			domain.CountColumn: c.Count,
			"fill":             redsHex(countScale(c.Count, max)),
		}
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return renderErr(err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return renderErr(err)
	}
	out, err := os.Create(path)
	if err != nil {
		return renderErr(err)
	}
	defer out.Close()

	params := mapParams{
		Title:       "Maine Wildfires per County (2022)",
		GeoJSON:     template.JS(data),
		NameKey:     nameKey,
		CountColumn: domain.CountColumn,
		Legend:      legendGrades(max),
	}
	if err := mapTemplate.Execute(out, params); err != nil {
		return renderErr(err)
	}

	r.logger.Info("interactive map saved", "path", path, "counties", len(counts))
	return nil
}

type mapParams struct {
	Title       string
	GeoJSON     template.JS
	NameKey     string
	CountColumn string
	Legend      []legendGrade
}

type legendGrade struct {
	Color string
	Label string
}

func legendGrades(max int) []legendGrade {
	const steps = 5
	grades := make([]legendGrade, steps)
	for i := 0; i < steps; i++ {
		frac := float64(i) / float64(steps-1)
		grades[i] = legendGrade{
			Color: redsHex(frac),
			Label: fmt.Sprintf("%d", int(math.Round(frac*float64(max)))),
		}
	}
	return grades
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
  html, body, #map { height: 100%; margin: 0; }
  .legend { background: white; padding: 6px 10px; line-height: 20px; font: 12px sans-serif; }
  .legend i { width: 16px; height: 16px; float: left; margin-right: 6px; opacity: 0.85; }
  .map-title { background: white; padding: 4px 10px; font: 14px sans-serif; font-weight: bold; }
</style>
</head>
<body>
<div id="map"></div>
<script>
  var counties = {{.GeoJSON}};

  var map = L.map('map');
  L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
    attribution: '&copy; OpenStreetMap contributors'
  }).addTo(map);

  var layer = L.geoJSON(counties, {
    style: function (feature) {
      return {
        fillColor: feature.properties['fill'],
        fillOpacity: 0.75,
        color: '#000',
        weight: 1
      };
    },
    onEachFeature: function (feature, l) {
      l.bindPopup('<b>' + feature.properties['{{.NameKey}}'] + '</b><br>' +
        '{{.CountColumn}}: ' + feature.properties['{{.CountColumn}}']);
    }
  }).addTo(map);

  if (counties.features.length > 0) {
    map.fitBounds(layer.getBounds());
  } else {
    map.setView([45.25, -69.0], 7);
  }

  var title = L.control({position: 'topright'});
  title.onAdd = function () {
    var div = L.DomUtil.create('div', 'map-title');
    div.innerHTML = '{{.Title}}';
    return div;
  };
  title.addTo(map);

  var legend = L.control({position: 'bottomright'});
  legend.onAdd = function () {
    var div = L.DomUtil.create('div', 'legend');
    div.innerHTML += '<b>{{.CountColumn}}</b><br>';
    {{range .Legend}}div.innerHTML += '<i style="background:{{.Color}}"></i>{{.Label}}<br>';
    {{end}}return div;
  };
  legend.addTo(map);
</script>
</body>
</html>
`))
