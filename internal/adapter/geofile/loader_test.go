package geofile

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbakerGIS/maine-wildfire-analysis/internal/crs"
	"github.com/jbakerGIS/maine-wildfire-analysis/internal/domain"
)

const firesFixture = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-69.78, 44.31]},
     "properties": {"FireID": "MF-2022-0001", "Cause": "Lightning"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-68.77, 44.80]},
     "properties": {"FireID": "MF-2022-0002", "Cause": "Campfire"}},
    {"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]},
     "properties": {"FireID": "bogus"}}
  ]
}`

const countiesFixture = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Polygon",
      "coordinates": [[[-70,44],[-69,44],[-69,45],[-70,45],[-70,44]]]},
     "properties": {"Name": "Kennebec"}},
    {"type": "Feature", "geometry": {"type": "MultiPolygon",
      "coordinates": [[[[-69,44],[-68,44],[-68,45],[-69,45],[-69,44]]]]},
     "properties": {"Name": "Hancock"}}
  ]
}`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestLoader(t *testing.T, code string) *Loader {
	t.Helper()
	tf, err := crs.Lookup(code)
	require.NoError(t, err)
	return NewLoader(tf, slog.Default())
}

func TestLoadFires_ProjectsAndSkipsNonPoints(t *testing.T) {
	path := writeFixture(t, "fires.json", firesFixture)
	l := newTestLoader(t, "EPSG:2802")

	fires, err := l.LoadFires(t.Context(), path)
	require.NoError(t, err)

	require.Len(t, fires.Records, 2)
	assert.Equal(t, "EPSG:2802", fires.CRS)
	assert.Equal(t, "MF-2022-0001", fires.Records[0].Properties["FireID"])

	// Coordinates are state-plane meters now, not degrees.
	assert.Greater(t, fires.Records[0].Point.X(), 100000.0)
	assert.Greater(t, fires.Records[0].Point.Y(), 10000.0)
}

func TestLoadFires_MissingFile(t *testing.T) {
	l := newTestLoader(t, "EPSG:4326")

	_, err := l.LoadFires(t.Context(), filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Equal(t, domain.KindIO, domain.KindOf(err))
}

func TestLoadFires_Malformed(t *testing.T) {
	path := writeFixture(t, "bad.json", `{"type": "FeatureCollection", "features": [{`)
	l := newTestLoader(t, "EPSG:4326")

	_, err := l.LoadFires(t.Context(), path)
	require.Error(t, err)
	assert.Equal(t, domain.KindDecode, domain.KindOf(err))
}

func TestLoadFires_Idempotent(t *testing.T) {
	path := writeFixture(t, "fires.json", firesFixture)
	l := newTestLoader(t, "EPSG:2802")

	first, err := l.LoadFires(t.Context(), path)
	require.NoError(t, err)
	second, err := l.LoadFires(t.Context(), path)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated load differs (-first +second):\n%s", diff)
	}
}

func TestLoadBoundaries_NormalizesPolygons(t *testing.T) {
	path := writeFixture(t, "counties.geojson", countiesFixture)
	l := newTestLoader(t, "EPSG:4326")

	counties, err := l.LoadBoundaries(t.Context(), path, "Name")
	require.NoError(t, err)

	require.Len(t, counties.Boundaries, 2)
	assert.Equal(t, "Name", counties.NameKey)
	assert.Equal(t, "Kennebec", counties.Boundaries[0].Name)
	assert.Equal(t, "Hancock", counties.Boundaries[1].Name)
	// The bare Polygon arrives as a single-element MultiPolygon.
	assert.Len(t, counties.Boundaries[0].Geometry, 1)
}

func TestLoadBoundaries_MissingNameKey(t *testing.T) {
	path := writeFixture(t, "counties.geojson", countiesFixture)
	l := newTestLoader(t, "EPSG:4326")

	_, err := l.LoadBoundaries(t.Context(), path, "NAME")
	require.Error(t, err)
	assert.Equal(t, domain.KindSchema, domain.KindOf(err))
	assert.Contains(t, err.Error(), `"NAME"`)
}
