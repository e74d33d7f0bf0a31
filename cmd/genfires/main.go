// Command genfires generates a synthetic wildfire point fixture for tests
// and local runs. Points are sampled inside the supplied county polygons
// (or a Maine-wide bounding box when no county file is given) so the
// spatial join has something to find. Output is deterministic for a fixed
// seed.
//
// Usage:
//
//	go run ./cmd/genfires -count 250 -seed 7 \
//	  -counties data/raw/Counties.geojson \
//	  -out data/mock/fires_2022.json
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/jbakerGIS/maine-wildfire-analysis/internal/domain"
)

// maineBound is the fallback sampling extent, roughly the state of Maine.
var maineBound = orb.Bound{
	Min: orb.Point{-71.1, 43.0},
	Max: orb.Point{-66.9, 47.5},
}

var causes = []string{"Lightning", "Debris Burning", "Campfire", "Equipment", "Unknown"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	countyPath := flag.String("counties", "", "county polygons GeoJSON to sample points inside (optional)")
	out := flag.String("out", "", "output path for the fire points GeoJSON")
	count := flag.Int("count", 200, "number of fire points to generate")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	// Fix the clock so generated dates are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2022, time.April, 1, 0, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	polygons, bound, err := samplingRegion(*countyPath)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))
	seasonStart := domain.Clock().Now()

	fc := geojson.NewFeatureCollection()
	for i := 0; i < *count; i++ {
		pt := samplePoint(rng, polygons, bound)
		f := geojson.NewFeature(pt)
		f.Properties = geojson.Properties{
			"FireID": fmt.Sprintf("MF-2022-%04d", i+1),
			"Date":   seasonStart.AddDate(0, 0, rng.Intn(210)).Format("2006-01-02"),
			"Cause":  causes[rng.Intn(len(causes))],
			"Acres":  float64(rng.Intn(500)) / 10,
		}
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return err
	}

	log.Printf("wrote %d fire points to %s", *count, *out)
	return nil
}

// samplingRegion loads county polygons when a path is given, otherwise
// falls back to the Maine bounding box.
func samplingRegion(path string) ([]orb.MultiPolygon, orb.Bound, error) {
	if path == "" {
		return nil, maineBound, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, orb.Bound{}, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, orb.Bound{}, fmt.Errorf("decode %s: %w", path, err)
	}

	var polygons []orb.MultiPolygon
	var bound orb.Bound
	for _, f := range fc.Features {
		var mp orb.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			mp = g
		default:
			continue
		}
		if len(polygons) == 0 {
			bound = mp.Bound()
		} else {
			bound = bound.Union(mp.Bound())
		}
		polygons = append(polygons, mp)
	}
	if len(polygons) == 0 {
		return nil, orb.Bound{}, fmt.Errorf("%s contains no polygon features", path)
	}
	return polygons, bound, nil
}

// samplePoint draws a uniform point from bound; with polygons present it
// rejection-samples until the point lands inside one.
func samplePoint(rng *rand.Rand, polygons []orb.MultiPolygon, bound orb.Bound) orb.Point {
	for {
		pt := orb.Point{
			bound.Min[0] + rng.Float64()*(bound.Max[0]-bound.Min[0]),
			bound.Min[1] + rng.Float64()*(bound.Max[1]-bound.Min[1]),
		}
		if len(polygons) == 0 {
			return pt
		}
		for _, mp := range polygons {
			if planar.MultiPolygonContains(mp, pt) {
				return pt
			}
		}
	}
}
