// Command validate performs integrity checks on the three input datasets
// before a pipeline run: file readability, GeoJSON decoding, expected
// geometry types, name-key presence, coordinate sanity, and presence of the
// target state record. A failing phase lists every problem it found.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -fires data/raw/Fires.json \
//	  -states data/raw/gz_2010_us_040_00_500k.json \
//	  -counties data/raw/Counties.geojson
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	fires := flag.String("fires", "", "wildfire points GeoJSON")
	states := flag.String("states", "", "US state boundaries GeoJSON")
	counties := flag.String("counties", "", "county boundaries GeoJSON")
	stateName := flag.String("state-name", "Maine", "state record that must exist")
	stateKey := flag.String("state-key", "NAME", "state name attribute key")
	countyKey := flag.String("county-key", "Name", "county name attribute key")
	flag.Parse()

	if *fires == "" || *states == "" || *counties == "" {
		flag.Usage()
		os.Exit(1)
	}

	phases := []*phase{
		validateFires(*fires),
		validateBoundaries("states", *states, *stateKey, *stateName),
		validateBoundaries("counties", *counties, *countyKey, ""),
	}

	failed := false
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS  %s\n", p.name)
			continue
		}
		failed = true
		fmt.Printf("FAIL  %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("      %s\n", e)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func validateFires(path string) *phase {
	p := &phase{name: "fires: " + path}
	fc := decode(p, path)
	if fc == nil {
		return p
	}

	if len(fc.Features) == 0 {
		p.errorf("no features")
		return p
	}
	for i, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			p.errorf("feature %d: geometry is %s, want Point", i, f.Geometry.GeoJSONType())
			continue
		}
		if pt.Lon() < -180 || pt.Lon() > 180 || pt.Lat() < -90 || pt.Lat() > 90 {
			p.errorf("feature %d: coordinates (%.4f, %.4f) outside lon/lat range", i, pt.Lon(), pt.Lat())
		}
	}
	return p
}

func validateBoundaries(label, path, nameKey, mustContain string) *phase {
	p := &phase{name: label + ": " + path}
	fc := decode(p, path)
	if fc == nil {
		return p
	}

	if len(fc.Features) == 0 {
		p.errorf("no features")
		return p
	}

	seen := map[string]bool{}
	for i, f := range fc.Features {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			p.errorf("feature %d: geometry is %s, want Polygon or MultiPolygon", i, f.Geometry.GeoJSONType())
			continue
		}
		name, ok := f.Properties[nameKey].(string)
		if !ok {
			p.errorf("feature %d: missing %q attribute", i, nameKey)
			continue
		}
		seen[name] = true
	}

	if mustContain != "" && !seen[mustContain] {
		p.errorf("no feature named %q under key %q", mustContain, nameKey)
	}
	return p
}

func decode(p *phase, path string) *geojson.FeatureCollection {
	data, err := os.ReadFile(path)
	if err != nil {
		p.errorf("read: %v", err)
		return nil
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		p.errorf("decode: %v", err)
		return nil
	}
	return fc
}
