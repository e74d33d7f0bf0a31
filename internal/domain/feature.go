package domain

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FireRecord is a single wildfire ignition point in the working CRS plus
// the attributes it arrived with. Immutable once loaded.
type FireRecord struct {
	Point      orb.Point
	Properties geojson.Properties
}

// FireCollection holds the loaded fire points and the CRS they live in.
type FireCollection struct {
	CRS     string
	Records []FireRecord
}

// Boundary is an administrative polygon (state or county). Polygon source
// geometries are normalized to single-element MultiPolygons at load time so
// downstream code handles one shape.
type Boundary struct {
	Name       string
	Geometry   orb.MultiPolygon
	Properties geojson.Properties
}

// BoundaryCollection holds administrative boundaries keyed by the attribute
// name they were extracted from.
type BoundaryCollection struct {
	CRS        string
	NameKey    string
	Boundaries []Boundary
}

// Bound returns the combined bounding box of all boundaries, or a zero
// bound for an empty collection.
func (c BoundaryCollection) Bound() orb.Bound {
	var b orb.Bound
	for i, boundary := range c.Boundaries {
		if i == 0 {
			b = boundary.Geometry.Bound()
			continue
		}
		b = b.Union(boundary.Geometry.Bound())
	}
	return b
}

// CountyFireCount is a county boundary joined with its fire tally. Count is
// zero, never absent, for counties without fires.
type CountyFireCount struct {
	Boundary
	Count int
}

// CountColumn is the attribute name used for the tally on export and in the
// interactive map, kept from the original analysis output.
const CountColumn = "Number of Fires"

// ExtractState filters states down to those whose name attribute exactly
// equals name, typically the singleton Maine record. No match yields an
// empty collection; the caller decides whether that is fatal.
func ExtractState(states BoundaryCollection, name string) BoundaryCollection {
	out := BoundaryCollection{CRS: states.CRS, NameKey: states.NameKey}
	for _, b := range states.Boundaries {
		if b.Name == name {
			out.Boundaries = append(out.Boundaries, b)
		}
	}
	return out
}
