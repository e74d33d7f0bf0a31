package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(minX, minY, maxX, maxY float64) orb.MultiPolygon {
	return orb.MultiPolygon{{
		{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}},
	}}
}

func countySet(names ...string) BoundaryCollection {
	c := BoundaryCollection{CRS: "EPSG:4326", NameKey: "Name"}
	for i, name := range names {
		offset := float64(2 * i)
		c.Boundaries = append(c.Boundaries, Boundary{
			Name:     name,
			Geometry: square(offset, offset, offset+1, offset+1),
		})
	}
	return c
}

func fireSet(points ...orb.Point) FireCollection {
	f := FireCollection{CRS: "EPSG:4326"}
	for _, p := range points {
		f.Records = append(f.Records, FireRecord{Point: p})
	}
	return f
}

func TestCountFiresByCounty_TwoSquares(t *testing.T) {
	// County A is the unit square at the origin, county B the unit square
	// at (2,2). Two fires inside A, one at (5,5) outside both.
	counties := countySet("A", "B")
	fires := fireSet(
		orb.Point{0.5, 0.5},
		orb.Point{0.5, 0.5},
		orb.Point{5, 5},
	)

	counts, summary := CountFiresByCounty(fires, counties)

	require.Len(t, counts, 2)
	assert.Equal(t, "A", counts[0].Name)
	assert.Equal(t, 2, counts[0].Count)
	assert.Equal(t, "B", counts[1].Name)
	assert.Equal(t, 0, counts[1].Count)
	assert.Equal(t, JoinSummary{Joined: 2, Dropped: 1}, summary)
}

func TestCountFiresByCounty_LeftJoinCompleteness(t *testing.T) {
	// Every input county appears exactly once in input order, fires or not.
	counties := countySet("Androscoggin", "Aroostook", "Cumberland", "Franklin")
	fires := fireSet(orb.Point{2.5, 2.5}) // inside the second county only

	counts, _ := CountFiresByCounty(fires, counties)

	var names []string
	for _, c := range counts {
		names = append(names, c.Name)
	}
	want := []string{"Androscoggin", "Aroostook", "Cumberland", "Franklin"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("county order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, counts[1].Count)
}

func TestCountFiresByCounty_CountConservation(t *testing.T) {
	counties := countySet("A", "B", "C")
	fires := fireSet(
		orb.Point{0.1, 0.1},
		orb.Point{0.9, 0.9},
		orb.Point{2.5, 2.5},
		orb.Point{4.5, 4.5},
		orb.Point{-3, -3}, // outside
		orb.Point{1.5, 1.5}, // between counties
	)

	counts, summary := CountFiresByCounty(fires, counties)

	total := 0
	for _, c := range counts {
		total += c.Count
	}
	assert.Equal(t, summary.Joined, total)
	assert.Equal(t, len(fires.Records), summary.Joined+summary.Dropped)
	assert.Equal(t, 2, summary.Dropped)
}

func TestCountFiresByCounty_NoFires(t *testing.T) {
	counties := countySet("A", "B")

	counts, summary := CountFiresByCounty(FireCollection{}, counties)

	require.Len(t, counts, 2)
	for _, c := range counts {
		assert.Zero(t, c.Count)
	}
	assert.Zero(t, summary.Joined)
	assert.Zero(t, summary.Dropped)
}

func TestCountFiresByCounty_NoCounties(t *testing.T) {
	fires := fireSet(orb.Point{0.5, 0.5})

	counts, summary := CountFiresByCounty(fires, BoundaryCollection{})

	assert.Empty(t, counts)
	assert.Equal(t, JoinSummary{Joined: 0, Dropped: 1}, summary)
}

func TestCountFiresByCounty_HoleExcluded(t *testing.T) {
	// A point inside a polygon's hole is not contained.
	outer := orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	hole := orb.Ring{{4, 4}, {4, 6}, {6, 6}, {6, 4}, {4, 4}}
	counties := BoundaryCollection{Boundaries: []Boundary{{
		Name:     "Donut",
		Geometry: orb.MultiPolygon{{outer, hole}},
	}}}
	fires := fireSet(orb.Point{5, 5}, orb.Point{1, 1})

	counts, summary := CountFiresByCounty(fires, counties)

	require.Len(t, counts, 1)
	assert.Equal(t, 1, counts[0].Count)
	assert.Equal(t, 1, summary.Dropped)
}
