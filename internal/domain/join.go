package domain

import (
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb/planar"
)

const (
	dimensions  = 2
	minChildren = 2
	maxChildren = 8

	// pointTolerance pads degenerate query rects; rtreego rejects
	// zero-length sides.
	pointTolerance = 0.001
)

// countyItem wraps a county index for R-tree lookup.
type countyItem struct {
	index int
	rect  rtreego.Rect
}

func (ci *countyItem) Bounds() rtreego.Rect { return ci.rect }

// JoinSummary reports how many fire points landed inside a county and how
// many fell outside every county and were dropped.
type JoinSummary struct {
	Joined  int
	Dropped int
}

// CountFiresByCounty joins fire points to county polygons by strict
// containment and tallies points per county. The result carries every input
// county exactly once, in input order, with a zero count for counties that
// contain no fires. County bounding boxes go into an R-tree so each point
// only runs the exact polygon test against plausible candidates.
func CountFiresByCounty(fires FireCollection, counties BoundaryCollection) ([]CountyFireCount, JoinSummary) {
	tree := rtreego.NewTree(dimensions, minChildren, maxChildren)
	for i, county := range counties.Boundaries {
		b := county.Geometry.Bound()
		lengths := []float64{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1]}
		for j, l := range lengths {
			if l <= 0 {
				lengths[j] = pointTolerance
			}
		}
		rect, err := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, lengths)
		if err != nil {
			continue
		}
		tree.Insert(&countyItem{index: i, rect: rect})
	}

	counts := make([]int, len(counties.Boundaries))
	var summary JoinSummary
	for _, fire := range fires.Records {
		query := rtreego.Point{fire.Point.X(), fire.Point.Y()}.ToRect(pointTolerance)
		matched := false
		for _, candidate := range tree.SearchIntersect(query) {
			item := candidate.(*countyItem)
			if planar.MultiPolygonContains(counties.Boundaries[item.index].Geometry, fire.Point) {
				counts[item.index]++
				matched = true
				break
			}
		}
		if matched {
			summary.Joined++
		} else {
			summary.Dropped++
		}
	}

	out := make([]CountyFireCount, len(counties.Boundaries))
	for i, county := range counties.Boundaries {
		out[i] = CountyFireCount{Boundary: county, Count: counts[i]}
	}
	return out, summary
}
