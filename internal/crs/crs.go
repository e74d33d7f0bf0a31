// Package crs resolves coordinate reference system codes to coordinate
// transforms. Input datasets arrive as EPSG:4326 longitude/latitude; every
// spatial predicate downstream runs in a planar working CRS, so the loader
// projects each collection through a Transform from this registry before
// anything else touches it.
package crs

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Transform converts coordinates between EPSG:4326 and a working CRS.
// Forward maps lon/lat into the working CRS; Inverse maps back.
type Transform struct {
	Code    string
	Forward orb.Projection
	Inverse orb.Projection
}

// Geometry projects g into the working CRS in place and returns it.
func (t Transform) Geometry(g orb.Geometry) orb.Geometry {
	return project.Geometry(g, t.Forward)
}

// GeometryToWGS84 projects g from the working CRS back to lon/lat in place.
func (t Transform) GeometryToWGS84(g orb.Geometry) orb.Geometry {
	return project.Geometry(g, t.Inverse)
}

// Lookup returns the transform for an EPSG code. Supported codes are
// EPSG:4326 (identity), EPSG:3857 (web mercator) and EPSG:2802 (Maine State
// Plane east zone, meters), the working CRS used by the analysis.
func Lookup(code string) (Transform, error) {
	switch code {
	case "EPSG:4326":
		identity := func(p orb.Point) orb.Point { return p }
		return Transform{Code: code, Forward: identity, Inverse: identity}, nil
	case "EPSG:3857":
		return Transform{
			Code:    code,
			Forward: project.WGS84.ToMercator,
			Inverse: project.Mercator.ToWGS84,
		}, nil
	case "EPSG:2802":
		tm := maineEast()
		return Transform{Code: code, Forward: tm.forward, Inverse: tm.inverse}, nil
	default:
		return Transform{}, fmt.Errorf("unsupported CRS %q", code)
	}
}

// transverseMercator implements the ellipsoidal transverse Mercator
// projection (Snyder, Map Projections: A Working Manual, eqs. 8-9 to 8-25)
// on the GRS80 ellipsoid. orb/project only ships WGS84<->web mercator, so
// state plane zones are computed here directly.
type transverseMercator struct {
	lat0, lon0 float64 // projection origin, radians
	k0         float64 // scale factor at the central meridian
	fe, fn     float64 // false easting/northing, meters
	m0         float64 // meridional arc at lat0
}

const (
	grs80A  = 6378137.0
	grs80F  = 1 / 298.257222101
	grs80E2 = grs80F * (2 - grs80F)
)

// maineEast returns the Maine State Plane east zone (EPSG:2802) projection:
// origin 43°40'N 68°30'W, scale 0.9999, false easting 300km.
func maineEast() *transverseMercator {
	tm := &transverseMercator{
		lat0: (43 + 40.0/60) * math.Pi / 180,
		lon0: -68.5 * math.Pi / 180,
		k0:   0.9999,
		fe:   300000,
		fn:   0,
	}
	tm.m0 = meridionalArc(tm.lat0)
	return tm
}

// meridionalArc returns the distance along the meridian from the equator.
func meridionalArc(phi float64) float64 {
	e2 := grs80E2
	e4 := e2 * e2
	e6 := e4 * e2
	return grs80A * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}

func (tm *transverseMercator) forward(p orb.Point) orb.Point {
	phi := p.Lat() * math.Pi / 180
	lam := p.Lon() * math.Pi / 180

	e2 := grs80E2
	ep2 := e2 / (1 - e2)
	sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)

	n := grs80A / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := math.Tan(phi) * math.Tan(phi)
	c := ep2 * cosPhi * cosPhi
	a := (lam - tm.lon0) * cosPhi
	m := meridionalArc(phi)

	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	x := tm.fe + tm.k0*n*(a+
		(1-t+c)*a3/6+
		(5-18*t+t*t+72*c-58*ep2)*a5/120)
	y := tm.fn + tm.k0*(m-tm.m0+n*math.Tan(phi)*(a2/2+
		(5-t+9*c+4*c*c)*a4/24+
		(61-58*t+t*t+600*c-330*ep2)*a6/720))

	return orb.Point{x, y}
}

func (tm *transverseMercator) inverse(p orb.Point) orb.Point {
	e2 := grs80E2
	e4 := e2 * e2
	e6 := e4 * e2
	ep2 := e2 / (1 - e2)

	m := tm.m0 + (p.Y()-tm.fn)/tm.k0
	mu := m / (grs80A * (1 - e2/4 - 3*e4/64 - 5*e6/256))

	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
	phi1 := mu +
		(3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu) +
		(1097*e1*e1*e1*e1/512)*math.Sin(8*mu)

	sinPhi1, cosPhi1 := math.Sin(phi1), math.Cos(phi1)
	c1 := ep2 * cosPhi1 * cosPhi1
	t1 := math.Tan(phi1) * math.Tan(phi1)
	n1 := grs80A / math.Sqrt(1-e2*sinPhi1*sinPhi1)
	r1 := grs80A * (1 - e2) / math.Pow(1-e2*sinPhi1*sinPhi1, 1.5)
	d := (p.X() - tm.fe) / (n1 * tm.k0)

	d2 := d * d
	d3 := d2 * d
	d4 := d3 * d
	d5 := d4 * d
	d6 := d5 * d

	phi := phi1 - (n1*math.Tan(phi1)/r1)*(d2/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d4/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d6/720)
	lam := tm.lon0 + (d-
		(1+2*t1+c1)*d3/6+
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d5/120)/cosPhi1

	return orb.Point{lam * 180 / math.Pi, phi * 180 / math.Pi}
}
