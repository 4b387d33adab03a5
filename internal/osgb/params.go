package osgb

import (
	"fmt"
	"math"
)

const degToRad = math.Pi / 180

// Params defines a Transverse Mercator grid on a reference ellipsoid.
// Angles are in radians, lengths in metres.
type Params struct {
	Name string

	A  float64 // semi-major axis
	B  float64 // semi-minor axis
	F0 float64 // central meridian scale factor

	Lat0 float64 // true origin latitude
	Lon0 float64 // true origin longitude (central meridian)
	N0   float64 // northing of true origin
	E0   float64 // easting of true origin
}

// AiryNationalGrid is the Ordnance Survey National Grid on the Airy 1830
// ellipsoid (OSGB36).
var AiryNationalGrid = Params{
	Name: "OSGB36 National Grid (Airy 1830)",
	A:    6377563.396,
	B:    6356256.909,
	F0:   0.9996012717,
	Lat0: 49 * degToRad,
	Lon0: -2 * degToRad,
	N0:   -100000,
	E0:   400000,
}

// Origin returns the grid coordinate of the true origin.
func (p Params) Origin() Planar {
	return Planar{Easting: p.E0, Northing: p.N0}
}

// Validate reports whether the parameters describe a usable ellipsoid and grid.
func (p Params) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"a", p.A}, {"b", p.B}, {"F0", p.F0},
		{"lat0", p.Lat0}, {"lon0", p.Lon0}, {"N0", p.N0}, {"E0", p.E0},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &ConfigurationError{Params: p.Name, Reason: fmt.Sprintf("%s is not finite", f.name)}
		}
	}

	switch {
	case p.A <= 0:
		return &ConfigurationError{Params: p.Name, Reason: fmt.Sprintf("semi-major axis must be positive, got %g", p.A)}
	case p.B <= 0:
		return &ConfigurationError{Params: p.Name, Reason: fmt.Sprintf("semi-minor axis must be positive, got %g", p.B)}
	case p.B > p.A:
		return &ConfigurationError{Params: p.Name, Reason: fmt.Sprintf("semi-minor axis %g exceeds semi-major axis %g", p.B, p.A)}
	case p.F0 <= 0:
		return &ConfigurationError{Params: p.Name, Reason: fmt.Sprintf("scale factor must be positive, got %g", p.F0)}
	}
	return nil
}

// ellipsoid holds the quantities derived once per Params.
type ellipsoid struct {
	e2  float64 // eccentricity squared
	n   float64 // third flattening
	aF0 float64
	bF0 float64

	// meridional arc series coefficients
	ma, mb, mc, md float64
}

func deriveEllipsoid(p Params) ellipsoid {
	n := (p.A - p.B) / (p.A + p.B)
	n2 := n * n
	n3 := n2 * n
	return ellipsoid{
		e2:  (p.A*p.A - p.B*p.B) / (p.A * p.A),
		n:   n,
		aF0: p.A * p.F0,
		bF0: p.B * p.F0,
		ma:  1 + n + 5.0/4*n2 + 5.0/4*n3,
		mb:  3*n + 3*n2 + 21.0/8*n3,
		mc:  15.0/8*n2 + 15.0/8*n3,
		md:  35.0 / 24 * n3,
	}
}

// meridionalArc returns the developed arc of the central meridian from lat0
// to lat, scaled by F0.
func (e ellipsoid) meridionalArc(lat, lat0 float64) float64 {
	dLat := lat - lat0
	sLat := lat + lat0
	return e.bF0 * (e.ma*dLat -
		e.mb*math.Sin(dLat)*math.Cos(sLat) +
		e.mc*math.Sin(2*dLat)*math.Cos(2*sLat) -
		e.md*math.Sin(3*dLat)*math.Cos(3*sLat))
}
