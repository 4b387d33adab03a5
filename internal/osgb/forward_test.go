package osgb

import "math"

// forward projects latitude/longitude (degrees) onto the grid using the
// Ordnance Survey series I..VI. It exists only to check the inverse.
func forward(c *Converter, g Geographic) Planar {
	pr := c.params
	e := c.ell

	lat := g.Lat * degToRad
	lon := g.Lon * degToRad

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	tanLat := math.Tan(lat)
	t2 := tanLat * tanLat
	t4 := t2 * t2

	w := 1 - e.e2*sinLat*sinLat
	v := e.aF0 / math.Sqrt(w)
	rho := e.aF0 * (1 - e.e2) / math.Pow(w, 1.5)
	eta2 := v/rho - 1

	cos3 := cosLat * cosLat * cosLat
	cos5 := cos3 * cosLat * cosLat

	i := e.meridionalArc(lat, pr.Lat0) + pr.N0
	ii := v / 2 * sinLat * cosLat
	iii := v / 24 * sinLat * cos3 * (5 - t2 + 9*eta2)
	iiia := v / 720 * sinLat * cos5 * (61 - 58*t2 + t4)
	iv := v * cosLat
	vv := v / 6 * cos3 * (v/rho - t2)
	vi := v / 120 * cos5 * (5 - 18*t2 + t4 + 14*eta2 - 58*t2*eta2)

	p := lon - pr.Lon0
	p2 := p * p
	p3 := p2 * p
	p4 := p3 * p
	p5 := p4 * p
	p6 := p5 * p

	return Planar{
		Easting:  pr.E0 + iv*p + vv*p3 + vi*p5,
		Northing: i + ii*p2 + iii*p4 + iiia*p6,
	}
}
