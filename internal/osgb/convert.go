package osgb

import (
	"math"
	"sync"
)

const (
	// Tolerance is the footpoint latitude step, in radians, at which the
	// solve stops. 1e-10 rad is about 0.6 mm on the ground.
	Tolerance = 1e-10

	// DefaultMaxIterations bounds the footpoint solve. Points inside the
	// grid converge in four or five steps.
	DefaultMaxIterations = 100
)

// Planar is a grid coordinate in metres.
type Planar struct {
	Easting  float64 `json:"easting"`
	Northing float64 `json:"northing"`
}

// Geographic is a latitude/longitude pair in decimal degrees.
type Geographic struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Converter performs inverse projections for one parameter set. It holds no
// mutable state and is safe for concurrent use.
type Converter struct {
	params        Params
	ell           ellipsoid
	maxIterations int
}

// Option configures a Converter.
type Option func(*Converter)

// WithMaxIterations overrides the footpoint solve budget. Values below one
// are ignored.
func WithMaxIterations(n int) Option {
	return func(c *Converter) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// NewConverter validates params and precomputes the ellipsoid quantities.
func NewConverter(params Params, opts ...Option) (*Converter, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	c := &Converter{
		params:        params,
		ell:           deriveEllipsoid(params),
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Params returns the parameter set the converter was built with.
func (c *Converter) Params() Params { return c.params }

// maxSharedConverters bounds the converters kept for the package-level
// Convert. Parameter sets past the bound are built per call.
const maxSharedConverters = 64

var shared = struct {
	sync.RWMutex
	converters map[Params]*Converter
}{converters: make(map[Params]*Converter)}

// Convert converts a single grid coordinate. The derived ellipsoid
// quantities are computed once per parameter set and reused.
func Convert(easting, northing float64, params Params) (Geographic, error) {
	c, err := sharedConverter(params)
	if err != nil {
		return Geographic{}, err
	}
	return c.Convert(Planar{Easting: easting, Northing: northing})
}

func sharedConverter(params Params) (*Converter, error) {
	shared.RLock()
	c, ok := shared.converters[params]
	shared.RUnlock()
	if ok {
		return c, nil
	}

	c, err := NewConverter(params)
	if err != nil {
		return nil, err
	}

	shared.Lock()
	defer shared.Unlock()
	if existing, ok := shared.converters[params]; ok {
		return existing, nil
	}
	if len(shared.converters) < maxSharedConverters {
		shared.converters[params] = c
	}
	return c, nil
}

// Convert returns the geographic coordinate of p.
func (c *Converter) Convert(p Planar) (Geographic, error) {
	if !finite(p.Easting) || !finite(p.Northing) {
		return Geographic{}, &InvalidInputError{Easting: p.Easting, Northing: p.Northing}
	}

	lat, iterations, err := c.footpointLatitude(p, nil)
	if err != nil {
		return Geographic{}, err
	}

	pr := c.params
	e := c.ell

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	tanLat := math.Tan(lat)
	secLat := 1 / cosLat

	w := 1 - e.e2*sinLat*sinLat
	v := e.aF0 / math.Sqrt(w)
	rho := e.aF0 * (1 - e.e2) / math.Pow(w, 1.5)
	eta2 := v/rho - 1

	t2 := tanLat * tanLat
	t4 := t2 * t2
	t6 := t4 * t2
	v3 := v * v * v
	v5 := v3 * v * v
	v7 := v5 * v * v

	vii := tanLat / (2 * rho * v)
	viii := tanLat / (24 * rho * v3) * (5 + 3*t2 + eta2 - 9*t2*eta2)
	ix := tanLat / (720 * rho * v5) * (61 + 90*t2 + 45*t4)
	x := secLat / v
	xi := secLat / (6 * v3) * (v/rho + 2*t2)
	xii := secLat / (120 * v5) * (5 + 28*t2 + 24*t4)
	xiia := secLat / (5040 * v7) * (61 + 662*t2 + 1320*t4 + 720*t6)

	dE := p.Easting - pr.E0
	dE2 := dE * dE
	dE3 := dE2 * dE
	dE4 := dE3 * dE
	dE5 := dE4 * dE
	dE6 := dE5 * dE
	dE7 := dE6 * dE

	latOut := lat - vii*dE2 + viii*dE4 - ix*dE6
	lonOut := pr.Lon0 + x*dE - xi*dE3 + xii*dE5 - xiia*dE7

	g := Geographic{Lat: latOut / degToRad, Lon: lonOut / degToRad}
	if !finite(g.Lat) || !finite(g.Lon) {
		return Geographic{}, &ConvergenceError{
			Easting:    p.Easting,
			Northing:   p.Northing,
			Iterations: iterations,
			NonFinite:  true,
		}
	}
	return g, nil
}

// footpointLatitude solves M(lat) = N − N0 by fixed-point iteration.
// step, if non-nil, observes |Δlat| of every iteration.
func (c *Converter) footpointLatitude(p Planar, step func(float64)) (float64, int, error) {
	pr := c.params
	lat := pr.Lat0
	var delta float64
	iterations := 0

	for iterations < c.maxIterations {
		iterations++
		m := c.ell.meridionalArc(lat, pr.Lat0)
		next := (p.Northing-pr.N0-m)/c.ell.aF0 + lat
		delta = math.Abs(next - lat)
		lat = next
		if step != nil {
			step(delta)
		}
		if delta < Tolerance {
			return lat, iterations, nil
		}
		if !finite(lat) {
			break
		}
	}

	return 0, iterations, &ConvergenceError{
		Easting:    p.Easting,
		Northing:   p.Northing,
		Iterations: iterations,
		LastStep:   delta,
		NonFinite:  !finite(lat),
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
