package domain

import (
	"math"
	"sort"

	"github.com/couchcryptid/grid-geo-etl/internal/osgb"
)

// earthRadius is the IUGG mean radius in metres.
const earthRadius = 6371008.8

// Summary aggregates a converted data set the way the dashboard's summary
// page reports it.
type Summary struct {
	DeathLocations int             `json:"death_locations"`
	TotalDeaths    int             `json:"total_deaths"`
	Pumps          int             `json:"pumps"`
	Center         osgb.Geographic `json:"center"`
	Catchments     []Catchment     `json:"catchments"`
}

// Catchment collects the death locations whose nearest pump is Pump.
type Catchment struct {
	PumpID          string          `json:"pump_id"`
	PumpSourceID    string          `json:"pump_source_id,omitempty"`
	Pump            osgb.Geographic `json:"pump"`
	Locations       int             `json:"locations"`
	Deaths          int             `json:"deaths"`
	MeanDistanceM   float64         `json:"mean_distance_m"`
	DeathsWithin100 int             `json:"deaths_within_100m"`
}

// Summarize counts deaths and pumps, centres the map on the mean death
// location and assigns every death location to its nearest pump. Catchments
// are ordered by deaths, most first.
func Summarize(points []SitePoint) Summary {
	var s Summary
	var deaths, pumps []SitePoint
	for _, p := range points {
		switch p.Layer {
		case LayerDeaths:
			deaths = append(deaths, p)
		case LayerPumps:
			pumps = append(pumps, p)
		}
	}

	s.DeathLocations = len(deaths)
	s.Pumps = len(pumps)

	var sumLat, sumLon float64
	for _, d := range deaths {
		s.TotalDeaths += d.Count
		sumLat += d.Geo.Lat
		sumLon += d.Geo.Lon
	}
	if len(deaths) > 0 {
		s.Center = osgb.Geographic{Lat: sumLat / float64(len(deaths)), Lon: sumLon / float64(len(deaths))}
	}

	if len(pumps) == 0 {
		return s
	}

	s.Catchments = make([]Catchment, len(pumps))
	distanceSums := make([]float64, len(pumps))
	for i, p := range pumps {
		s.Catchments[i] = Catchment{PumpID: p.ID, PumpSourceID: p.SourceID, Pump: p.Geo}
	}

	for _, d := range deaths {
		best, bestDist := 0, math.Inf(1)
		for i, p := range pumps {
			if dist := Haversine(d.Geo, p.Geo); dist < bestDist {
				best, bestDist = i, dist
			}
		}
		c := &s.Catchments[best]
		c.Locations++
		c.Deaths += d.Count
		if bestDist <= 100 {
			c.DeathsWithin100 += d.Count
		}
		distanceSums[best] += bestDist
	}

	for i := range s.Catchments {
		if s.Catchments[i].Locations > 0 {
			s.Catchments[i].MeanDistanceM = distanceSums[i] / float64(s.Catchments[i].Locations)
		}
	}

	sort.SliceStable(s.Catchments, func(i, j int) bool {
		return s.Catchments[i].Deaths > s.Catchments[j].Deaths
	})
	return s
}

// Haversine returns the great-circle distance in metres between a and b on
// a spherical Earth.
func Haversine(a, b osgb.Geographic) float64 {
	const rad = math.Pi / 180
	lat1, lat2 := a.Lat*rad, b.Lat*rad
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * rad

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}
