package domain

import (
	"context"
	"time"

	"github.com/couchcryptid/grid-geo-etl/internal/osgb"
)

// Layers of the cholera map.
const (
	LayerDeaths = "deaths"
	LayerPumps  = "pumps"
)

// Geocoding provenance recorded on SitePoint.GeoSource.
const (
	GeoSourceReverse  = "reverse"
	GeoSourceOriginal = "original"
	GeoSourceFailed   = "failed"
)

// RawPoint is the flat JSON structure produced by the upstream loader. Field
// names follow the CSV headers.
type RawPoint struct {
	Layer    string `json:"layer"`
	ID       string `json:"Id,omitempty"`
	Easting  string `json:"POINT_X"`
	Northing string `json:"POINT_Y"`
	Count    string `json:"Count,omitempty"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// SitePoint is a map point after parsing, conversion and enrichment.
type SitePoint struct {
	ID       string          `json:"id"`
	SourceID string          `json:"source_id,omitempty"`
	Layer    string          `json:"layer"`
	Count    int             `json:"count"`
	Grid     osgb.Planar     `json:"grid"`
	Geo      osgb.Geographic `json:"geo"`

	// Reverse geocoding enrichment.
	FormattedAddress string  `json:"formatted_address,omitempty"`
	PlaceName        string  `json:"place_name,omitempty"`
	GeoConfidence    float64 `json:"geo_confidence,omitempty"`
	GeoSource        string  `json:"geo_source,omitempty"`

	RawPayload  []byte    `json:"-"`
	ProcessedAt time.Time `json:"processed_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
