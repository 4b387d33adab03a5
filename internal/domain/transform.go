package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/grid-geo-etl/internal/osgb"
)

// ErrMalformed marks records that cannot be parsed into a SitePoint.
var ErrMalformed = errors.New("malformed point")

// GridConverter converts one grid coordinate to latitude/longitude.
type GridConverter interface {
	Convert(p osgb.Planar) (osgb.Geographic, error)
}

// ParseRawEvent deserializes a RawEvent's value into a SitePoint.
func ParseRawEvent(raw RawEvent) (SitePoint, error) {
	var rec RawPoint
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return SitePoint{}, fmt.Errorf("%w: parse raw event: %w", ErrMalformed, err)
	}

	point, err := ParseRawPoint(rec)
	if err != nil {
		return SitePoint{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	point.RawPayload = raw.Value
	return point, nil
}

// ParseRawPoint validates a flat record and builds the unconverted SitePoint.
func ParseRawPoint(rec RawPoint) (SitePoint, error) {
	layer, err := NormalizeLayer(rec.Layer)
	if err != nil {
		return SitePoint{}, err
	}

	easting, err := parseCoordinate("POINT_X", rec.Easting)
	if err != nil {
		return SitePoint{}, err
	}
	northing, err := parseCoordinate("POINT_Y", rec.Northing)
	if err != nil {
		return SitePoint{}, err
	}

	count, err := parseCount(rec.Count)
	if err != nil {
		return SitePoint{}, err
	}

	sourceID := strings.TrimSpace(rec.ID)
	return SitePoint{
		ID:       GenerateID(layer, sourceID, easting, northing),
		SourceID: sourceID,
		Layer:    layer,
		Count:    count,
		Grid:     osgb.Planar{Easting: easting, Northing: northing},
	}, nil
}

// NormalizeLayer maps accepted spellings onto LayerDeaths or LayerPumps.
func NormalizeLayer(value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "deaths", "death":
		return LayerDeaths, nil
	case "pumps", "pump":
		return LayerPumps, nil
	case "":
		return "", errors.New("missing layer")
	default:
		return "", fmt.Errorf("unknown layer %q", value)
	}
}

// parseCoordinate requires a numeric value. NaN and ±Inf are accepted here
// and rejected by the converter.
func parseCoordinate(field, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing %s", field)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	return v, nil
}

func parseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse Count: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative Count %d", n)
	}
	return n, nil
}

// GenerateID produces a deterministic ID from the point's identifying fields.
func GenerateID(layer, sourceID string, easting, northing float64) string {
	input := fmt.Sprintf("%s|%s|%.3f|%.3f", layer, sourceID, easting, northing)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if layer == "" {
		return short
	}
	return layer + "-" + short
}

// ConvertSite fills in the geographic coordinate and stamps ProcessedAt.
// The point is returned unchanged on error.
func ConvertSite(point SitePoint, conv GridConverter) (SitePoint, error) {
	geo, err := conv.Convert(point.Grid)
	if err != nil {
		return point, fmt.Errorf("point %s: %w", point.ID, err)
	}
	point.Geo = geo
	point.ProcessedAt = clock.Now().UTC()
	return point, nil
}

// SerializeSitePoint marshals a SitePoint into an OutputEvent.
func SerializeSitePoint(point SitePoint) (OutputEvent, error) {
	data, err := json.Marshal(point)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize site point: %w", err)
	}
	return OutputEvent{
		Key:   []byte(point.ID),
		Value: data,
		Headers: map[string]string{
			"layer":        point.Layer,
			"processed_at": point.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}
