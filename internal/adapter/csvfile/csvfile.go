// Package csvfile reads the map's point CSVs and writes converted points as
// CSV or GeoJSON.
package csvfile

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/grid-geo-etl/internal/domain"
)

// Read parses a point CSV with POINT_X and POINT_Y columns and optional Id,
// Count and layer columns. layer is used for rows without a layer column
// value. Header matching is case-insensitive.
func Read(r io.Reader, layer string) ([]domain.RawPoint, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty csv")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"point_x", "point_y"} {
		if _, ok := colIdx[required]; !ok {
			return nil, fmt.Errorf("csv header missing %s column", strings.ToUpper(required))
		}
	}

	var points []domain.RawPoint
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if isBlank(row) {
			continue
		}

		rec := domain.RawPoint{
			Layer:    get(row, colIdx, "layer"),
			ID:       get(row, colIdx, "id"),
			Easting:  get(row, colIdx, "point_x"),
			Northing: get(row, colIdx, "point_y"),
			Count:    get(row, colIdx, "count"),
		}
		if rec.Layer == "" {
			rec.Layer = layer
		}
		points = append(points, rec)
	}
	return points, nil
}

var csvHeader = []string{"Id", "layer", "POINT_X", "POINT_Y", "Count", "latitude", "longitude"}

// Write emits converted points in the input column layout with latitude and
// longitude appended.
func Write(w io.Writer, points []domain.SitePoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range points {
		row := []string{
			p.SourceID,
			p.Layer,
			formatFloat(p.Grid.Easting),
			formatFloat(p.Grid.Northing),
			strconv.Itoa(p.Count),
			formatFloat(p.Geo.Lat),
			formatFloat(p.Geo.Lon),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", p.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Geometry   geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// WriteGeoJSON emits a FeatureCollection of Point features. Coordinates are
// [longitude, latitude] as GeoJSON requires.
func WriteGeoJSON(w io.Writer, points []domain.SitePoint) error {
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(points))}
	for _, p := range points {
		props := map[string]any{
			"layer":    p.Layer,
			"count":    p.Count,
			"easting":  p.Grid.Easting,
			"northing": p.Grid.Northing,
		}
		if p.SourceID != "" {
			props["source_id"] = p.SourceID
		}
		if p.FormattedAddress != "" {
			props["address"] = p.FormattedAddress
		}
		fc.Features = append(fc.Features, feature{
			Type:       "Feature",
			ID:         p.ID,
			Geometry:   geometry{Type: "Point", Coordinates: [2]float64{p.Geo.Lon, p.Geo.Lat}},
			Properties: props,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	return nil
}

func get(row []string, colIdx map[string]int, col string) string {
	i, ok := colIdx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
