// Command genmock reads the Snow map CSV files and generates the mock data
// fixtures: the flat JSON the upstream loader publishes to Kafka, and a
// converted GeoJSON layer for map checks. It runs the real domain and osgb
// packages so the converted output matches pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv-dir data/mock \
//	  -etl-out data/mock/soho_points_1854.json \
//	  -geojson-out data/mock/soho_points_1854.geojson
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/grid-geo-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/grid-geo-etl/internal/domain"
	"github.com/couchcryptid/grid-geo-etl/internal/osgb"
	"github.com/jonboulle/clockwork"
)

type csvDef struct {
	file  string
	layer string
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvDir := flag.String("csv-dir", "", "directory containing deaths.csv and pumps.csv")
	etlOut := flag.String("etl-out", "", "output path for ETL raw JSON fixture")
	geoOut := flag.String("geojson-out", "", "output path for converted GeoJSON (optional)")
	flag.Parse()

	if *csvDir == "" || *etlOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv-dir, -etl-out")
	}

	defs := []csvDef{
		{file: "deaths.csv", layer: domain.LayerDeaths},
		{file: "pumps.csv", layer: domain.LayerPumps},
	}

	// Set a fixed clock for reproducible ProcessedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(1854, time.September, 8, 12, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	conv, err := osgb.NewConverter(osgb.AiryNationalGrid)
	if err != nil {
		return err
	}

	var rawRecords []domain.RawPoint //nolint:prealloc // size depends on CSV file contents
	var converted []domain.SitePoint //nolint:prealloc // size depends on CSV file contents

	for _, d := range defs {
		recs, points, err := processCSV(filepath.Join(*csvDir, d.file), d.layer, conv)
		if err != nil {
			return fmt.Errorf("processing %s: %w", d.file, err)
		}
		rawRecords = append(rawRecords, recs...)
		converted = append(converted, points...)
		log.Printf("%s: %d records", d.layer, len(recs))
	}

	log.Printf("total: %d records", len(rawRecords))

	if err := writeJSON(*etlOut, rawRecords); err != nil {
		return fmt.Errorf("writing ETL fixture: %w", err)
	}
	log.Printf("wrote ETL fixture: %s", *etlOut)

	if *geoOut != "" {
		if err := writeGeoJSON(*geoOut, converted); err != nil {
			return fmt.Errorf("writing GeoJSON: %w", err)
		}
		log.Printf("wrote GeoJSON: %s", *geoOut)
	}

	printStats(converted)
	return nil
}

func processCSV(path, layer string, conv domain.GridConverter) ([]domain.RawPoint, []domain.SitePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	recs, err := csvfile.Read(f, layer)
	if err != nil {
		return nil, nil, err
	}
	if len(recs) == 0 {
		return nil, nil, fmt.Errorf("no data rows")
	}

	points := make([]domain.SitePoint, 0, len(recs))
	for _, rec := range recs {
		// Same path as the pipeline: raw JSON in, converted point out.
		rawJSON, err := json.Marshal(rec)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal record: %w", err)
		}
		parsed, err := domain.ParseRawEvent(domain.RawEvent{Value: rawJSON})
		if err != nil {
			return nil, nil, fmt.Errorf("parse raw event: %w", err)
		}
		point, err := domain.ConvertSite(parsed, conv)
		if err != nil {
			return nil, nil, err
		}
		points = append(points, point)
	}
	return recs, points, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func writeGeoJSON(path string, points []domain.SitePoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := csvfile.WriteGeoJSON(f, points); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printStats(points []domain.SitePoint) {
	s := domain.Summarize(points)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total points: %d\n", len(points))
	fmt.Printf("Death locations: %d, total deaths: %d, pumps: %d\n", s.DeathLocations, s.TotalDeaths, s.Pumps)
	fmt.Printf("Centre: %.9f, %.9f\n", s.Center.Lat, s.Center.Lon)

	minLat, maxLat, minLon, maxLon := 90.0, -90.0, 180.0, -180.0
	for _, p := range points {
		minLat = min(minLat, p.Geo.Lat)
		maxLat = max(maxLat, p.Geo.Lat)
		minLon = min(minLon, p.Geo.Lon)
		maxLon = max(maxLon, p.Geo.Lon)
	}
	fmt.Printf("Bounds: lat %.6f..%.6f, lon %.6f..%.6f\n", minLat, maxLat, minLon, maxLon)

	fmt.Println("\nCatchments:")
	for _, c := range s.Catchments {
		fmt.Printf("  pump %s: %d locations, %d deaths, mean %.1f m\n", c.PumpSourceID, c.Locations, c.Deaths, c.MeanDistanceM)
	}

	for _, p := range points {
		if p.Layer != domain.LayerPumps {
			continue
		}
		fmt.Printf("\nFirst pump record:\n")
		fmt.Printf("  ID: %s (source %s)\n", p.ID, p.SourceID)
		fmt.Printf("  Grid: %.3f E, %.3f N\n", p.Grid.Easting, p.Grid.Northing)
		fmt.Printf("  Lat: %.9f, Lon: %.9f\n", p.Geo.Lat, p.Geo.Lon)
		break
	}
}
