package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/grid-geo-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	deathsCSV = filepath.Join("..", "..", "data", "mock", "deaths.csv")
	pumpsCSV  = filepath.Join("..", "..", "data", "mock", "pumps.csv")
)

// run executes gridconv with args and returns stdout, stderr and the error.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd("test")
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRootCmd_Metadata(t *testing.T) {
	cmd := NewRootCmd("1.2.3")
	assert.Equal(t, "gridconv", cmd.Use)
	assert.Equal(t, "1.2.3", cmd.Version)

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
		assert.NotEmpty(t, c.Short, c.Name())
		assert.NotEmpty(t, c.Example, c.Name())
	}
	assert.Subset(t, names, []string{"convert", "table", "summary"})
}

func TestConvert_CSV(t *testing.T) {
	stdout, stderr, err := run(t, "convert", deathsCSV, pumpsCSV)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 21)
	assert.Equal(t, "Id,layer,POINT_X,POINT_Y,Count,latitude,longitude", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,deaths,529308.741,181031.352,3,51.512908"), lines[1])
	assert.True(t, strings.HasPrefix(lines[13], "1,pumps,529396.539,181025.063,0,51.512831"), lines[13])
	assert.Contains(t, stderr, "converted 20 points, skipped 0")
}

func TestConvert_GeoJSON(t *testing.T) {
	stdout, _, err := run(t, "convert", "--format", "geojson", pumpsCSV)
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 8)

	broad := fc.Features[0].Geometry.Coordinates
	require.Len(t, broad, 2)
	assert.InDelta(t, -0.135062143, broad[0], 1e-8)
	assert.InDelta(t, 51.512831535, broad[1], 1e-8)
}

func TestConvert_JSONToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "deaths.json")
	stdout, _, err := run(t, "convert", "--format", "json", "-o", out, deathsCSV)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var points []domain.SitePoint
	require.NoError(t, json.Unmarshal(data, &points))
	require.Len(t, points, 12)
	assert.Equal(t, domain.LayerDeaths, points[0].Layer)
	assert.InDelta(t, 51.512908164, points[0].Geo.Lat, 1e-8)
	assert.InDelta(t, -0.136324511, points[0].Geo.Lon, 1e-8)
}

func TestConvert_SkipsBadRows(t *testing.T) {
	path := writeTemp(t, "deaths.csv", "Id,POINT_X,POINT_Y,Count\n"+
		"1,529308.741,181031.352,3\n"+
		"2,abc,181025.172,2\n"+
		"3,NaN,181025.172,1\n"+
		"4,529312.164,181025.172,2\n")

	stdout, stderr, err := run(t, "convert", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "1,"))
	assert.True(t, strings.HasPrefix(lines[2], "4,"))
	assert.Contains(t, stderr, "row 2: parse POINT_X")
	assert.Contains(t, stderr, "row 3:")
	assert.Contains(t, stderr, "converted 2 points, skipped 2")
}

func TestConvert_StrictFailsOnBadRow(t *testing.T) {
	path := writeTemp(t, "deaths.csv", "Id,POINT_X,POINT_Y,Count\n"+
		"1,529308.741,181031.352,3\n"+
		"2,abc,181025.172,2\n")

	stdout, _, err := run(t, "convert", "--strict", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 points failed")
	assert.Empty(t, stdout)
}

func TestConvert_LayerFlag(t *testing.T) {
	path := writeTemp(t, "points.csv", "Id,POINT_X,POINT_Y\n1,529396.539,181025.063\n")

	_, stderr, err := run(t, "convert", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "missing layer")

	stdout, _, err := run(t, "convert", "--layer", "pumps", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "1,pumps,529396.539")
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no files", args: []string{"convert"}, want: "requires at least 1 arg"},
		{name: "missing file", args: []string{"convert", "does-not-exist.csv"}, want: "does-not-exist.csv"},
		{name: "unknown format", args: []string{"convert", "--format", "kml", pumpsCSV}, want: `unknown format "kml"`},
		{name: "bad projection", args: []string{"convert", "--projection", "missing.yaml", pumpsCSV}, want: "read projection file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConvert_ThenQueryDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "points.db")

	_, _, err := run(t, "convert", "--db", db, deathsCSV, pumpsCSV)
	require.NoError(t, err)

	stdout, _, err := run(t, "table", "--db", db, "--layer", "pumps", "--format", "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 9)
	assert.True(t, strings.EqualFold("Layer,Id,Easting,Northing,Count,Latitude,Longitude", lines[0]), lines[0])
	assert.Equal(t, "pumps,1,529396.539,181025.063,0,51.512832,-0.135062", lines[1])

	stdout, _, err = run(t, "summary", "--db", db, "--format", "json")
	require.NoError(t, err)
	var s domain.Summary
	require.NoError(t, json.Unmarshal([]byte(stdout), &s))
	assert.Equal(t, 22, s.TotalDeaths)
}

func TestTable_RejectsFilesWithDB(t *testing.T) {
	_, _, err := run(t, "table", "--db", filepath.Join(t.TempDir(), "points.db"), pumpsCSV)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not both")
}

func TestTable_Render(t *testing.T) {
	stdout, _, err := run(t, "table", deathsCSV)
	require.NoError(t, err)
	assert.Contains(t, stdout, "LAYER")
	assert.Contains(t, stdout, "LATITUDE")
	assert.Contains(t, stdout, "529308.741")
	assert.Contains(t, stdout, "51.512908")

	stdout, _, err = run(t, "table", "--format", "markdown", pumpsCSV)
	require.NoError(t, err)
	assert.Contains(t, stdout, "| pumps |")

	_, _, err = run(t, "table", "--format", "html", pumpsCSV)
	require.Error(t, err)
}

func TestSummary_JSON(t *testing.T) {
	stdout, _, err := run(t, "summary", "--format", "json", deathsCSV, pumpsCSV)
	require.NoError(t, err)

	var s domain.Summary
	require.NoError(t, json.Unmarshal([]byte(stdout), &s))
	assert.Equal(t, 12, s.DeathLocations)
	assert.Equal(t, 22, s.TotalDeaths)
	assert.Equal(t, 8, s.Pumps)
	require.Len(t, s.Catchments, 8)
	assert.Equal(t, "1", s.Catchments[0].PumpSourceID)
	assert.Equal(t, 22, s.Catchments[0].Deaths)
	assert.InDelta(t, 51.5115, s.Center.Lat, 0.004)
}

func TestSummary_Table(t *testing.T) {
	stdout, _, err := run(t, "summary", deathsCSV, pumpsCSV)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Total deaths")
	assert.Contains(t, stdout, "Map centre")
	assert.Contains(t, stdout, "WITHIN 100 M")
}

func TestLayerFromName(t *testing.T) {
	tests := map[string]string{
		"death.csv":         domain.LayerDeaths,
		"data/Deaths.CSV":   domain.LayerDeaths,
		"Pumps.csv":         domain.LayerPumps,
		"/tmp/pump_sites.c": domain.LayerPumps,
		"points.csv":        "",
	}
	for path, want := range tests {
		assert.Equal(t, want, layerFromName(path), path)
	}
}
