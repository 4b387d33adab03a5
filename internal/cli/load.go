package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/grid-geo-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/grid-geo-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/grid-geo-etl/internal/batch"
	"github.com/couchcryptid/grid-geo-etl/internal/cache"
	"github.com/couchcryptid/grid-geo-etl/internal/config"
	"github.com/couchcryptid/grid-geo-etl/internal/domain"
	"github.com/couchcryptid/grid-geo-etl/internal/osgb"
)

const convertCacheSize = 10000

// failure records one input row that did not make it into the output.
type failure struct {
	file string
	row  int // 1-based data row, header excluded
	err  error
}

func (f failure) String() string {
	return fmt.Sprintf("%s row %d: %v", f.file, f.row, f.err)
}

// convertFiles reads, parses and converts every row of files, keeping input
// order. Rows that fail are returned separately; with --strict any failure
// is an error.
func convertFiles(ctx context.Context, opts *options, files []string) ([]domain.SitePoint, []failure, error) {
	if len(files) == 0 {
		return nil, nil, errors.New("no input files")
	}

	params, err := config.LoadProjection(opts.projection)
	if err != nil {
		return nil, nil, err
	}
	grid, err := osgb.NewConverter(params)
	if err != nil {
		return nil, nil, err
	}
	converter := cache.NewConverter(grid, convertCacheSize, nil)

	type row struct {
		file string
		n    int
		rec  domain.RawPoint
	}
	var rows []row
	for _, path := range files {
		recs, err := readFile(path, opts.layer)
		if err != nil {
			return nil, nil, err
		}
		for i, rec := range recs {
			rows = append(rows, row{file: path, n: i + 1, rec: rec})
		}
	}

	results := batch.Map(ctx, rows, opts.workers, func(_ context.Context, r row) (domain.SitePoint, error) {
		point, err := domain.ParseRawPoint(r.rec)
		if err != nil {
			return domain.SitePoint{}, err
		}
		return domain.ConvertSite(point, converter)
	})
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	points, failed := batch.Split(results)
	failures := make([]failure, len(failed))
	for i, f := range failed {
		failures[i] = failure{file: rows[f.Index].file, row: rows[f.Index].n, err: f.Err}
	}

	if opts.strict && len(failures) > 0 {
		return nil, failures, fmt.Errorf("%d of %d points failed; first: %s", len(failures), len(rows), failures[0])
	}
	return points, failures, nil
}

// loadPoints returns converted points from --db when set, otherwise by
// converting files.
func loadPoints(ctx context.Context, opts *options, files []string) ([]domain.SitePoint, []failure, error) {
	if opts.db == "" {
		return convertFiles(ctx, opts, files)
	}
	if len(files) > 0 {
		return nil, nil, errors.New("use either --db or input files, not both")
	}

	store, err := sqlite.Open(ctx, opts.db)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = store.Close() }()

	layer := ""
	if opts.layer != "" {
		if layer, err = domain.NormalizeLayer(opts.layer); err != nil {
			return nil, nil, err
		}
	}
	points, err := store.Points(ctx, layer)
	return points, nil, err
}

func readFile(path, layer string) ([]domain.RawPoint, error) {
	if layer == "" {
		layer = layerFromName(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	recs, err := csvfile.Read(f, layer)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// layerFromName maps death.csv / Pumps.csv style names onto a layer.
func layerFromName(path string) string {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(name, "death"):
		return domain.LayerDeaths
	case strings.Contains(name, "pump"):
		return domain.LayerPumps
	default:
		return ""
	}
}

func reportFailures(w io.Writer, failures []failure) {
	for _, f := range failures {
		fmt.Fprintf(w, "skipped %s\n", f)
	}
}
