package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/grid-geo-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/grid-geo-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/grid-geo-etl/internal/domain"
	"github.com/spf13/cobra"
)

// Output formats accepted by --format.
const (
	formatCSV     = "csv"
	formatJSON    = "json"
	formatGeoJSON = "geojson"
)

func newConvertCmd(opts *options) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Convert point CSV files to latitude/longitude",
		Long: `Convert reads one or more point CSV files and writes every point with its
latitude and longitude appended. Rows that fail to parse or convert are
reported on stderr and skipped unless --strict is set.

With --db the converted points are also upserted into a SQLite database.`,
		Example: `  # Convert the death and pump files to GeoJSON
  gridconv convert death.csv Pumps.csv --format geojson -o snow.geojson

  # Convert and store for later table/summary runs
  gridconv convert death.csv Pumps.csv --db data/points.db`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			points, failures, err := convertFiles(ctx, opts, args)
			reportFailures(cmd.ErrOrStderr(), failures)
			if err != nil {
				return err
			}

			if opts.db != "" {
				store, err := sqlite.Open(ctx, opts.db)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				if err := store.LoadBatch(ctx, points); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			if err := writePoints(w, format, points); err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "converted %d points, skipped %d\n", len(points), len(failures))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", formatCSV, "output format (csv|json|geojson)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{formatCSV, formatJSON, formatGeoJSON}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func writePoints(w io.Writer, format string, points []domain.SitePoint) error {
	switch format {
	case formatCSV:
		return csvfile.Write(w, points)
	case formatGeoJSON:
		return csvfile.WriteGeoJSON(w, points)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if points == nil {
			points = []domain.SitePoint{}
		}
		return enc.Encode(points)
	default:
		return fmt.Errorf("unknown format %q: must be csv, json or geojson", format)
	}
}
