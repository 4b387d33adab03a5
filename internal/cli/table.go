package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/couchcryptid/grid-geo-etl/internal/domain"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func newTableCmd(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "table [FILE...]",
		Short: "Show converted points as a table",
		Example: `  gridconv table death.csv
  gridconv table --db data/points.db --layer pumps --format csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			points, failures, err := loadPoints(cmd.Context(), opts, args)
			reportFailures(cmd.ErrOrStderr(), failures)
			if err != nil {
				return err
			}
			return renderPointTable(cmd.OutOrStdout(), format, points)
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "output format (table|csv|markdown)")
	return cmd
}

func renderPointTable(w io.Writer, format string, points []domain.SitePoint) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Layer", "Id", "Easting", "Northing", "Count", "Latitude", "Longitude"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	for _, p := range points {
		t.AppendRow(table.Row{
			p.Layer,
			p.SourceID,
			strconv.FormatFloat(p.Grid.Easting, 'f', 3, 64),
			strconv.FormatFloat(p.Grid.Northing, 'f', 3, 64),
			p.Count,
			strconv.FormatFloat(p.Geo.Lat, 'f', 6, 64),
			strconv.FormatFloat(p.Geo.Lon, 'f', 6, 64),
		})
	}

	switch format {
	case "table":
		t.Render()
	case "csv":
		t.RenderCSV()
	case "markdown":
		t.RenderMarkdown()
	default:
		return fmt.Errorf("unknown format %q: must be table, csv or markdown", format)
	}
	return nil
}
