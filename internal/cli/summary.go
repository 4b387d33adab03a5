package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/couchcryptid/grid-geo-etl/internal/domain"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newSummaryCmd(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "summary [FILE...]",
		Short: "Summarize deaths and pump catchments",
		Long: `Summary reports the total deaths, the number of death locations and pumps,
the mean death location, and for each pump the deaths whose nearest pump it
is.`,
		Example: `  gridconv summary death.csv Pumps.csv
  gridconv summary --db data/points.db --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			points, failures, err := loadPoints(cmd.Context(), opts, args)
			reportFailures(cmd.ErrOrStderr(), failures)
			if err != nil {
				return err
			}
			return renderSummary(cmd.OutOrStdout(), format, domain.Summarize(points))
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "output format (table|json)")
	return cmd
}

func renderSummary(w io.Writer, format string, s domain.Summary) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "table":
	default:
		return fmt.Errorf("unknown format %q: must be table or json", format)
	}

	totals := table.NewWriter()
	totals.SetOutputMirror(w)
	totals.SetStyle(table.StyleLight)
	totals.AppendRow(table.Row{"Total deaths", s.TotalDeaths})
	totals.AppendRow(table.Row{"Death locations", s.DeathLocations})
	totals.AppendRow(table.Row{"Pumps", s.Pumps})
	totals.AppendRow(table.Row{"Map centre", fmt.Sprintf("%.6f, %.6f", s.Center.Lat, s.Center.Lon)})
	totals.Render()

	if len(s.Catchments) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Pump", "Latitude", "Longitude", "Locations", "Deaths", "Within 100 m", "Mean distance (m)"})
	for _, c := range s.Catchments {
		id := c.PumpSourceID
		if id == "" {
			id = c.PumpID
		}
		t.AppendRow(table.Row{
			id,
			strconv.FormatFloat(c.Pump.Lat, 'f', 6, 64),
			strconv.FormatFloat(c.Pump.Lon, 'f', 6, 64),
			c.Locations,
			c.Deaths,
			c.DeathsWithin100,
			strconv.FormatFloat(c.MeanDistanceM, 'f', 1, 64),
		})
	}
	t.AppendFooter(table.Row{"", "", "", s.DeathLocations, s.TotalDeaths})
	t.Render()
	return nil
}
