// Package cli implements the gridconv command line tool: batch conversion of
// National Grid point files plus the tabular and summary views of the map
// data.
package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	projection string
	workers    int
	strict     bool
	db         string
	layer      string
}

// NewRootCmd creates the gridconv root command.
func NewRootCmd(version string) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "gridconv",
		Short: "Convert OSGB36 National Grid points to latitude/longitude",
		Long: `gridconv converts easting/northing point files (POINT_X, POINT_Y columns)
to latitude/longitude on the same ellipsoid, and reports on the converted
cholera map data.

No datum shift is applied: results are OSGB36 coordinates, which differ from
WGS84 by up to about 120 m.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.projection, "projection", "", "YAML projection file (default: OSGB36 National Grid)")
	flags.IntVar(&opts.workers, "workers", runtime.NumCPU(), "number of concurrent conversion workers")
	flags.BoolVar(&opts.strict, "strict", false, "fail if any point cannot be parsed or converted")
	flags.StringVar(&opts.db, "db", "", "SQLite database of converted points")
	flags.StringVar(&opts.layer, "layer", "", "layer for files without a layer column (deaths|pumps); inferred from the file name when empty")

	rootCmd.AddCommand(newConvertCmd(opts))
	rootCmd.AddCommand(newTableCmd(opts))
	rootCmd.AddCommand(newSummaryCmd(opts))

	return rootCmd
}
