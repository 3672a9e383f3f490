package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/canchaya/canchaya/pkg/format"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <address>...",
	Short: "Resolve addresses to coordinates",
	Long: `Geocode looks each address up in the local cache first and then in the
geocoding service, pausing between network lookups to respect its rate limit.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGeocode,
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
	geocodeCmd.Flags().Duration("delay", -1, "Pause between network lookups (default from config)")
	geocodeCmd.Flags().Bool("hemisphere", false, "Print coordinates with N/S and E/O suffixes")
}

func runGeocode(cmd *cobra.Command, args []string) error {
	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	delay, _ := cmd.Flags().GetDuration("delay")
	if delay < 0 {
		delay = a.Config.Geocode.BatchDelay
	}
	hemisphere, _ := cmd.Flags().GetBool("hemisphere")

	results, batchErr := a.Geocoder.GeocodeBatch(cmd.Context(), args, delay)

	coords := format.CoordinateFormatter{}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ADDRESS\tCOORDINATES\tMATCH\n")
	for i, res := range results {
		if res == nil {
			fmt.Fprintf(w, "%s\t-\tnot found\n", args[i])
			continue
		}
		pos := coords.Format(res.Latitude, res.Longitude)
		if hemisphere {
			pos = coords.FormatHemisphere(res.Latitude, res.Longitude)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", args[i], pos, res.DisplayName)
	}
	w.Flush()

	if batchErr != nil {
		return fmt.Errorf("geocode stopped after %d of %d addresses: %w", len(results), len(args), batchErr)
	}
	return nil
}

