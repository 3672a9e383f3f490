package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/canchaya/canchaya/pkg/format"
)

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Render values the way the app displays them",
}

var formatPriceCmd = &cobra.Command{
	Use:   "price <amount>",
	Short: "Format a price, e.g. 1500 -> $1.500,00",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseFloatArg(args[0])
		if err != nil {
			return err
		}
		return printFormatted(cmd, format.PriceFormatter{Locale: formatLocale(cmd)}.Format(v))
	},
}

var formatCompactCmd = &cobra.Command{
	Use:   "compact <amount>",
	Short: "Format a price with K/M suffixes, e.g. 2500000 -> $2.5M",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseFloatArg(args[0])
		if err != nil {
			return err
		}
		return printFormatted(cmd, format.CompactPriceFormatter{Locale: formatLocale(cmd)}.Format(v))
	},
}

var formatNumberCmd = &cobra.Command{
	Use:   "number <value>",
	Short: "Format a number with locale grouping",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseFloatArg(args[0])
		if err != nil {
			return err
		}
		decimals, _ := cmd.Flags().GetInt("decimals")
		return printFormatted(cmd, format.NumberFormatter{Locale: formatLocale(cmd), Decimals: decimals}.Format(v))
	},
}

var formatDateCmd = &cobra.Command{
	Use:   "date <iso-date>",
	Short: "Format an ISO-8601 date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		style, _ := cmd.Flags().GetString("style")
		f := format.DateFormatter{Style: format.ParseDateStyle(style), Locale: formatLocale(cmd)}
		return printFormatted(cmd, f.FormatString(args[0]))
	},
}

var formatRatingCmd = &cobra.Command{
	Use:   "rating <value>",
	Short: "Format a rating, optionally as stars",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseFloatArg(args[0])
		if err != nil {
			return err
		}
		stars, _ := cmd.Flags().GetBool("stars")
		f := format.RatingFormatter{Locale: formatLocale(cmd)}
		if stars {
			return printFormatted(cmd, f.StarString(v))
		}
		return printFormatted(cmd, f.Format(v))
	},
}

var formatCoordsCmd = &cobra.Command{
	Use:   "coords <lat> <lon>",
	Short: "Format a coordinate pair",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, err := parseFloatArg(args[0])
		if err != nil {
			return err
		}
		lon, err := parseFloatArg(args[1])
		if err != nil {
			return err
		}
		precision, _ := cmd.Flags().GetInt("precision")
		hemisphere, _ := cmd.Flags().GetBool("hemisphere")
		f := format.CoordinateFormatter{Precision: precision}
		if hemisphere {
			return printFormatted(cmd, f.FormatHemisphere(lat, lon))
		}
		return printFormatted(cmd, f.Format(lat, lon))
	},
}

func init() {
	rootCmd.AddCommand(formatCmd)
	formatCmd.AddCommand(formatPriceCmd, formatCompactCmd, formatNumberCmd, formatDateCmd, formatRatingCmd, formatCoordsCmd)

	formatCmd.PersistentFlags().String("locale", "es-AR", "Locale (es-AR, en-US)")
	formatNumberCmd.Flags().Int("decimals", 0, "Decimal places")
	formatDateCmd.Flags().String("style", "MEDIUM", "Style (SHORT, MEDIUM, LONG, FULL, RELATIVE)")
	formatRatingCmd.Flags().Bool("stars", false, "Render as stars")
	formatCoordsCmd.Flags().Int("precision", 6, "Decimal places")
	formatCoordsCmd.Flags().Bool("hemisphere", false, "Use N/S and E/O suffixes")
}

func formatLocale(cmd *cobra.Command) format.Locale {
	code, _ := cmd.Flags().GetString("locale")
	return format.LookupLocale(code)
}

func parseFloatArg(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func printFormatted(cmd *cobra.Command, s string) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), s)
	return err
}
