package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/canchaya/canchaya/pkg/format"
	"github.com/canchaya/canchaya/pkg/model"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export the alert definitions report",
	Long:  `Export every alert definition as CSV, HTML or Excel. PDF is accepted but not implemented yet.`,
	RunE:  runReport,
}

var reportHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show previously generated reports",
	RunE:  runReportHistory,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportHistoryCmd)
	reportCmd.Flags().StringP("format", "f", "csv", "Report format (csv, html, excel, pdf)")
	reportCmd.Flags().StringP("out", "o", "", "Output file or directory (default: current directory)")
}

func runReport(cmd *cobra.Command, _ []string) error {
	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	f, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")

	res, err := a.Reports.ExportAlerts(cmd.Context(), model.ReportFormat(strings.ToLower(f)))
	if err != nil {
		return fmt.Errorf("export report: %w", err)
	}
	if !res.Success {
		return fmt.Errorf("export report: %s", res.Error)
	}

	path := res.Filename
	if outPath != "" {
		path = outPath
		if info, err := os.Stat(outPath); err == nil && info.IsDir() {
			path = filepath.Join(outPath, res.Filename)
		}
	}
	if err := os.WriteFile(path, res.Content, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s (%s)\n", path, humanize.Bytes(uint64(len(res.Content))))
	return nil
}

func runReportHistory(cmd *cobra.Command, _ []string) error {
	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.Reports.History(cmd.Context())
	if err != nil {
		return fmt.Errorf("report history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No reports generated yet.")
		return nil
	}

	dates := format.DateFormatter{Style: format.DateRelative, Locale: a.Locale}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "WHEN\tFORMAT\tROWS\tFILE\tSTATUS\n")
	for _, r := range records {
		status := "ok"
		if !r.Success {
			status = r.Error
		}
		file := r.Filename
		if file == "" {
			file = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", dates.Format(r.CreatedAt), r.Format, r.Rows, file, status)
	}
	w.Flush()

	return nil
}
