package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/canchaya/canchaya/pkg/alerts"
	"github.com/canchaya/canchaya/pkg/format"
	"github.com/canchaya/canchaya/pkg/model"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Manage alert definitions",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alert definitions and their state",
	RunE:  runAlertsList,
}

var alertsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an alert definition",
	RunE:  runAlertsAdd,
}

var alertsToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Activate or deactivate an alert",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsToggle,
}

var alertsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an alert definition",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsDelete,
}

var alertsImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import alert definitions from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsImport,
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsListCmd, alertsAddCmd, alertsToggleCmd, alertsDeleteCmd, alertsImportCmd)

	alertsAddCmd.Flags().StringP("name", "n", "", "Alert name")
	alertsAddCmd.Flags().StringP("metric", "m", "", "Metric id to watch")
	alertsAddCmd.Flags().StringP("condition", "c", ">", "Condition (>, <, >=, <=, =, between)")
	alertsAddCmd.Flags().Float64Slice("threshold", nil, "Threshold, or min,max for between")
	alertsAddCmd.Flags().StringP("severity", "s", "MEDIUM", "Severity (LOW, MEDIUM, HIGH, CRITICAL)")
	alertsAddCmd.Flags().StringSlice("channels", []string{"IN_APP"}, "Channels (EMAIL, PUSH, SMS, IN_APP)")
	alertsAddCmd.Flags().StringSlice("recipients", nil, "Email recipients")
	alertsAddCmd.Flags().Int("cooldown", 60, "Cooldown in minutes")
	alertsAddCmd.Flags().Bool("inactive", false, "Create the alert deactivated")
	_ = alertsAddCmd.MarkFlagRequired("name")
	_ = alertsAddCmd.MarkFlagRequired("metric")
	_ = alertsAddCmd.MarkFlagRequired("threshold")
}

func runAlertsList(cmd *cobra.Command, _ []string) error {
	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	defs, err := a.Store.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(defs) == 0 {
		fmt.Fprintln(out, "No alerts configured. Use 'canchaya alerts add' to create one.")
		return nil
	}

	now := time.Now()
	dates := format.DateFormatter{Style: format.DateRelative, Locale: a.Locale}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tMETRIC\tCONDITION\tSEVERITY\tCHANNELS\tSTATE\tLAST TRIGGERED\n")
	for _, d := range defs {
		last := "-"
		if d.LastTriggered != nil {
			last = dates.Format(*d.LastTriggered)
		}
		channels := make([]string, len(d.Channels))
		for i, ch := range d.Channels {
			channels[i] = string(ch)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s %s\t%s\t%s\t%s\t%s\n",
			d.ID, d.Name, d.MetricID,
			d.Condition, d.Threshold,
			d.Severity, strings.Join(channels, ","),
			alerts.StateOf(d, now), last,
		)
	}
	w.Flush()

	return nil
}

func runAlertsAdd(cmd *cobra.Command, _ []string) error {
	name, _ := cmd.Flags().GetString("name")
	metric, _ := cmd.Flags().GetString("metric")
	condition, _ := cmd.Flags().GetString("condition")
	threshold, _ := cmd.Flags().GetFloat64Slice("threshold")
	severity, _ := cmd.Flags().GetString("severity")
	channelNames, _ := cmd.Flags().GetStringSlice("channels")
	recipients, _ := cmd.Flags().GetStringSlice("recipients")
	cooldown, _ := cmd.Flags().GetInt("cooldown")
	inactive, _ := cmd.Flags().GetBool("inactive")

	channels := make([]model.Channel, len(channelNames))
	for i, ch := range channelNames {
		channels[i] = model.Channel(strings.ToUpper(strings.TrimSpace(ch)))
	}

	def, err := model.NewAlertDefinition(model.AlertDefinition{
		Name:            name,
		MetricID:        metric,
		Condition:       model.Condition(strings.ToLower(condition)),
		Threshold:       model.ThresholdOf(threshold...),
		Severity:        model.Severity(strings.ToUpper(severity)),
		Channels:        channels,
		Recipients:      recipients,
		CooldownMinutes: cooldown,
		Active:          !inactive,
	})
	if err != nil {
		return err
	}

	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Store.Save(cmd.Context(), def); err != nil {
		return fmt.Errorf("save alert: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Alert created:\n")
	fmt.Fprintf(out, "  ID:        %s\n", def.ID)
	fmt.Fprintf(out, "  Name:      %s\n", def.Name)
	fmt.Fprintf(out, "  Rule:      %s %s %s\n", def.MetricID, def.Condition, def.Threshold)
	fmt.Fprintf(out, "  Severity:  %s\n", def.Severity)
	fmt.Fprintf(out, "  Cooldown:  %d min\n", def.CooldownMinutes)
	fmt.Fprintf(out, "  Active:    %t\n", def.Active)

	return nil
}

func runAlertsToggle(cmd *cobra.Command, args []string) error {
	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	def, err := a.Store.Toggle(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("toggle alert: %w", err)
	}
	state := "deactivated"
	if def.Active {
		state = "activated"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Alert %s %s\n", def.ID, state)
	return nil
}

func runAlertsDelete(cmd *cobra.Command, args []string) error {
	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Store.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Alert %s deleted\n", args[0])
	return nil
}

func runAlertsImport(cmd *cobra.Command, args []string) error {
	defs, err := alerts.LoadYAMLFile(args[0])
	if err != nil {
		return err
	}

	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := alerts.Import(cmd.Context(), a.Store, defs)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d alert(s) from %s\n", n, args[0])
	return nil
}
