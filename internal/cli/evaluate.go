package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <metric> <value>",
	Short: "Evaluate a metric value against the alert definitions",
	Long: `Evaluate checks every active alert watching the metric, fires the ones whose
condition holds and which are not cooling down, and routes them to their channels.`,
	Args: cobra.ExactArgs(2),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", args[1], err)
	}

	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	triggers, err := a.Evaluator.Evaluate(cmd.Context(), args[0], value)
	if err != nil {
		return fmt.Errorf("evaluate metric: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(triggers) == 0 {
		fmt.Fprintf(out, "No alerts fired for %s = %g\n", args[0], value)
		return nil
	}
	fmt.Fprintf(out, "Fired %d alert(s):\n", len(triggers))
	for _, t := range triggers {
		fmt.Fprintf(out, "  %s  %s\n", t.Definition.ID, t.Title())
	}
	return nil
}
