package cmd

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Run the qualification evaluation against the fixture leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		names, _ := cmd.Flags().GetStringSlice("lead")
		yes, _ := cmd.Flags().GetBool("yes")

		if !yes {
			confirm := promptui.Prompt{
				Label:     "This calls the model once per fixture. Proceed",
				IsConfirm: true,
			}
			if _, err := confirm.Run(); err != nil {
				if errors.Is(err, promptui.ErrAbort) {
					return nil
				}
				return err
			}
		}

		e, err := setup(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer e.Close()

		run, err := e.svc.RunEvaluation(cmd.Context(), names)
		if err != nil {
			return err
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.SetTitle(fmt.Sprintf("Evaluation #%d", run.ID))
		tw.AppendHeader(table.Row{"Lead", "Status", "Verdict", "Expected", "Confidence", "Range", "Schema"})
		for _, o := range run.Results {
			tw.AppendRow(table.Row{
				o.LeadID,
				o.Status,
				o.ActualVerdict,
				o.ExpectedVerdict,
				o.ActualConfidence,
				fmt.Sprintf("%d-%d", o.ExpectedConfidenceRange[0], o.ExpectedConfidenceRange[1]),
				o.SchemaValid,
			})
		}
		tw.Render()

		summary := table.NewWriter()
		summary.SetOutputMirror(cmd.OutOrStdout())
		summary.AppendRows([]table.Row{
			{"Passed", fmt.Sprintf("%d/%d", run.PassedTests, run.TotalTests)},
			{"Failed", run.FailedTests},
			{"Errors", run.ErrorTests},
			{"Pass rate", percent(run.PassRate)},
			{"Verdict accuracy", percent(run.VerdictAccuracy)},
			{"Confidence accuracy", percent(run.ConfidenceAccuracy)},
			{"Schema compliance", percent(run.SchemaComplianceRate)},
			{"Prompt completeness", percent(run.AvgPromptCompleteness)},
		})
		summary.Render()
		return nil
	},
}

func init() {
	evalCmd.Flags().StringSliceP("lead", "l", nil, "only evaluate fixtures with this lead name (repeatable)")
	evalCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	rootCmd.AddCommand(evalCmd)
}

func percent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}
