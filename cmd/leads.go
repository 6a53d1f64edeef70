package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/lead-responder/internal/leads"
	"github.com/spigell/lead-responder/internal/store"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Manage leads",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		stage, _ := cmd.Flags().GetString("stage")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		if stage != "" && !leads.Stage(stage).Valid() {
			return fmt.Errorf("unknown stage %q", stage)
		}

		e, err := setup(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer e.Close()

		items, err := e.svc.ListLeads(cmd.Context(), store.LeadFilter{Stage: leads.Stage(stage), Limit: limit, Offset: offset})
		if err != nil {
			return err
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.AppendHeader(table.Row{"ID", "Name", "Email", "Company", "Title", "Stage", "Score"})
		for _, l := range items {
			tw.AppendRow(table.Row{l.ID, l.Name, l.Email, l.Company, l.Title, l.Stage, formatScore(l.Score)})
		}
		tw.AppendFooter(table.Row{"", "", "", "", "", "Total", len(items)})
		tw.Render()
		return nil
	},
}

var leadsImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import leads from a CSV file with at least name and email columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		e, err := setup(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := e.svc.ImportCSV(cmd.Context(), filepath.Base(args[0]), f)
		if err != nil {
			return err
		}

		for _, msg := range res.Errors {
			e.logger.Warn("row skipped", zap.String("reason", msg))
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	},
}

var leadsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the sample companies and leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := setup(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := e.svc.SeedSampleLeads(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score ID",
	Short: "Score a lead with the active scoring config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		e, err := setup(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := e.svc.ScoreLead(cmd.Context(), id)
		if err != nil {
			return err
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.AppendHeader(table.Row{"Factor", "Score", "Weight", "Weighted", "Reasoning"})
		for _, item := range res.Breakdown.Breakdown {
			tw.AppendRow(table.Row{item.Factor, item.Score, item.Weight, fmt.Sprintf("%.1f", item.WeightedScore), item.Reasoning})
		}
		tw.AppendFooter(table.Row{"Total", "", "", fmt.Sprintf("%.1f", res.TotalScore), ""})
		tw.Render()
		return nil
	},
}

func init() {
	leadsListCmd.Flags().String("stage", "", "only show leads in this stage")
	leadsListCmd.Flags().Int("limit", 50, "maximum number of leads, 0 for all")
	leadsListCmd.Flags().Int("offset", 0, "number of leads to skip")

	leadsCmd.AddCommand(leadsListCmd, leadsImportCmd, leadsSeedCmd)
	rootCmd.AddCommand(leadsCmd, scoreCmd)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid lead id %q", s)
	}
	return id, nil
}

func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return strconv.FormatFloat(*score, 'f', 1, 64)
}
