package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/spigell/lead-responder/internal/leads"
	"github.com/spigell/lead-responder/internal/store"
	"github.com/spigell/lead-responder/internal/workflow"
)

const PromptBack = "back"

var qualifyCmd = &cobra.Command{
	Use:   "qualify [ID]",
	Short: "Ask the model to qualify a lead, choosing one interactively when no ID is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer e.Close()

		if len(args) == 1 {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return qualifyOne(cmd.Context(), cmd.OutOrStdout(), e.svc, id)
		}

		// Keep offering the remaining New leads until the user goes back.
		for {
			id, err := pickLead(cmd.Context(), e.svc)
			if err != nil {
				if errors.Is(err, errBack) {
					return nil
				}
				return err
			}
			if err := qualifyOne(cmd.Context(), cmd.OutOrStdout(), e.svc, id); err != nil {
				return err
			}
		}
	},
}

var outreachCmd = &cobra.Command{
	Use:   "outreach ID",
	Short: "Draft a personalized outreach email for a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		extra, _ := cmd.Flags().GetString("context")

		e, err := setup(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer e.Close()

		out, err := e.svc.GenerateOutreach(cmd.Context(), id, strings.TrimSpace(extra))
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Subject: %s\n\n%s\n", out.Subject, out.Body)
		for i, v := range out.Variants {
			fmt.Fprintf(w, "\n--- variant %d ---\nSubject: %s\n\n%s\n", i+1, v.Subject, v.Body)
		}
		return nil
	},
}

var errBack = errors.New("back requested")

func init() {
	outreachCmd.Flags().StringP("context", "c", "", "additional context for the message")
	rootCmd.AddCommand(qualifyCmd, outreachCmd)
}

func pickLead(ctx context.Context, svc *workflow.Service) (int64, error) {
	candidates, err := svc.ListLeads(ctx, store.LeadFilter{Stage: leads.StageNew})
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, errBack
	}

	items := make([]string, 0, len(candidates)+1)
	for _, l := range candidates {
		items = append(items, fmt.Sprintf("%d %s <%s> %s", l.ID, l.Name, l.Email, l.Company))
	}

	prompt := promptui.Select{
		Label: "Choose a lead to qualify and press ENTER",
		Items: append(items, PromptBack),
		Size:  10,
	}

	_, selected, err := prompt.Run()
	if err != nil {
		return 0, err
	}
	if selected == PromptBack {
		return 0, errBack
	}

	return parseID(strings.Split(selected, " ")[0])
}

func qualifyOne(ctx context.Context, w io.Writer, svc *workflow.Service, id int64) error {
	out, err := svc.QualifyLead(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Lead %d: %s (%d%% confidence)\n", out.LeadID, out.Verdict, out.Confidence)
	fmt.Fprintf(w, "Reasoning: %s\n", out.Reasoning)
	for _, f := range out.Factors {
		fmt.Fprintf(w, "  - %s\n", f)
	}
	if out.StageChanged {
		fmt.Fprintf(w, "Stage advanced to %s\n", out.Stage)
	}
	return nil
}
