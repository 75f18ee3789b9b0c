package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/panel-ledger/internal/classification"
	"github.com/Veraticus/panel-ledger/internal/cli"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the classification rules",
	}

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(testRulesCmd())

	return cmd
}

func listRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules := classification.MustDefault().Rules()
			rows := make([][]string, len(rules))
			for i, r := range rules {
				rows[i] = []string{
					strconv.Itoa(i + 1),
					r.Name,
					cli.FormatActionType(r.Tag),
					strings.Join(r.Anchors, ", "),
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderTable([]string{"#", "RULE", "TYPE", "ANCHORS"}, rows))
			return nil
		},
	}
}

func testRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test TEXT",
		Short: "Show how each rule treats a line",
		Example: `  ledger rules test "Jucatorul Ion(5) a retras suma de 1.000$ (taxa 10$)."`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trace := classification.MustDefault().Explain(strings.Join(args, " "))
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, cli.FormatTitle("Rule trace"))
			fmt.Fprintf(out, "  Line:    %s\n", trace.Line)
			if trace.Working != "" && trace.Working != trace.Line {
				fmt.Fprintf(out, "  Working: %s\n", trace.Working)
			}
			fmt.Fprintf(out, "  Marker: %t  Opener: %t  Candidate: %t\n\n", trace.Marker, trace.Opener, trace.Candidate)

			if len(trace.Steps) > 0 {
				rows := make([][]string, len(trace.Steps))
				for i, step := range trace.Steps {
					outcome := cli.SubtleStyle.Render("no anchor")
					switch {
					case step.Matched && step.Rejected == "":
						outcome = cli.SuccessStyle.Render("matched")
					case step.Matched:
						outcome = cli.WarningStyle.Render("rejected: " + step.Rejected)
					case step.AnchorHit:
						outcome = cli.SubtleStyle.Render("no match")
					}
					rows[i] = []string{step.Rule, cli.FormatActionType(step.Tag), outcome}
				}
				fmt.Fprint(out, cli.RenderTable([]string{"RULE", "TYPE", "OUTCOME"}, rows))
			}

			if trace.Result == nil {
				fmt.Fprintln(out, cli.FormatWarning("Not an action; the line would be skipped."))
				return nil
			}

			fmt.Fprintln(out, cli.FormatSuccess("Result: "+cli.FormatActionType(trace.Result.ActionType)))
			data, err := json.MarshalIndent(toActionJSON(0, trace.Result), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		},
	}
}
