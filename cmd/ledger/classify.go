package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/panel-ledger/internal/classification"
	"github.com/Veraticus/panel-ledger/internal/model"
)

func classifyCmd() *cobra.Command {
	var observedAt string
	var includeSkipped bool

	cmd := &cobra.Command{
		Use:   "classify [text...]",
		Short: "Classify feed lines without storing them",
		Long: `Classify each argument, or each line of standard input when no arguments
are given, and print the resulting records as JSON lines.

Nothing is written to the database.`,
		Example: `  ledger classify "Jucatorul Ion(5) a depozitat suma de 1.000$ (taxa 10$)."
  cat feed.txt | ledger classify --observed-at 2025-03-14T18:30:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			at := time.Now().UTC()
			if observedAt != "" {
				parsed, err := time.Parse(time.RFC3339, observedAt)
				if err != nil {
					return fmt.Errorf("invalid --observed-at %q: %w", observedAt, err)
				}
				at = parsed
			}

			lines := args
			if len(lines) == 0 {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				scanner.Buffer(make([]byte, 64*1024), 1024*1024)
				for scanner.Scan() {
					if line := strings.TrimSpace(scanner.Text()); line != "" {
						lines = append(lines, line)
					}
				}
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}
			}

			classifier := classification.MustDefault()
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)

			for _, line := range lines {
				rec := classifier.Classify(line, at)
				if rec == nil {
					if includeSkipped {
						if err := enc.Encode(map[string]string{"raw_text": line, "action_type": "not_an_action"}); err != nil {
							return err
						}
					}
					continue
				}
				if err := enc.Encode(toActionJSON(0, rec)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&observedAt, "observed-at", "", "observation time (RFC3339) for lines without an embedded timestamp")
	cmd.Flags().BoolVar(&includeSkipped, "include-skipped", false, "also print lines that are not actions")

	return cmd
}

// parseTypes converts --type values into action types.
func parseTypes(values []string) ([]model.ActionType, error) {
	var types []model.ActionType
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			t, err := model.ParseActionType(part)
			if err != nil {
				return nil, err
			}
			types = append(types, t)
		}
	}
	return types, nil
}
