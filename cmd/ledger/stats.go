package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/panel-ledger/internal/cli"
	"github.com/Veraticus/panel-ledger/internal/model"
)

// unknownAlarmShare is the unknown fraction above which stats warns that the rules are stale.
const unknownAlarmShare = 0.05

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show stored actions per type",
		Long: `Count stored actions per type. A growing share of unknown records means the
panel changed its phrasing and the rules need updating.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := initStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			counts, err := store.CountActionsByType(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			total := 0
			for _, n := range counts {
				total += n
			}
			if total == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No actions stored yet. Run: ledger scrape"))
				return nil
			}

			types := make([]model.ActionType, 0, len(counts))
			for t := range counts {
				types = append(types, t)
			}
			slices.SortFunc(types, func(a, b model.ActionType) int {
				if c := cmp.Compare(counts[b], counts[a]); c != 0 {
					return c
				}
				return cmp.Compare(a, b)
			})

			rows := make([][]string, len(types))
			for i, t := range types {
				rows[i] = []string{cli.FormatActionType(t), strconv.Itoa(counts[t]), cli.FormatPercent(counts[t], total)}
			}

			fmt.Fprintln(out, cli.FormatReport(fmt.Sprintf("%d stored actions", total)))
			fmt.Fprint(out, cli.RenderTable([]string{"TYPE", "COUNT", "SHARE"}, rows))

			unknown := counts[model.ActionUnknown]
			if float64(unknown)/float64(total) > unknownAlarmShare {
				fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf(
					"%s of actions are unknown; the rules may be out of date (ledger rules test TEXT)",
					cli.FormatPercent(unknown, total))))
			}
			return nil
		},
	}
}

func actionsCmd() *cobra.Command {
	var player string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List recent actions involving a player",
		Example: `  ledger actions --player 209261
  ledger actions --player 209261 --limit 5 --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if player == "" {
				return fmt.Errorf("--player is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := initStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			actions, err := store.ListActionsByPlayer(cmd.Context(), player, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetEscapeHTML(false)
				for i := range actions {
					if err := enc.Encode(toActionJSON(actions[i].ID, &actions[i].ActionRecord)); err != nil {
						return err
					}
				}
				return nil
			}

			if len(actions) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No actions found for player "+player+"."))
				return nil
			}

			rows := make([][]string, len(actions))
			for i, a := range actions {
				role := "actor"
				if model.Deref(a.ActorID) != player {
					role = "target"
				}
				detail := model.Deref(a.Detail)
				if detail == "" {
					detail = a.RawText
				}
				rows[i] = []string{
					a.ObservedAt.Local().Format("2006-01-02 15:04:05"),
					cli.FormatActionType(a.ActionType),
					role,
					truncate(detail, sampleTextWidth),
				}
			}
			fmt.Fprint(out, cli.RenderTable([]string{"WHEN", "TYPE", "ROLE", "DETAIL"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&player, "player", "p", "", "player id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum actions to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON lines")

	return cmd
}
