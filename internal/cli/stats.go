// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show conversation database statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Store()
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if app.flags.json {
				return NewJSONResponse(cmd.CommandPath(), stats).Print(app.Stdout)
			}

			out := app.Stdout
			fmt.Fprintln(out, TitleStyle.Render("Conversation statistics"))
			fmt.Fprintln(out, LabelStyle.Render("Database"), store.Path())
			fmt.Fprintln(out, LabelStyle.Render("Conversations"), humanize.Comma(int64(stats.ConversationCount)))
			fmt.Fprintln(out, LabelStyle.Render("Messages"), humanize.Comma(int64(stats.MessageCount)))

			if len(stats.ModelUsage) > 0 {
				fmt.Fprintln(out)
				printCounts(app, "MODEL", stats.ModelUsage)
			}
			if len(stats.TagCounts) > 0 {
				fmt.Fprintln(out)
				printCounts(app, "TAG", stats.TagCounts)
			}
			return nil
		},
	}
}

// printCounts prints a name/count table, largest count first.
func printCounts(app *App, label string, counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	t := newTable(label, "CONVERSATIONS")
	for _, name := range names {
		t.add(name, strconv.Itoa(counts[name]))
	}
	t.print(app.Stdout)
}
