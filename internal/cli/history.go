// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/export"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/util"
)

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"hist", "h"},
		Short:   "Browse saved conversations",
	}
	cmd.AddCommand(
		newHistoryListCmd(app),
		newHistorySearchCmd(app),
		newHistoryShowCmd(app),
		newHistoryDeleteCmd(app),
		newHistoryTagCmd(app),
		newHistoryTagsCmd(app),
		newHistoryExportCmd(app),
	)
	return cmd
}

// parseID parses a conversation id argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid conversation id %q", arg)
	}
	return id, nil
}

func newHistoryListCmd(app *App) *cobra.Command {
	var opts storage.ListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Store()
			if err != nil {
				return err
			}
			list, err := store.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if app.flags.json {
				return NewJSONResponse(cmd.CommandPath(), list).Print(app.Stdout)
			}
			if len(list) == 0 {
				fmt.Fprintln(app.Stdout, "No conversations found.")
				return nil
			}

			t := newTable("ID", "TITLE", "MODEL", "MSGS", "UPDATED", "TAGS").limit(1, 40)
			for _, s := range list {
				t.add(strconv.FormatInt(s.ID, 10), s.Title, s.Model, strconv.Itoa(s.MessageCount), ago(s.UpdatedAt), s.TagString())
			}
			t.print(app.Stdout)
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", storage.DefaultListLimit, "maximum rows, negative for all")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "rows to skip")
	cmd.Flags().StringVarP(&opts.Search, "search", "q", "", "only conversations whose title or messages contain `text`")
	return cmd
}

func newHistorySearchCmd(app *App) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Find messages containing text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Store()
			if err != nil {
				return err
			}
			hits, err := store.SearchByContent(cmd.Context(), strings.Join(args, " "), limit, offset)
			if err != nil {
				return err
			}
			if app.flags.json {
				return NewJSONResponse(cmd.CommandPath(), hits).Print(app.Stdout)
			}
			if len(hits) == 0 {
				fmt.Fprintln(app.Stdout, "No matches.")
				return nil
			}
			t := newTable("ID", "TITLE", "MATCH").limit(1, 30).limit(2, 60)
			for _, h := range hits {
				t.add(strconv.FormatInt(h.ID, 10), h.Title, util.SingleLine(h.Snippet))
			}
			t.print(app.Stdout)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", storage.DefaultListLimit, "maximum matches")
	cmd.Flags().IntVar(&offset, "offset", 0, "matches to skip")
	return cmd
}

func newHistoryShowCmd(app *App) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := app.Store()
			if err != nil {
				return err
			}
			conv, err := store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if app.flags.json {
				return NewJSONResponse(cmd.CommandPath(), conv).Print(app.Stdout)
			}
			printConversation(app, conv, raw)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print replies without markdown rendering")
	return cmd
}

func printConversation(app *App, conv *model.Conversation, raw bool) {
	out := app.Stdout
	cfg := app.Config()

	fmt.Fprintln(out, TitleStyle.Render(fmt.Sprintf("#%d %s", conv.ID, conv.Title)))
	fmt.Fprintln(out, LabelStyle.Render("Model"), conv.Model)
	if cfg.Conversation.ShowTimestamps {
		fmt.Fprintln(out, LabelStyle.Render("Created"), conv.CreatedAt.Local().Format("2006-01-02 15:04"))
		fmt.Fprintln(out, LabelStyle.Render("Updated"), ago(conv.UpdatedAt))
	}
	if len(conv.Tags) > 0 {
		fmt.Fprintln(out, LabelStyle.Render("Tags"), strings.Join(conv.Tags, ", "))
	}
	if conv.SystemPrompt != "" {
		fmt.Fprintln(out, LabelStyle.Render("System prompt"), util.SingleLine(conv.SystemPrompt))
	}
	fmt.Fprintln(out)

	var md *styles.MarkdownRenderer
	if !raw && cfg.UI.Markdown && IsOutputTTY(out) {
		md = styles.NewMarkdownRenderer(cfg.UI.Theme, TerminalWidth(out))
	}
	for _, m := range conv.Messages {
		label := PromptStyle.Render(m.Role.DisplayName())
		if m.Role == model.RoleAssistant {
			label = AssistantStyle.Render(m.Role.DisplayName())
		}
		fmt.Fprintln(out, label)
		if m.Content.HasImage() {
			fmt.Fprintln(out, MutedStyle.Render("[image: "+m.Content.ImagePath+"]"))
		}
		if m.Role == model.RoleAssistant && md != nil {
			fmt.Fprintln(out, md.Render(m.Text()))
		} else {
			fmt.Fprintln(out, m.Text())
		}
		fmt.Fprintln(out)
	}
}

func newHistoryDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved conversation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := app.Store()
			if err != nil {
				return err
			}
			if !yes {
				ok, err := confirm(app, fmt.Sprintf("Delete conversation #%d?", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(app.Stdout, "Aborted.")
					return nil
				}
			}
			deleted, err := store.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !deleted {
				return storage.ErrConversationNotFound
			}
			if app.flags.json {
				return NewJSONResponse(cmd.CommandPath(), map[string]int64{"deleted": id}).Print(app.Stdout)
			}
			fmt.Fprintln(app.Stdout, SuccessStyle.Render(fmt.Sprintf("Deleted conversation #%d", id)))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm asks a yes/no question on stdin. It refuses to guess when stdin
// is not a terminal.
func confirm(app *App, question string) (bool, error) {
	if !IsTTY(app.Stdin) {
		return false, errors.New("stdin is not a terminal; pass --yes to confirm")
	}
	fmt.Fprint(app.Stdout, question+" [y/N] ")
	answer, err := bufio.NewReader(app.Stdin).ReadString('\n')
	if err != nil {
		return false, nil
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func newHistoryTagCmd(app *App) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "tag <id> <tag>",
		Short: "Tag a conversation, or untag it with --remove",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := app.Store()
			if err != nil {
				return err
			}

			var changed bool
			if remove {
				changed, err = store.RemoveTag(cmd.Context(), id, args[1])
			} else {
				changed, err = store.AddTag(cmd.Context(), id, args[1])
			}
			if err != nil {
				return err
			}
			if app.flags.json {
				return NewJSONResponse(cmd.CommandPath(), map[string]any{"id": id, "tag": args[1], "changed": changed}).Print(app.Stdout)
			}

			switch {
			case remove && changed:
				fmt.Fprintf(app.Stdout, "Removed tag %q from #%d\n", args[1], id)
			case remove:
				fmt.Fprintf(app.Stdout, "#%d was not tagged %q\n", id, args[1])
			case changed:
				fmt.Fprintf(app.Stdout, "Tagged #%d %q\n", id, strings.TrimSpace(args[1]))
			default:
				fmt.Fprintf(app.Stdout, "#%d is already tagged %q\n", id, strings.TrimSpace(args[1]))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the tag instead")
	return cmd
}

func newHistoryTagsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List every tag in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Store()
			if err != nil {
				return err
			}
			tags, err := store.ListTags(cmd.Context())
			if err != nil {
				return err
			}
			if app.flags.json {
				return NewJSONResponse(cmd.CommandPath(), tags).Print(app.Stdout)
			}
			for _, t := range tags {
				fmt.Fprintln(app.Stdout, t)
			}
			return nil
		},
	}
}

func newHistoryExportCmd(app *App) *cobra.Command {
	var (
		format string
		outDir string
		open   bool
	)

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a conversation to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			exp, err := export.ForFormat(format)
			if err != nil {
				return err
			}
			store, err := app.Store()
			if err != nil {
				return err
			}
			conv, err := store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			opts := export.DefaultOptions()
			opts.OpenAfterExport = open
			if outDir != "" {
				opts.OutputDir = outDir
			} else if opts.OutputDir, err = app.Config().ExportDir(); err != nil {
				return err
			}

			path, err := export.ExportToFile(conv, exp, opts)
			if err != nil {
				return err
			}
			if app.flags.json {
				return NewJSONResponse(cmd.CommandPath(), map[string]string{"path": path, "mime_type": exp.MimeType()}).Print(app.Stdout)
			}
			fmt.Fprintln(app.Stdout, SuccessStyle.Render("Exported to "+path))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json, markdown or yaml")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default conversation.export_dir)")
	cmd.Flags().BoolVar(&open, "open", false, "open the file afterwards")
	return cmd
}
