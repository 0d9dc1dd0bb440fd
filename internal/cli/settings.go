// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newSettingsCmd exposes the key/value settings table of the conversation
// database.
func newSettingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and write settings stored in the conversation database",
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a stored setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Store()
			if err != nil {
				return err
			}
			v, err := store.GetSetting(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}
			if app.flags.json {
				return NewJSONResponse(cmd.CommandPath(), map[string]any{args[0]: v}).Print(app.Stdout)
			}
			if v == nil {
				return fmt.Errorf("setting %q is not set", args[0])
			}
			fmt.Fprintln(app.Stdout, v)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a setting; JSON values keep their type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Store()
			if err != nil {
				return err
			}
			if err := store.SetSetting(cmd.Context(), args[0], parseSettingValue(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(app.Stdout, "%s = %s\n", args[0], args[1])
			return nil
		},
	}

	del := &cobra.Command{
		Use:     "delete <key>",
		Aliases: []string{"rm"},
		Short:   "Remove a stored setting",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Store()
			if err != nil {
				return err
			}
			return store.DeleteSetting(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(get, set, del)
	return cmd
}

// parseSettingValue decodes raw as JSON, falling back to the literal string.
func parseSettingValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
