// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newModelsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "models",
		Aliases: []string{"list-models"},
		Short:   "List models installed in Ollama",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := app.Client().ListModels(cmd.Context())
			if err != nil {
				return err
			}
			if app.flags.json {
				return NewJSONResponse(cmd.CommandPath(), models).Print(app.Stdout)
			}
			if len(models) == 0 {
				fmt.Fprintln(app.Stdout, "No models installed. Try: ollama pull "+app.Config().Model.Name)
				return nil
			}

			current := app.Config().Model.Name
			t := newTable("NAME", "SIZE", "PARAMS", "QUANT", "MODIFIED")
			for _, m := range models {
				name := m.Name
				if name == current || name == current+":latest" {
					name += " *"
				}
				t.add(name, m.FormatSize(), emptyDash(m.Details.ParameterSize), emptyDash(m.Details.QuantizationLevel), ago(m.ModifiedAt))
			}
			t.print(app.Stdout)
			return nil
		},
	}
}
