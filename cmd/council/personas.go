package main

import (
	"github.com/spf13/cobra"

	"github.com/lorenzotomasdiez/council/internal/output"
	"github.com/lorenzotomasdiez/council/internal/personas"
)

func newPersonasCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List the built-in personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output.Personas(cmd.OutOrStdout(), personas.Default())
			return nil
		},
	}
}

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the server offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			models, err := a.client().ListModels(cmd.Context())
			if err != nil {
				a.log.Slog().Warn("could not list models, showing defaults", "error", err)
				models = personas.DefaultModels()
			}
			output.Models(cmd.OutOrStdout(), personas.NewRegistry(models).Models())
			return nil
		},
	}
}
