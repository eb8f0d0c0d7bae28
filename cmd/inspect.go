package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cmmoran/buildergen/pkg/action/inspect"
)

func newInspectCommand(c *config) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "print builder models",
		Long:  "Print the builder model of every annotated struct as YAML without rendering code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := c.options()
			if err != nil {
				return err
			}
			return inspect.Run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
}
