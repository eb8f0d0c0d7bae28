package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/cmmoran/buildergen/pkg/action/generate"
)

func newGenerateCommand(c *config) *cobra.Command {
	return &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "write builders",
		Long:    "Write a builder file next to every source file declaring annotated structs and record it in the manifest",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := c.options()
			if err != nil {
				return err
			}
			m, err := generate.Run(cmd.Context(), afero.NewOsFs(), opts)
			if err != nil {
				return err
			}
			for _, e := range m.Files {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", e.File, strings.Join(e.Builders, ", "))
			}
			return nil
		},
	}
}
