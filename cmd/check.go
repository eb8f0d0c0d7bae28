package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/cmmoran/buildergen/pkg/action/snapshot"
)

func newCheckCommand(c *config) *cobra.Command {
	var diff bool

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "verify builders are up to date",
		Long:  "Render builders in memory and compare them with the generated files on disk; exits non-zero when any differ",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := c.options()
			if err != nil {
				return err
			}
			drift, err := snapshot.Check(cmd.Context(), afero.NewOsFs(), opts)
			if err != nil {
				return err
			}
			for _, d := range drift {
				fmt.Fprintln(cmd.OutOrStdout(), d)
				if diff && d.Diff != "" {
					fmt.Fprintln(cmd.OutOrStdout(), d.Diff)
				}
			}
			if len(drift) > 0 {
				return fmt.Errorf("%d generated file(s) out of date", len(drift))
			}
			return nil
		},
	}
	checkCmd.Flags().BoolVar(&diff, "diff", false, "print the difference for modified files")
	return checkCmd
}
