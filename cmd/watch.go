package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/cmmoran/buildergen/pkg/action/watch"
	"github.com/cmmoran/buildergen/pkg/manifest"
)

func newWatchCommand(c *config) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "regenerate builders on change",
		Long:  "Generate builders, then regenerate them whenever a source file changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := c.options()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch.Run(ctx, afero.NewOsFs(), opts, func(m *manifest.Manifest, err error) {
				if err != nil {
					cmd.PrintErrln("Error:", err)
					return
				}
				fmt.Fprintf(cmd.OutOrStdout(), "generated %d file(s)\n", len(m.Files))
			})
		},
	}
	watchCmd.Flags().DurationVar(&watch.Debounce, "debounce", watch.Debounce, "quiet period before regenerating")
	return watchCmd
}

