package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/pimigrate/tools/internal/version"
	"github.com/spf13/cobra"
)

// versionCmd is pimigrate version.
func versionCmd() *cobra.Command {
	var impl versionImplConfig
	return &cobra.Command{
		Use:   "version",
		Short: "Print pimigrate version",
		Long:  `Print pimigrate version`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return impl.run(cmd.Context(), args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

type versionImplConfig struct{}

func (r *versionImplConfig) run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fmt.Fprintf(stdout, "%s\n", version.Read())
	return nil
}
