package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/pimigrate/tools/internal/config"
	"github.com/pimigrate/tools/internal/migrate"
	"github.com/spf13/cobra"
)

// planCmd is pimigrate plan.
func planCmd(global *globalFlags) *cobra.Command {
	impl := planImplConfig{global: global}
	cmd := &cobra.Command{
		GroupID: "migrate",
		Use:     "plan",
		Short:   "Print the steps and commands pimigrate migrate would run",
		Long: `Print the steps and commands pimigrate migrate would run with the same
flags and config file. Nothing is checked or modified; root is not required.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return impl.run(cmd.Context(), args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	impl.flags = config.RegisterPflags(cmd.Flags())
	return cmd
}

type planImplConfig struct {
	global *globalFlags
	flags  *config.Flags
}

func (r *planImplConfig) run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := r.flags.Load()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Migration from %s to %s:\n\n", cfg.Source, cfg.Dest)
	migrate.PrintPlan(stdout, migrate.Plan(cfg))
	return nil
}
