// Package cli implements the pimigrate command line.
package cli

import (
	"fmt"

	"github.com/pimigrate/tools/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type globalFlags struct {
	verbose bool
}

func RootCmd() *cobra.Command {
	var global globalFlags
	rootCmd := &cobra.Command{
		Use:   "pimigrate",
		Short: "move a running Raspberry Pi OS from its SD card to NVMe storage",
		Long: `The pimigrate tool copies the running Raspberry Pi OS onto another
storage device (typically an NVMe drive on a Raspberry Pi 5) and makes
the copy bootable:

1. Show what would be done (pimigrate plan),
2. Partition, format, copy and patch the destination (pimigrate migrate),
3. Prepare bootloader EEPROM updates offline (pimigrate eeprom).

The SD card is never modified. Keep it as a fallback until the new
device has booted.
`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			versionVal, err := cmd.Flags().GetBool("version")
			if err != nil {
				return fmt.Errorf("BUG: version flag declared as non-bool")
			}
			if versionVal {
				fmt.Fprintln(cmd.OutOrStdout(), version.Read())
				return nil
			}
			return pflag.ErrHelp
		},
	}
	rootCmd.AddGroup(&cobra.Group{
		ID:    "migrate",
		Title: "Commands to migrate the running system:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "eeprom",
		Title: "Commands to work with the bootloader EEPROM:",
	})
	rootCmd.Flags().Bool("version", false, "print pimigrate version")
	rootCmd.PersistentFlags().BoolVarP(&global.verbose, "verbose", "v", false, "log every step and command line")
	rootCmd.AddCommand(migrateCmd(&global))
	rootCmd.AddCommand(planCmd(&global))
	rootCmd.AddCommand(eepromCmd(&global))
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}
