package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pimigrate/tools/internal/config"
	"github.com/pimigrate/tools/internal/eeprom"
	"github.com/pimigrate/tools/internal/migrate"
	"github.com/pimigrate/tools/internal/sysexec"
	"github.com/spf13/cobra"
)

// migrateCmd is pimigrate migrate.
func migrateCmd(global *globalFlags) *cobra.Command {
	impl := migrateImplConfig{global: global}
	cmd := &cobra.Command{
		GroupID: "migrate",
		Use:     "migrate",
		Short:   "Copy the running system to another storage device and make it bootable",
		Long: `Copy the running system to another storage device and make it bootable.

The destination device is repartitioned (FAT32 boot partition, ext4 root
partition), formatted, filled with a copy of the running system and its
cmdline.txt and /etc/fstab are pointed at the new partitions. You are
asked to type YES before anything is written.

Must be run as root. Run pimigrate plan first to see every command.

Examples:
  # Migrate from the SD card to the first NVMe drive:
  % sudo pimigrate migrate

  # Migrate to a USB SSD and configure the bootloader without asking:
  % sudo pimigrate migrate --dest=/dev/sda --boot_order=0xf14 --eeprom=yes
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().NArg() > 0 {
				fmt.Fprint(cmd.ErrOrStderr(), `positional arguments are not supported

`)
				return cmd.Usage()
			}
			return impl.run(cmd.Context(), args, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	impl.flags = config.RegisterPflags(cmd.Flags())
	return cmd
}

type migrateImplConfig struct {
	global *globalFlags
	flags  *config.Flags
}

func (r *migrateImplConfig) run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := r.flags.Load()
	if err != nil {
		return err
	}
	log := newLogger(stderr, r.global.verbose)
	defer log.Sync()

	runner := sysexec.NewExecRunner(log)
	m := &migrate.Migrator{
		Config: cfg,
		System: migrate.HostSystem{},
		Runner: runner,
		Log:    log,
		Stdin:  stdin,
		Stdout: stdout,
		Bootloader: &eeprom.Configurator{
			Runner:  runner,
			Log:     log,
			TempDir: os.TempDir(),
		},
	}
	return m.Run(ctx)
}
