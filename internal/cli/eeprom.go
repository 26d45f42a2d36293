package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pimigrate/tools/internal/config"
	"github.com/pimigrate/tools/internal/eeprom"
	"github.com/spf13/cobra"
)

// eepromCmd is pimigrate eeprom.
func eepromCmd(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		GroupID: "eeprom",
		Use:     "eeprom",
		Short:   "Inspect and patch Raspberry Pi bootloader EEPROM images",
		Long: `Inspect and patch Raspberry Pi bootloader EEPROM images (pieeprom-*.bin).

Use these commands to prepare a bootloader update on a machine other than
the Raspberry Pi, e.g. when rpi-eeprom-config is not available.
`,
	}
	cmd.AddCommand(eepromShowCmd())
	cmd.AddCommand(eepromPatchCmd(global))
	return cmd
}

// readImage reads path, or the most recent pieeprom-*.bin if path is a
// directory.
func readImage(path string) (string, []byte, error) {
	st, err := os.Stat(path)
	if err != nil {
		return "", nil, err
	}
	if st.IsDir() {
		if path, err = eeprom.LatestImage(path); err != nil {
			return "", nil, err
		}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	return path, b, nil
}

func eepromShowCmd() *cobra.Command {
	var impl eepromShowImplConfig
	return &cobra.Command{
		Use:   "show <pieeprom.bin|dir>",
		Short: "Print the bootconf.txt embedded in an EEPROM image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return impl.run(cmd.Context(), args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

type eepromShowImplConfig struct{}

func (r *eepromShowImplConfig) run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	path, b, err := readImage(args[0])
	if err != nil {
		return err
	}
	im, err := eeprom.Parse(b)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	_, err = stdout.Write(im.Bootconf())
	return err
}

func eepromPatchCmd(global *globalFlags) *cobra.Command {
	impl := eepromPatchImplConfig{global: global}
	cmd := &cobra.Command{
		Use:   "patch <pieeprom.bin|dir>",
		Short: "Write a bootloader self-update that boots from NVMe first",
		Long: `Apply BOOT_ORDER and PCIE_PROBE=1 to the bootconf.txt of an EEPROM image
and write the result as pieeprom.upd plus pieeprom.sig into the output
directory. Copy both files onto the boot partition; the bootloader
flashes itself on the next boot.

Examples:
  % pimigrate eeprom patch /lib/firmware/raspberrypi/bootloader-2712/default --out /boot/firmware
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return impl.run(cmd.Context(), args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&impl.out, "out", ".", "directory to write pieeprom.upd and pieeprom.sig to")
	cmd.Flags().StringVar(&impl.bootOrder, "boot_order", config.Defaults().BootOrder, "bootloader BOOT_ORDER to configure")
	return cmd
}

type eepromPatchImplConfig struct {
	global    *globalFlags
	out       string
	bootOrder string
}

func (r *eepromPatchImplConfig) run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := eeprom.ValidateBootOrder(r.bootOrder); err != nil {
		return err
	}
	log := newLogger(stderr, r.global.verbose)
	defer log.Sync()

	path, b, err := readImage(args[0])
	if err != nil {
		return err
	}
	log.Debug("patching " + path)
	patched, err := eeprom.PatchImage(b, eeprom.BootSettings(r.bootOrder))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	upd, _, err := eeprom.WriteUpdateFiles(r.out, patched)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "EEPROM update summary:\n")
	fmt.Fprintf(stdout, "  %s (from %s, sig %s)\n", upd, filepath.Base(path), eeprom.ShortSum(patched))
	return nil
}
