package migrate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pimigrate/tools/internal/config"
	"github.com/pimigrate/tools/internal/eeprom"
	"go.uber.org/zap"
)

func (r *run) finalize(ctx context.Context) error {
	r.System.Sync()
	cfg := r.Config
	settings := eeprom.BootSettings(cfg.BootOrder)

	r.printf("\n")
	r.printf("Migration to %s complete.\n", cfg.Dest)
	r.printf("\n")
	r.printf("Next steps:\n")
	r.printf("  1. Make the bootloader try %s first (BOOT_ORDER=%s, PCIE_PROBE=1).\n", cfg.Dest, cfg.BootOrder)
	r.printf("  2. Reboot.\n")
	r.printf("  3. Verify that the root filesystem is on the new device:\n")
	r.printf("       findmnt /\n")
	r.printf("       lsblk -o NAME,PARTUUID,MOUNTPOINT\n")
	r.printf("     / should be %s (PARTUUID=%s).\n", r.paths.rootPart, r.rootIDs.PartUUID)
	r.printf("\n")
	r.printf("Keep %s unchanged until the new system has booted: it is your fallback.\n", cfg.Source)
	r.printf("\n")

	configure, err := r.wantBootloaderUpdate(ctx)
	if err != nil {
		return err
	}
	if !configure {
		r.log.Info("not changing bootloader configuration", zap.String("eeprom", string(cfg.EEPROM)))
		return nil
	}
	if r.Bootloader == nil {
		return fmt.Errorf("no bootloader configurator")
	}
	res, err := r.Bootloader.Configure(ctx, settings)
	if errors.Is(err, eeprom.ErrToolMissing) {
		r.log.Warn("cannot configure the bootloader automatically", zap.Error(err))
		r.printf("%s", eeprom.ManualInstructions(settings))
		return nil
	}
	if err != nil {
		return err
	}
	if res.Applied {
		r.printf("Bootloader update scheduled; it is applied on the next reboot.\n")
	} else {
		r.printf("Bootloader already configured.\n")
	}
	return nil
}

// wantBootloaderUpdate resolves the eeprom setting, asking the operator
// in ask mode.
func (r *run) wantBootloaderUpdate(ctx context.Context) (bool, error) {
	switch r.Config.EEPROM {
	case config.EEPROMYes:
		return true, nil
	case config.EEPROMNo:
		r.printf("%s", eeprom.ManualInstructions(eeprom.BootSettings(r.Config.BootOrder)))
		return false, nil
	}
	r.printf("Update the bootloader configuration now (BOOT_ORDER=%s)? [y/N] ", r.Config.BootOrder)
	answer, err := r.readLine(ctx)
	if err != nil {
		r.printf("\n")
		return false, ctx.Err()
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
